package observability_test

import (
	"testing"

	"github.com/bkyoung/prreview/internal/adapter/observability"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_CountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	m.WebhooksReceived.WithLabelValues("pull_request").Inc()
	m.WebhooksReceived.WithLabelValues("pull_request").Inc()

	metric := &dto.Metric{}
	require.NoError(t, m.WebhooksReceived.WithLabelValues("pull_request").Write(metric))
	require.Equal(t, float64(2), metric.GetCounter().GetValue())
}

func TestNewMetrics_QueueDepthGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	m.QueueDepth.WithLabelValues("fast").Set(5)

	metric := &dto.Metric{}
	require.NoError(t, m.QueueDepth.WithLabelValues("fast").Write(metric))
	require.Equal(t, float64(5), metric.GetGauge().GetValue())
}
