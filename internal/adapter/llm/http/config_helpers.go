package http

import (
	"time"

	"github.com/bkyoung/prreview/internal/config"
)

// ParseTimeout parses timeout with fallback chain: model override > global > default.
func ParseTimeout(modelOverride, globalTimeout string, defaultVal time.Duration) time.Duration {
	if modelOverride != "" {
		if d, err := time.ParseDuration(modelOverride); err == nil {
			return d
		}
	}
	if globalTimeout != "" {
		if d, err := time.ParseDuration(globalTimeout); err == nil {
			return d
		}
	}
	return defaultVal
}

// BuildRetryConfig creates a RetryConfig from the model-specific config
// layered over the service-wide HTTP defaults.
func BuildRetryConfig(model config.ModelConfig, httpCfg config.HTTPConfig) RetryConfig {
	maxRetries := httpCfg.MaxRetries
	if model.MaxRetries != 0 {
		maxRetries = model.MaxRetries
	}

	initialBackoff := parseDuration(model.InitialBackoff, httpCfg.InitialBackoff, 2*time.Second)
	maxBackoff := parseDuration(model.MaxBackoff, httpCfg.MaxBackoff, 32*time.Second)

	multiplier := httpCfg.BackoffMultiplier
	if multiplier == 0 {
		multiplier = 2.0
	}

	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: initialBackoff,
		MaxBackoff:     maxBackoff,
		Multiplier:     multiplier,
	}
}

func parseDuration(override, global string, defaultVal time.Duration) time.Duration {
	if override != "" {
		if d, err := time.ParseDuration(override); err == nil {
			return d
		}
	}
	if global != "" {
		if d, err := time.ParseDuration(global); err == nil {
			return d
		}
	}
	return defaultVal
}
