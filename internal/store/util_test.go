package store_test

import (
	"strings"
	"testing"
	"time"

	"github.com/bkyoung/prreview/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestNewReviewID(t *testing.T) {
	t.Run("format is correct", func(t *testing.T) {
		ts := time.Date(2026, 7, 30, 14, 30, 45, 0, time.UTC)
		id := store.NewReviewID(ts, 42, 7, "deadbeef")

		assert.True(t, strings.HasPrefix(id, "review-"))
		assert.Contains(t, id, "20260730T143045Z")

		parts := strings.Split(id, "-")
		assert.Len(t, parts, 3)
		assert.Len(t, parts[2], 6)
	})

	t.Run("different times produce unique IDs", func(t *testing.T) {
		ts1 := time.Date(2026, 7, 30, 14, 30, 45, 0, time.UTC)
		ts2 := time.Date(2026, 7, 30, 14, 30, 46, 0, time.UTC)

		assert.NotEqual(t, store.NewReviewID(ts1, 1, 1, "a"), store.NewReviewID(ts2, 1, 1, "a"))
	})

	t.Run("different heads produce unique IDs", func(t *testing.T) {
		ts := time.Date(2026, 7, 30, 14, 30, 45, 0, time.UTC)
		assert.NotEqual(t, store.NewReviewID(ts, 1, 1, "a"), store.NewReviewID(ts, 1, 1, "b"))
	})

	t.Run("IDs are sortable by timestamp", func(t *testing.T) {
		ts1 := time.Date(2026, 7, 30, 14, 30, 45, 0, time.UTC)
		ts2 := time.Date(2026, 7, 30, 15, 30, 45, 0, time.UTC)

		assert.True(t, store.NewReviewID(ts1, 1, 1, "a") < store.NewReviewID(ts2, 1, 1, "a"))
	})
}

func TestCalculateConfigHash(t *testing.T) {
	t.Run("same config produces same hash", func(t *testing.T) {
		config := map[string]any{"queue": map[string]any{"fastLaneConcurrency": 4}}

		hash1, err := store.CalculateConfigHash(config)
		assert.NoError(t, err)
		hash2, err := store.CalculateConfigHash(config)
		assert.NoError(t, err)

		assert.Equal(t, hash1, hash2)
	})

	t.Run("different configs produce different hashes", func(t *testing.T) {
		hash1, err := store.CalculateConfigHash(map[string]any{"a": 1})
		assert.NoError(t, err)
		hash2, err := store.CalculateConfigHash(map[string]any{"a": 2})
		assert.NoError(t, err)

		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("field order does not matter for maps", func(t *testing.T) {
		hash1, err := store.CalculateConfigHash(map[string]any{"a": "x", "b": "y"})
		assert.NoError(t, err)
		hash2, err := store.CalculateConfigHash(map[string]any{"b": "y", "a": "x"})
		assert.NoError(t, err)

		assert.Equal(t, hash1, hash2)
	})

	t.Run("hash is hex string", func(t *testing.T) {
		hash, err := store.CalculateConfigHash(map[string]any{"test": "value"})
		assert.NoError(t, err)
		assert.Regexp(t, "^[0-9a-f]{64}$", hash)
	})
}
