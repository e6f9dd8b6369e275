package scheduler_test

import (
	"context"
	"testing"

	"github.com/bkyoung/prreview/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyKey_Format(t *testing.T) {
	assert.Equal(t, "42:7:deadbeef", scheduler.IdempotencyKey(42, 7, "deadbeef"))
}

func TestIdempotencyKeeper_FirstClaimSucceeds(t *testing.T) {
	keeper := scheduler.NewIdempotencyKeeper(newTestRedis(t))
	ctx := context.Background()

	claimed, err := keeper.TryClaim(ctx, scheduler.IdempotencyKey(1, 1, "abc"))
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestIdempotencyKeeper_DuplicateClaimFails(t *testing.T) {
	keeper := scheduler.NewIdempotencyKeeper(newTestRedis(t))
	ctx := context.Background()
	key := scheduler.IdempotencyKey(1, 1, "abc")

	first, err := keeper.TryClaim(ctx, key)
	require.NoError(t, err)
	require.True(t, first)

	second, err := keeper.TryClaim(ctx, key)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestIdempotencyKeeper_ReleaseAllowsReclaim(t *testing.T) {
	keeper := scheduler.NewIdempotencyKeeper(newTestRedis(t))
	ctx := context.Background()
	key := scheduler.IdempotencyKey(1, 1, "abc")

	_, err := keeper.TryClaim(ctx, key)
	require.NoError(t, err)

	require.NoError(t, keeper.Release(ctx, key))

	reclaimed, err := keeper.TryClaim(ctx, key)
	require.NoError(t, err)
	assert.True(t, reclaimed)
}
