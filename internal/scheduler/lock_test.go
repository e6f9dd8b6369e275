package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/bkyoung/prreview/internal/scheduler"
	"github.com/stretchr/testify/require"
)

func TestTenantLock_SecondAcquireFailsWhileHeld(t *testing.T) {
	lock := scheduler.NewTenantLock(newTestRedis(t), time.Minute)
	ctx := context.Background()

	token, ok, err := lock.TryAcquire(ctx, "acme/widgets")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = lock.TryAcquire(ctx, "acme/widgets")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTenantLock_ReleaseAllowsReacquire(t *testing.T) {
	lock := scheduler.NewTenantLock(newTestRedis(t), time.Minute)
	ctx := context.Background()

	token, ok, err := lock.TryAcquire(ctx, "acme/widgets")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Release(ctx, "acme/widgets", token))

	_, ok, err = lock.TryAcquire(ctx, "acme/widgets")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestTenantLock_ReleaseWithWrongTokenIsNoop(t *testing.T) {
	lock := scheduler.NewTenantLock(newTestRedis(t), time.Minute)
	ctx := context.Background()

	_, ok, err := lock.TryAcquire(ctx, "acme/widgets")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Release(ctx, "acme/widgets", "wrong-token"))

	_, ok, err = lock.TryAcquire(ctx, "acme/widgets")
	require.NoError(t, err)
	require.False(t, ok, "lock should still be held since release used the wrong token")
}

func TestTenantLock_IndependentTenants(t *testing.T) {
	lock := scheduler.NewTenantLock(newTestRedis(t), time.Minute)
	ctx := context.Background()

	_, ok1, _ := lock.TryAcquire(ctx, "acme/widgets")
	_, ok2, _ := lock.TryAcquire(ctx, "other/repo")

	require.True(t, ok1)
	require.True(t, ok2)
}
