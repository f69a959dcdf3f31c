package health

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opagate/internal/domain"
	"opagate/pkg/platform/sentinel"
)

func sampleStatus() domain.SystemStatus {
	ms := int64(12)
	return domain.SystemStatus{
		OPALServer: domain.ServiceHealth{
			Status:    domain.StatusUnhealthy,
			Timestamp: checkTime,
			Error:     "opal [network]: connection failed",
		},
		OPAEngine: domain.ServiceHealth{
			Status:         domain.StatusHealthy,
			ResponseTimeMS: &ms,
			Timestamp:      checkTime,
		},
		Timestamp:     checkTime,
		OverallStatus: domain.OverallDegraded,
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, store.Save(context.Background(), sampleStatus()))
	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleStatus(), got)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "opagate:system_status", time.Minute)
	ctx := context.Background()

	t.Run("empty key is not found", func(t *testing.T) {
		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("saved status round trips with ttl", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sampleStatus()))
		assert.Equal(t, time.Minute, mr.TTL("opagate:system_status"))

		got, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.OverallDegraded, got.OverallStatus)
		require.NotNil(t, got.OPAEngine.ResponseTimeMS)
		assert.Equal(t, int64(12), *got.OPAEngine.ResponseTimeMS)
		assert.True(t, checkTime.Equal(got.Timestamp))
	})

	t.Run("expired status is not found", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sampleStatus()))
		mr.FastForward(2 * time.Minute)

		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("corrupt value is an error", func(t *testing.T) {
		require.NoError(t, mr.Set("opagate:system_status", "{"))

		_, err := store.Load(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("unreachable redis is unavailable", func(t *testing.T) {
		gone := miniredis.NewMiniRedis()
		require.NoError(t, gone.Start())
		addr := gone.Addr()
		gone.Close()

		down := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
		t.Cleanup(func() { _ = down.Close() })
		store := NewRedisStore(down, "opagate:system_status", time.Minute)

		err := store.Save(ctx, sampleStatus())
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)

		_, err = store.Load(ctx)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})
}
