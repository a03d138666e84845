//go:build integration

package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"

	"github.com/jmerrifield20/seasense/internal/reconcile"
	"github.com/jmerrifield20/seasense/internal/vessel/model"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLookup_roundTrip(t *testing.T) {
	rdb := newRedis(t)
	reg := registry(&model.Vessel{IMO: "9123456", ShipName: "OCEAN PRIDE"})
	l := reconcile.NewRedisLookup(rdb, reg, time.Minute, zap.NewNop())

	for i := 0; i < 2; i++ {
		v, err := l.LookupVessel(ctx, "9123456")
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, "OCEAN PRIDE", v.ShipName)
	}
	assert.Equal(t, 1, reg.calls)

	for i := 0; i < 2; i++ {
		v, err := l.LookupVessel(ctx, "0000001")
		require.NoError(t, err)
		assert.Nil(t, v)
	}
	assert.Equal(t, 2, reg.calls, "negative results are cached")

	require.NoError(t, l.Invalidate(ctx, "9123456"))
	_, err := l.LookupVessel(ctx, "9123456")
	require.NoError(t, err)
	assert.Equal(t, 3, reg.calls)
}
