//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
	"github.com/amirasaad/fxrates/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedisCache(t *testing.T) *RedisSnapshotCache {
	t.Helper()
	testutils.SkipIfNoDocker(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7.0.5",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	c, err := NewRedisSnapshotCacheFromURL(ctx, "redis://"+host+":"+port.Port()+"/0",
		"fxrates:test:", 0, testutils.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisSnapshotCache_RoundTrip(t *testing.T) {
	c := setupRedisCache(t)
	ctx := context.Background()

	_, err := c.Load(ctx)
	require.ErrorIs(t, err, core.ErrNoSnapshot)

	fetched := time.Now().Add(-2 * time.Hour).UTC().Truncate(time.Millisecond)
	snap := core.Snapshot{
		FetchedAt: fetched,
		Source:    "exchangerate-api+coingecko",
		Pairs: []core.RatePair{
			{From: "USD", To: "PHP", Rate: 56.2, Source: "exchangerate-api", UpdatedAt: fetched},
			{From: "BTC", To: "USD", Rate: 97000, Source: "coingecko", UpdatedAt: fetched},
		},
	}
	require.NoError(t, c.Save(ctx, snap))

	got, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Source, got.Source)
	assert.True(t, fetched.Equal(got.FetchedAt))
	require.Len(t, got.Pairs, 2)
	assert.Equal(t, 97000.0, got.Pairs[1].Rate)

	last, err := c.LastUpdated(ctx)
	require.NoError(t, err)
	assert.True(t, fetched.Equal(last))
}
