package portfolio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/chainsafe/confidential-wallet/pkg/pgutil"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Account:     "0x00000000000000000000000000000000000000aa",
		Holdings:    []Holding{{Address: "0xa1", Symbol: "USDC", Balance: "1", PriceUSD: "1", ValueUSD: "1.00"}},
		TotalUSD:    "1.00",
		LastUpdated: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", sampleSnapshot()))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "1.00", got.TotalUSD)

	got.Holdings[0].Symbol = "MUTATED"
	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "USDC", again.Holdings[0].Symbol)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", sampleSnapshot()))
	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrCacheMiss)
}

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	pgutil.RequireDockerAccess(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%d", host, port.Int())})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisCache(t *testing.T) {
	client := setupRedis(t)
	c := NewRedisCache(client, "test", time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", sampleSnapshot()))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), got)

	ttl, err := client.TTL(ctx, "test:k").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrCacheMiss)
}
