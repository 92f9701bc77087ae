package session

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startRedis spins up a throwaway Redis container and returns a connected
// client. Skips the test when Docker is unavailable.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("could not start redis container (docker unavailable?): %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	return client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewRedisStore(startRedis(t))

	rec := testRecord("refresh-1")
	rec.RefreshExpiration = time.Now().Add(time.Hour).Unix()

	require.NoError(t, store.Put(ctx, "sid-1", rec))

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.Equal(t, rec, got)

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewRedisStore(startRedis(t))

	rec := testRecord("refresh-1")
	rec.RefreshExpiration = time.Now().Add(time.Hour).Unix()
	require.NoError(t, store.Put(ctx, "sid-1", rec))

	require.NoError(t, store.Delete(ctx, "sid-1"))
	require.NoError(t, store.Delete(ctx, "sid-1"))

	_, err := store.Get(ctx, "sid-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreRotateCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := NewRedisStore(startRedis(t))

	old := testRecord("refresh-old")
	old.RefreshExpiration = time.Now().Add(time.Hour).Unix()
	require.NoError(t, store.Put(ctx, "sid-1", old))

	winner := testRecord("refresh-new")
	winner.UserID = old.UserID
	winner.RefreshExpiration = time.Now().Add(2 * time.Hour).Unix()
	require.NoError(t, store.Rotate(ctx, "sid-1", "refresh-old", winner))

	// A second rotation against the stale refresh token loses and leaves
	// the winner's record in place.
	loser := testRecord("refresh-other")
	loser.UserID = old.UserID
	loser.RefreshExpiration = winner.RefreshExpiration
	require.ErrorIs(t, store.Rotate(ctx, "sid-1", "refresh-old", loser), ErrRotationConflict)

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.Equal(t, winner, got)

	require.ErrorIs(t, store.Rotate(ctx, "missing", "refresh-old", winner), ErrNotFound)
}

func TestRedisStoreKeyExpiresWithRefreshWindow(t *testing.T) {
	ctx := context.Background()
	client := startRedis(t)
	store := NewRedisStore(client)

	rec := testRecord("refresh-1")
	rec.RefreshExpiration = time.Now().Add(time.Hour).Unix()
	require.NoError(t, store.Put(ctx, "sid-1", rec))

	ttl, err := client.TTL(ctx, "session:sid-1").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, 50*time.Minute)
	require.LessOrEqual(t, ttl, time.Hour)
}
