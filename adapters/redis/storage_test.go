package redis

import (
	"context"
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaderbot/adapters/storagetest"
	"leaderbot/core"
)

// newTestClient spins up a miniredis server and returns a client plus cleanup.
func newTestClient(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}
	return client, cleanup
}

func TestStore_Award(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()

	entry, err := store.Award(ctx, 42, 10)
	require.NoError(t, err)
	assert.Equal(t, core.Entry{ActorID: 42, Points: 10, Wins: 1}, entry)

	entry, err = store.Award(ctx, 42, 25)
	require.NoError(t, err)
	assert.Equal(t, core.Entry{ActorID: 42, Points: 35, Wins: 2}, entry)

	// Negative deltas subtract points but still count a win
	entry, err = store.Award(ctx, 42, -40)
	require.NoError(t, err)
	assert.Equal(t, core.Entry{ActorID: 42, Points: -5, Wins: 3}, entry)

	points, err := client.HGet(ctx, "leaderbot:points", "42").Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(-5), points)
}

func TestStore_Snapshot(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()

	entries, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = store.Award(ctx, 42, 10)
	require.NoError(t, err)
	_, err = store.Award(ctx, 7, 15)
	require.NoError(t, err)

	entries, err = store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Entry{
		{ActorID: 7, Points: 15, Wins: 1},
		{ActorID: 42, Points: 10, Wins: 1},
	}, entries)
}

func TestStore_Reset(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()

	_, err := store.Award(ctx, 1, 5)
	require.NoError(t, err)
	require.NoError(t, store.Reset(ctx))

	entries, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Reset on an empty board is fine
	require.NoError(t, store.Reset(ctx))
}

func TestStore_Award_Overflow(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, "leaderbot:points", "9", strconv.FormatInt(math.MaxInt64, 10)).Err())
	require.NoError(t, client.HSet(ctx, "leaderbot:wins", "9", "4").Err())

	_, err := store.Award(ctx, 9, 1)
	require.ErrorIs(t, err, core.ErrOverflow)

	entries, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Entry{{ActorID: 9, Points: math.MaxInt64, Wins: 4}}, entries)
}

func TestStore_Award_Concurrent(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Award(ctx, 5, 2)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Entry{{ActorID: 5, Points: 2 * n, Wins: n}}, entries)
}

func TestStore_Snapshot_Corrupt(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, "leaderbot:points", "3", "lots").Err())
	_, err := store.Snapshot(ctx)
	assert.Error(t, err)
}

func TestStore_Ping(t *testing.T) {
	client, cleanup := newTestClient(t)
	store := NewWithClient(client)
	require.NoError(t, store.Ping(context.Background()))
	cleanup()
	assert.Error(t, store.Ping(context.Background()))
}

func TestNew_KeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := DefaultConfig()
	cfg.Addr = mr.Addr()
	cfg.KeyPrefix = "guild1"

	store, err := New(cfg)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Award(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.True(t, mr.Exists("guild1:points"))
	assert.True(t, mr.Exists("guild1:wins"))
}

func TestConfig_DefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "localhost:6379", config.Addr)
	assert.Equal(t, "", config.Password)
	assert.Equal(t, 0, config.DB)
	assert.Equal(t, "leaderbot", config.KeyPrefix)
	assert.Equal(t, 10, config.PoolSize)
	assert.Equal(t, 2, config.MinIdleConns)
	assert.Equal(t, 5*time.Second, config.DialTimeout)
	assert.Equal(t, 3*time.Second, config.ReadTimeout)
	assert.Equal(t, 3*time.Second, config.WriteTimeout)
}

func TestStore_ResetRacesAwards(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	storagetest.ResetRace(t, NewWithClient(client), storagetest.RaceOptions{})
}
