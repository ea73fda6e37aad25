package sdk

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "leaderbot/adapters/memory"
	"leaderbot/api/httpapi"
	"leaderbot/cooldown"
	"leaderbot/core"
	"leaderbot/engine"
	"leaderbot/realtime"
)

const modRole = "1088359970527002624"

var mods = []string{modRole}

type testServer struct {
	*httptest.Server
	hub *realtime.Hub
}

// newTestServer runs the real HTTP surface over an in-memory store.
func newTestServer(t *testing.T, opts httpapi.Options) *testServer {
	t.Helper()
	hub := realtime.NewHub()
	bus := engine.NewEventBus(engine.DispatchSync)
	bus.SubscribeAll(hub.Broadcast)
	svc := engine.NewService(mem.New(), bus, engine.Options{
		RequiredRole: 1088359970527002624,
		Cooldowns:    cooldown.New(clockwork.NewFakeClock(), 15*time.Second, 1),
	})
	if opts.PathPrefix == "" {
		opts.PathPrefix = "/api"
	}
	srv := httptest.NewServer(httpapi.NewMux(svc, hub, opts))
	t.Cleanup(func() {
		srv.Close()
		svc.Close()
	})
	return &testServer{Server: srv, hub: hub}
}

func TestClient_AwardLeaderboardPositionReset(t *testing.T) {
	srv := newTestServer(t, httpapi.Options{APIKeys: []string{"k1"}})

	client, err := NewClient(srv.URL+"/api", WithAPIKey("k1"))
	require.NoError(t, err)
	ctx := context.Background()

	res, err := client.Award(ctx, "42", 10, mods)
	require.NoError(t, err)
	assert.Equal(t, "42", res.ActorID)
	assert.Equal(t, int64(10), res.Points)
	assert.Equal(t, 1, res.Position)
	assert.Equal(t, "<@42> has been awarded 10 points.", res.Message.Text)

	_, err = client.Award(ctx, "7", 15, mods)
	require.NoError(t, err)

	lb, err := client.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, []RankedEntry{
		{Position: 1, ActorID: "7", Points: 15, Wins: 1},
		{Position: 2, ActorID: "42", Points: 10, Wins: 1},
	}, lb.Entries)

	rk, err := client.Position(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, 2, rk.Position)

	msg, err := client.Reset(ctx, mods)
	require.NoError(t, err)
	assert.Equal(t, "The leaderboard has been reset.", msg.Text)

	_, err = client.Position(ctx, "42")
	assert.ErrorIs(t, err, core.ErrNotFound)

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
}

func TestClient_Errors(t *testing.T) {
	srv := newTestServer(t, httpapi.Options{})
	client, err := NewClient(srv.URL + "/api/")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Award(ctx, "42", 10, nil)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 403, apiErr.StatusCode)
	assert.Equal(t, "Permission Denied", apiErr.Details.Title)

	_, err = client.Reset(ctx, []string{"1"})
	assert.ErrorIs(t, err, core.ErrPermissionDenied)

	_, err = client.Award(ctx, "", 10, mods)
	assert.ErrorIs(t, err, ErrEmptyActorID)

	_, err = client.Award(ctx, "1", 9223372036854775807, mods)
	require.NoError(t, err)
	_, err = client.Award(ctx, "1", 1, mods)
	assert.ErrorIs(t, err, core.ErrOverflow)

	unauth, err := NewClient(newTestServer(t, httpapi.Options{APIKeys: []string{"k"}}).URL + "/api")
	require.NoError(t, err)
	_, err = unauth.Leaderboard(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "unauthorized", apiErr.Code)
}

func TestClient_Cooldown(t *testing.T) {
	srv := newTestServer(t, httpapi.Options{})
	client, err := NewClient(srv.URL + "/api")
	require.NoError(t, err)
	ctx := context.Background()

	res, err := client.Cooldown(ctx, "guild:leaderboard")
	require.NoError(t, err)
	assert.True(t, res.Acquired)

	res, err = client.Cooldown(ctx, "guild:leaderboard")
	require.NoError(t, err)
	assert.False(t, res.Acquired)
	assert.Equal(t, 15*time.Second, res.RetryAfter())
	assert.Equal(t, 15, res.Countdown)
}

func TestClient_SubscribeEvents(t *testing.T) {
	srv := newTestServer(t, httpapi.Options{})

	client, err := NewClient(srv.URL + "/api")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := client.SubscribeEvents(ctx, core.EventAwarded)
	require.NoError(t, err)

	for srv.hub.Len() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("timed out waiting for subscription")
		case <-time.After(5 * time.Millisecond):
		}
	}

	_, err = client.Award(ctx, "42", 10, mods)
	require.NoError(t, err)

	select {
	case evt := <-events:
		assert.Equal(t, core.EventAwarded, evt.Type)
		assert.Equal(t, core.ActorID(42), evt.ActorID)
		assert.Equal(t, 1, evt.Position)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}

	cancel()
	for range events {
	}
}

func TestDeriveWSURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/api/ws", deriveWSURL("http://localhost:8080/api"))
	assert.Equal(t, "wss://bot.example.com/ws", deriveWSURL("https://bot.example.com"))
}
