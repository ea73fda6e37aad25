package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "leaderbot/adapters/memory"
	"leaderbot/api/httpapi"
	"leaderbot/cooldown"
	"leaderbot/engine"
	"leaderbot/realtime"
)

const modRole = "1088359970527002624"

func newServer(t *testing.T, window time.Duration) string {
	url, _ := newServerWithHub(t, window)
	return url
}

func newServerWithHub(t *testing.T, window time.Duration) (string, *realtime.Hub) {
	t.Helper()
	hub := realtime.NewHub()
	bus := engine.NewEventBus(engine.DispatchSync)
	bus.SubscribeAll(hub.Broadcast)
	svc := engine.NewService(mem.New(), bus, engine.Options{
		RequiredRole: 1088359970527002624,
		Cooldowns:    cooldown.New(clockwork.NewFakeClock(), window, 1),
	})
	srv := httptest.NewServer(httpapi.NewMux(svc, hub, httpapi.Options{PathPrefix: "/api"}))
	t.Cleanup(func() {
		srv.Close()
		svc.Close()
	})
	return srv.URL + "/api", hub
}

// syncBuffer lets the test read output while a command is still writing.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func run(t *testing.T, clock clockwork.Clock, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out, clock).RunContext(context.Background(), append([]string{"leaderbot"}, args...))
	return out.String(), err
}

func TestAwardAndLeaderboard(t *testing.T) {
	url := newServer(t, 15*time.Second)
	clock := clockwork.NewFakeClock()

	out, err := run(t, clock, "--server", url, "--role", modRole, "award", "<@42>", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "<@42> has been awarded 10 points.")
	assert.Contains(t, out, "Your current position in the leaderboard is #1.")

	out, err = run(t, clock, "--server", url, "leaderboard")
	require.NoError(t, err)
	assert.Contains(t, out, "#1 <@42>: 1 wins, 10 points")

	out, err = run(t, clock, "--server", url, "position", "42")
	require.NoError(t, err)
	assert.Equal(t, "#1 <@42>: 1 wins, 10 points\n", out)
}

func TestRejectedCommands(t *testing.T) {
	url := newServer(t, 15*time.Second)
	clock := clockwork.NewFakeClock()

	out, err := run(t, clock, "--server", url, "award", "42", "10")
	assert.ErrorIs(t, err, errRejected)
	assert.Contains(t, out, "You do not have the required role to use this command.")

	out, err = run(t, clock, "--server", url, "--role", "1", "reset")
	assert.ErrorIs(t, err, errRejected)
	assert.Contains(t, out, "Permission Denied")

	out, err = run(t, clock, "--server", url, "position", "7")
	assert.ErrorIs(t, err, errRejected)
	assert.Contains(t, out, "<@7> is not on the leaderboard yet.")

	out, err = run(t, clock, "--server", url, "award", "bob", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Invalid Member")

	_, err = run(t, clock, "--server", url, "award", "42", "ten")
	assert.ErrorContains(t, err, "points must be an integer")
}

func TestLeaderboardCountdown(t *testing.T) {
	url := newServer(t, 3*time.Second)
	clock := clockwork.NewFakeClock()

	_, err := run(t, clock, "--server", url, "leaderboard")
	require.NoError(t, err)

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := run(t, clock, "--server", url, "leaderboard")
		done <- result{out, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Second)
	}

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t,
			"Please wait 3.0 seconds before using the leaderboard command again.\n"+
				"Please wait `3.0` seconds before using the leaderboard command again.\n"+
				"Please wait `2.0` seconds before using the leaderboard command again.\n"+
				"Please wait `1.0` seconds before using the leaderboard command again.\n",
			res.out)
	case <-ctx.Done():
		t.Fatal("countdown did not finish")
	}
}

func TestHelp(t *testing.T) {
	out, err := run(t, clockwork.NewFakeClock(), "help", "--prefix", "!")
	require.NoError(t, err)
	assert.Contains(t, out, "!leaderboard: Display the current leaderboard. (15 seconds cooldown)")
}

func TestWatchStreamsFilteredEvents(t *testing.T) {
	url, hub := newServerWithHub(t, 15*time.Second)
	clock := clockwork.NewFakeClock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- newApp(&out, clock).RunContext(watchCtx,
			[]string{"leaderbot", "--server", url, "watch", "--type", "awarded"})
	}()

	waitFor(t, ctx, func() bool { return hub.Len() == 1 })

	_, err := run(t, clock, "--server", url, "--role", modRole, "reset")
	require.NoError(t, err)
	_, err = run(t, clock, "--server", url, "--role", modRole, "award", "42", "10")
	require.NoError(t, err)

	waitFor(t, ctx, func() bool { return strings.Contains(out.String(), "actor=42") })
	stopWatch()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("watch did not stop on cancel")
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "awarded actor=42 points=10 wins=1 position=1")
	assert.NotContains(t, out.String(), "reset")
}

func waitFor(t *testing.T, ctx context.Context, cond func() bool) {
	t.Helper()
	for !cond() {
		select {
		case <-ctx.Done():
			t.Fatal("timed out waiting for condition")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
