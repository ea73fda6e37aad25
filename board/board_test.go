package board

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	mem "leaderbot/adapters/memory"
	"leaderbot/analytics"
	"leaderbot/core"
	"leaderbot/engine"
	"leaderbot/integrations/webhook"
	"leaderbot/realtime"
)

const modRole core.RoleID = 1088359970527002624

func TestNewDefaultsAndOptions(t *testing.T) {
	hub := realtime.NewHub()
	_, ch := hub.Subscribe(4)

	reg := prometheus.NewRegistry()
	collector, err := analytics.NewCollector(reg)
	if err != nil {
		t.Fatalf("collector: %v", err)
	}
	active := analytics.NewActiveActors()

	var hooks int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hooks, 1)
	}))
	defer srv.Close()

	svc := New(
		WithRealtime(hub),
		WithStorage(mem.New()),
		WithDispatchMode(engine.DispatchSync),
		WithRequiredRole(modRole),
		WithOpTimeout(time.Second),
		WithMetrics(collector),
		WithHooks(active),
		WithWebhook(webhook.New([]string{srv.URL})),
	)
	defer svc.Close()

	res, err := svc.Award(context.Background(), 42, 10, core.NewRoleSet(modRole))
	if err != nil || res.Position != 1 {
		t.Fatalf("award res=%+v err=%v", res, err)
	}

	// realtime bridge should receive event
	ev := <-ch
	if ev.ActorID != 42 || ev.Type != core.EventAwarded {
		t.Fatalf("unexpected event: %+v", ev)
	}
	expected := `
# HELP leaderbot_awards_total Successful awards.
# TYPE leaderbot_awards_total counter
leaderbot_awards_total 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "leaderbot_awards_total"); err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if atomic.LoadInt32(&hooks) != 1 {
		t.Fatalf("expected 1 webhook call, got %d", hooks)
	}
	if active.Count(time.Now().UTC().Format("2006-01-02")) != 1 {
		t.Fatal("expected active actor recorded")
	}
}

func TestInMemoryFallback(t *testing.T) {
	svc := New(WithRequiredRole(modRole))
	defer svc.Close()

	if _, err := svc.Award(context.Background(), 7, 3, core.NewRoleSet(modRole)); err != nil {
		t.Fatalf("fallback award: %v", err)
	}
	rk, err := svc.Position(context.Background(), 7)
	if err != nil {
		t.Fatalf("fallback position: %v", err)
	}
	if rk.Entry.Points != 3 {
		t.Fatalf("expected 3 points, got %d", rk.Entry.Points)
	}
}
