package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaderbot/core"
)

func TestCollector_OnEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.OnEvent(core.NewAwarded(core.Entry{ActorID: 42, Points: 10, Wins: 1}, 10, 1))
	c.OnEvent(core.NewAwarded(core.Entry{ActorID: 7, Points: 15, Wins: 1}, 15, 1))
	c.OnEvent(core.NewAwarded(core.Entry{ActorID: 7, Points: 12, Wins: 2}, -3, 1))
	c.OnEvent(core.NewReset())
	c.OnEvent(core.NewCooldownRejected("g:leaderboard", time.Second))

	assert.Equal(t, 3.0, testutil.ToFloat64(c.awards))
	assert.Equal(t, 25.0, testutil.ToFloat64(c.points.WithLabelValues("awarded")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.points.WithLabelValues("deducted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resets))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cooldownRejections))
}

func TestCollector_ObserveStorage(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveStorage("award", 0.01, nil)
	c.ObserveStorage("award", 0.02, errors.New("boom"))
	c.ObserveStorage("snapshot", 0.001, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.storageErrors.WithLabelValues("award")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.storageErrors.WithLabelValues("snapshot")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.storageDuration))
}

func TestCollector_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)
	_, err = NewCollector(reg)
	assert.Error(t, err)
}

func TestActiveActors(t *testing.T) {
	a := NewActiveActors()
	day := time.Now().UTC().Format("2006-01-02")

	a.OnEvent(core.NewAwarded(core.Entry{ActorID: 1}, 1, 1))
	a.OnEvent(core.NewAwarded(core.Entry{ActorID: 1}, 1, 1))
	a.OnEvent(core.NewAwarded(core.Entry{ActorID: 2}, 1, 2))
	a.OnEvent(core.NewReset())

	assert.Equal(t, 2, a.Count(day))
	assert.Equal(t, 0, a.Count("1999-01-01"))

	a.Prune(time.Now().Add(48 * time.Hour))
	assert.Equal(t, 0, a.Count(day))
}

func TestBridgeHook(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	active := NewActiveActors()

	bridge := NewBridge(c, active)
	bridge.Handle(context.Background(), core.NewAwarded(core.Entry{ActorID: 9, Points: 4, Wins: 1}, 4, 1))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.awards))
	assert.Equal(t, 1, active.Count(time.Now().UTC().Format("2006-01-02")))
}

func BenchmarkCollector(b *testing.B) {
	c, err := NewCollector(prometheus.NewRegistry())
	if err != nil {
		b.Fatal(err)
	}
	ev := core.NewAwarded(core.Entry{ActorID: 1, Points: 1, Wins: 1}, 1, 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.OnEvent(ev)
	}
}
