package analytics

import (
	"github.com/prometheus/client_golang/prometheus"

	"leaderbot/core"
	"leaderbot/engine"
)

const namespace = "leaderbot"

var _ engine.Observer = (*Collector)(nil)

// Collector exposes leaderboard activity and storage health as Prometheus
// metrics. It is both an event Hook and the Service's storage Observer.
type Collector struct {
	awards             prometheus.Counter
	points             *prometheus.CounterVec
	resets             prometheus.Counter
	cooldownRejections prometheus.Counter
	storageErrors      *prometheus.CounterVec
	storageDuration    *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		awards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "awards_total",
			Help:      "Successful awards.",
		}),
		points: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_awarded_total",
			Help:      "Absolute points moved by awards, split by direction.",
		}, []string{"direction"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Successful leaderboard resets.",
		}),
		cooldownRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cooldown_rejections_total",
			Help:      "Leaderboard requests rejected by the cooldown.",
		}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Failed storage operations by operation.",
		}, []string{"op"}),
		storageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_op_duration_seconds",
			Help:      "Storage operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	for _, m := range []prometheus.Collector{
		c.awards, c.points, c.resets, c.cooldownRejections, c.storageErrors, c.storageDuration,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) OnEvent(e core.Event) {
	switch e.Type {
	case core.EventAwarded:
		c.awards.Inc()
		if e.Delta >= 0 {
			c.points.WithLabelValues("awarded").Add(float64(e.Delta))
		} else {
			c.points.WithLabelValues("deducted").Add(-float64(e.Delta))
		}
	case core.EventReset:
		c.resets.Inc()
	case core.EventCooldownRejected:
		c.cooldownRejections.Inc()
	}
}

func (c *Collector) ObserveStorage(op string, seconds float64, err error) {
	c.storageDuration.WithLabelValues(op).Observe(seconds)
	if err != nil {
		c.storageErrors.WithLabelValues(op).Inc()
	}
}
