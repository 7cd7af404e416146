package obs

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records dispatch-cycle outcomes in Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	cycles            *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	distanceFallbacks prometheus.Counter
	optimizeDuration  prometheus.Histogram
}

// NewMetrics registers the collectors on reg. A nil registerer defaults to the
// global Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	cycles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_dispatch_cycles_total",
		Help: "Per-tenant dispatch cycles by outcome",
	}, []string{"outcome"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_dispatch_notifications_total",
		Help: "Notification sends by channel and result",
	}, []string{"channel", "result"})
	fallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "route_distance_fallbacks_total",
		Help: "Distance lookups answered with a straight-line estimate",
	})
	optimize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "route_optimize_duration_seconds",
		Help:    "Wall time of one tenant optimization",
		Buckets: prometheus.DefBuckets,
	})

	var err error
	if cycles, err = register(reg, cycles); err != nil {
		return nil, err
	}
	if notifications, err = register(reg, notifications); err != nil {
		return nil, err
	}
	if fallbacks, err = register(reg, fallbacks); err != nil {
		return nil, err
	}
	if optimize, err = register(reg, optimize); err != nil {
		return nil, err
	}

	return &Metrics{
		cycles:            cycles,
		notifications:     notifications,
		distanceFallbacks: fallbacks,
		optimizeDuration:  optimize,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) Cycle(outcome string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Notification(channel string, ok bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.notifications.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) DistanceFallback() {
	if m == nil {
		return
	}
	m.distanceFallbacks.Inc()
}

func (m *Metrics) OptimizeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.optimizeDuration.Observe(d.Seconds())
}
