package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector gathers the platform's operational metrics. All record methods
// are nil-safe so callers can run without metrics wired.
type Collector struct {
	// Dispatch metrics
	dispatchesTotal  *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec

	// Interrupt metrics
	interruptChecksTotal *prometheus.CounterVec

	// Sync metrics
	syncReconnectsTotal *prometheus.CounterVec

	// Provider metrics
	providerPollsTotal   *prometheus.CounterVec
	providerPollDuration *prometheus.HistogramVec

	// Identity metrics
	idCollisionsTotal prometheus.Counter

	logger *zap.Logger
}

// NewCollector creates a metrics collector registered with the default
// prometheus registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.dispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Total number of generation node dispatches",
		},
		[]string{"action", "path", "status"},
	)

	c.dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Generation dispatch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	c.interruptChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interrupt_checks_total",
			Help:      "Total number of interrupt flag checks",
		},
		[]string{"kind", "result"},
	)

	c.syncReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_reconnects_total",
			Help:      "Total number of sync connection reconnect attempts",
		},
		[]string{"result"},
	)

	c.providerPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_polls_total",
			Help:      "Total number of generation provider poll calls",
		},
		[]string{"provider", "state"},
	)

	c.providerPollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_poll_duration_seconds",
			Help:      "Generation provider poll duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider"},
	)

	c.idCollisionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "id_collisions_total",
			Help:      "Total number of semantic id allocation collisions",
		},
	)

	return c
}

// RecordDispatch records one dispatch outcome. path is "atomic" or
// "fallback".
func (c *Collector) RecordDispatch(action, path, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.dispatchesTotal.WithLabelValues(action, path, status).Inc()
	c.dispatchDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordInterruptCheck records an interrupt flag check. kind is "fresh" or
// "cached".
func (c *Collector) RecordInterruptCheck(kind string, interrupted bool) {
	if c == nil {
		return
	}
	result := "clear"
	if interrupted {
		result = "interrupted"
	}
	c.interruptChecksTotal.WithLabelValues(kind, result).Inc()
}

// RecordSyncReconnect records a reconnect attempt outcome.
func (c *Collector) RecordSyncReconnect(ok bool) {
	if c == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	c.syncReconnectsTotal.WithLabelValues(result).Inc()
}

// RecordProviderPoll records a provider poll call.
func (c *Collector) RecordProviderPoll(provider, state string, duration time.Duration) {
	if c == nil {
		return
	}
	c.providerPollsTotal.WithLabelValues(provider, state).Inc()
	c.providerPollDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordIDCollision records one allocation collision retry.
func (c *Collector) RecordIDCollision() {
	if c == nil {
		return
	}
	c.idCollisionsTotal.Inc()
}
