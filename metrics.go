package dbpool

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// poolMetrics holds the Prometheus collectors for one pool.
// Collectors are only registered when Config.Registerer is set.
type poolMetrics struct {
	reg        prometheus.Registerer
	registered []prometheus.Collector

	handles          []prometheus.Collector
	handlesCreated   prometheus.Counter
	handlesDestroyed prometheus.Counter
	connectErrors    prometheus.Counter
	teardownErrors   prometheus.Counter
	queries          *prometheus.CounterVec
	queryDuration    *prometheus.HistogramVec
}

// newPoolMetrics creates the pool's collectors and registers them with reg.
// Registering two pools with the same name on one registerer fails with a
// prometheus.AlreadyRegisteredError and leaves nothing registered.
func newPoolMetrics(reg prometheus.Registerer, name string, stat func() Stat) (*poolMetrics, error) {
	labels := prometheus.Labels{"pool": name}

	m := &poolMetrics{
		reg: reg,
		handlesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dbpool_handles_created_total",
			Help:        "Handles created by the pool.",
			ConstLabels: labels,
		}),
		handlesDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dbpool_handles_destroyed_total",
			Help:        "Handles destroyed by the pool.",
			ConstLabels: labels,
		}),
		connectErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dbpool_connect_errors_total",
			Help:        "Failed lazy connects on acquired handles.",
			ConstLabels: labels,
		}),
		teardownErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dbpool_teardown_errors_total",
			Help:        "Errors swallowed while closing destroyed handles.",
			ConstLabels: labels,
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "dbpool_queries_total",
			Help:        "Executor operations by operation and outcome.",
			ConstLabels: labels,
		}, []string{"op", "outcome"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "dbpool_query_duration_seconds",
			Help:        "Executor operation latency including acquisition.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"op"}),
	}

	for _, state := range []string{"acquired", "idle", "total"} {
		m.handles = append(m.handles, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "dbpool_handles",
			Help:        "Number of handles in the pool by state.",
			ConstLabels: prometheus.Labels{"pool": name, "state": state},
		}, func() float64 {
			s := stat()
			switch state {
			case "acquired":
				return float64(s.Acquired)
			case "idle":
				return float64(s.Idle)
			default:
				return float64(s.Total)
			}
		}))
	}

	if reg == nil {
		return m, nil
	}

	collectors := append([]prometheus.Collector{
		m.handlesCreated,
		m.handlesDestroyed,
		m.connectErrors,
		m.teardownErrors,
		m.queries,
		m.queryDuration,
	}, m.handles...)
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			m.unregister()
			return nil, fmt.Errorf("failed to register metrics for pool %q: %w", name, err)
		}
		m.registered = append(m.registered, c)
	}
	return m, nil
}

// unregister removes the pool's collectors so the name can be reused.
func (m *poolMetrics) unregister() {
	for _, c := range m.registered {
		m.reg.Unregister(c)
	}
	m.registered = nil
}

func (m *poolMetrics) observe(op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
	}
	m.queries.WithLabelValues(op, outcome).Inc()
	m.queryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
