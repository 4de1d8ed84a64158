package runtime

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the small scrape surface a host process can expose for a
// Runtime. Exposing a prometheus.Registerer is a library-level hook,
// not a network server, so it does not conflict with spec.md §1's
// networking-front-end Non-goal.
type Metrics struct {
	VMStepsTotal prometheus.Counter
	StmtActive   prometheus.Gauge
}

// NewMetrics constructs and registers the metrics surface on reg. Pass
// prometheus.NewRegistry() for an isolated test registry, or
// prometheus.DefaultRegisterer to expose on the process-wide endpoint.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		VMStepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vm_steps_total",
			Help: "Step calls made on SQL statements.",
		}),
		StmtActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stmt_active",
			Help: "Prepared statements currently in RUN state.",
		}),
	}
	reg.MustRegister(m.VMStepsTotal, m.StmtActive)
	return m
}
