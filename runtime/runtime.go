// Package runtime bundles the process-wide state spec.md §9's Design
// Notes insist on threading explicitly rather than keeping as globals:
// "Model both as a single runtime handle created at process start and
// threaded explicitly into every component; do not keep ambient global
// state." Runtime carries the tuple format registry, the collation
// registry, configuration, a logger, and an optional metrics surface.
package runtime

import (
	"github.com/tarandb/tarancore/keydef"
	"github.com/tarandb/tarancore/tuple"
)

// Runtime is the single handle created at process start and passed
// into every component that previously would have reached for global
// state (the teacher has no such global state to begin with; this
// package exists because spec.md's source does).
type Runtime struct {
	Config     *Config
	Logger     Logger
	Metrics    *Metrics
	Tuples     *tuple.Registry
	Collations *keydef.Registry
}

// New builds a Runtime from cfg, with a fresh tuple format registry and
// collation registry. Pass a nil Metrics to skip Prometheus
// registration entirely (e.g. in tests).
func New(cfg *Config, logger Logger, metrics *Metrics) *Runtime {
	if cfg == nil {
		cfg = Default()
	}
	if logger == nil {
		logger = NullLogger{}
	}
	return &Runtime{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Tuples:     tuple.NewRegistry(0),
		Collations: keydef.NewRegistry(),
	}
}

// Logf is the one place library-adjacent code (cmd/tarandbd) logs
// through, per SPEC_FULL.md's ambient-logging rule.
func (r *Runtime) Logf(format string, args ...any) {
	r.Logger.Printf(format, args...)
}
