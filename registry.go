package dbenv

import (
	"context"

	"github.com/giantswarm/dbenv/internal/core"
)

// Registry tracks started environments. When its last environment stops
// cleanly (Stop or a signal, not a failed Start or a panic), the remaining
// scratch directories are swept and the registry's exit function runs with
// code 0.
//
// Environments use DefaultRegistry unless given one with WithRegistry.
type Registry struct {
	reg *core.Registry
}

var defaultRegistry = &Registry{reg: core.DefaultRegistry()}

// DefaultRegistry returns the process-wide registry. Its exit function is
// os.Exit.
func DefaultRegistry() *Registry { return defaultRegistry }

// NewRegistry creates an empty registry that calls exit when its last
// environment stops. A nil exit uses os.Exit; pass a no-op to keep the
// process alive, for example inside a test binary that owns its own exit.
func NewRegistry(exit func(code int)) *Registry {
	return &Registry{reg: core.NewRegistry(exit)}
}

// Len returns the number of started environments.
func (r *Registry) Len() int { return r.reg.Len() }

// StopAll stops every registered environment in parallel and returns the
// first failure. The last stop triggers the exit function.
func (r *Registry) StopAll(ctx context.Context) error { return r.reg.StopAll(ctx) }
