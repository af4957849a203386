package core

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry tracks the environments of a process. When the last environment
// deregisters after a clean stop, the registry's exit function is called
// with code 0.
type Registry struct {
	exit func(code int)

	mu        sync.Mutex
	instances []*Environment
}

// NewRegistry creates an empty registry. A nil exit uses os.Exit.
func NewRegistry(exit func(code int)) *Registry {
	if exit == nil {
		exit = os.Exit
	}
	return &Registry{exit: exit}
}

var defaultRegistry = NewRegistry(nil)

// DefaultRegistry returns the registry shared by environments that are not
// given one explicitly.
func DefaultRegistry() *Registry { return defaultRegistry }

// Add registers e and reports whether it was newly added. Registration is
// by identity; adding the same environment twice has no effect.
func (r *Registry) Add(e *Environment) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.instances, e) {
		return false
	}
	r.instances = append(r.instances, e)
	return true
}

// Remove deregisters e. It reports whether e was registered and how many
// environments remain, both observed atomically, so exactly one Remove call
// sees the transition to zero.
func (r *Registry) Remove(e *Environment) (removed bool, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.instances, e)
	if i < 0 {
		return false, len(r.instances)
	}
	r.instances = slices.Delete(r.instances, i, i+1)
	return true, len(r.instances)
}

// Index returns the position of e, or -1 if it is not registered.
func (r *Registry) Index(e *Environment) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Index(r.instances, e)
}

// Instances returns a snapshot of the registered environments in
// registration order.
func (r *Registry) Instances() []*Environment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.instances)
}

// Len returns the number of registered environments.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// StopAll stops every registered environment in parallel and waits for all
// of them. It returns the first failure.
//
// The last stop deregisters the last environment, which triggers the exit
// function.
func (r *Registry) StopAll(ctx context.Context) error {
	var g errgroup.Group
	for _, e := range r.Instances() {
		g.Go(func() error {
			if err := e.Stop(ctx); err != nil {
				return fmt.Errorf("stop environment %s: %w", e.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
