package dbenv

import (
	"context"
	"testing"
)

// testRegistry holds environments started by Setup. Its exit function does
// nothing: the test binary decides when the process ends.
var testRegistry = NewRegistry(func(int) {})

// Setup creates and starts an environment for the test and stops it in
// tb.Cleanup. Creation or start failures end the test with tb.Fatalf.
//
// Environments started by Setup are registered in a registry that never
// exits the process; WithRegistry overrides that.
//
//nolint:ireturn // Returns Environment interface by design for testability (mockable).
func Setup(tb testing.TB, kind Kind, opts ...Option) Environment {
	tb.Helper()

	env, err := New(kind, append([]Option{WithRegistry(testRegistry)}, opts...)...)
	if err != nil {
		tb.Fatalf("dbenv: create %s environment: %v", kind, err)
	}
	tb.Cleanup(func() {
		if err := env.Stop(context.Background()); err != nil {
			tb.Errorf("dbenv: stop %s environment %s: %v", kind, env.ID(), err)
		}
	})
	if err := env.Start(tb.Context()); err != nil {
		tb.Fatalf("dbenv: start %s environment: %v", kind, err)
	}
	return env
}
