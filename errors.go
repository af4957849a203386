package dbenv

import (
	"github.com/giantswarm/dbenv/internal/core"
	"github.com/giantswarm/dbenv/internal/errdefs"
	"github.com/giantswarm/dbenv/internal/netutil"
)

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrRuntime matches every failure of the container runtime: a compose
	// command that exited non-zero or could not be started. Use
	// errors.As with *RuntimeError to get the exit code.
	ErrRuntime = errdefs.ErrRuntime

	// ErrIO matches failures creating, writing or removing scratch files.
	ErrIO = errdefs.ErrIO

	// ErrReadinessTimeout is returned by Start when the database never
	// accepted a connection within the configured number of attempts.
	ErrReadinessTimeout = errdefs.ErrReadinessTimeout

	// ErrConfiguration is returned by New for an unsupported backend kind or
	// an invalid combination of options.
	ErrConfiguration = errdefs.ErrConfiguration

	// ErrNotRunning is returned by ConnectionString, Reset, Status and Logs
	// when the environment has no running container.
	ErrNotRunning = core.ErrNotRunning

	// ErrPortInUse is returned by Start when the port set with WithPort is
	// already published by another environment of this process.
	ErrPortInUse = netutil.ErrPortInUse
)

// RuntimeError describes a failed container runtime command. It matches
// ErrRuntime.
type RuntimeError = errdefs.RuntimeError

// ExitReason returns a human-readable explanation of a container runtime
// exit code, or "" when the code has no known meaning.
func ExitReason(code int) string {
	return core.ExitReason(code)
}
