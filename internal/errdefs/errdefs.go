package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

// Compile-time check that Error implements the error interface.
var _ error = Error("")

// Error is an immutable error type backed by a string constant.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

const (
	// ErrRuntime marks failures of a container runtime subprocess.
	ErrRuntime = Error("container runtime failure")

	// ErrIO marks failures creating, materializing or removing scratch files.
	ErrIO = Error("scratch file operation failed")

	// ErrReadinessTimeout is returned when a backend never accepted a
	// connection within its attempt budget.
	ErrReadinessTimeout = Error("database did not become ready")

	// ErrConfiguration marks an unsupported backend kind or a missing option.
	ErrConfiguration = Error("invalid configuration")
)

// RuntimeError describes a container runtime subprocess that exited with a
// non-zero status or could not be started at all (ExitCode -1).
type RuntimeError struct {
	Op       string
	ExitCode int
	Stderr   string
	Err      error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: exit code %d", e.Op, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString(": ")
		b.WriteString(lastLine(s))
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying process error.
func (e *RuntimeError) Unwrap() error { return e.Err }

// Is reports whether target is the ErrRuntime category.
func (e *RuntimeError) Is(target error) bool { return target == ErrRuntime }

// ExitCode extracts the runtime exit code from err. The second result is
// false when err carries no RuntimeError.
func ExitCode(err error) (int, bool) {
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		return rerr.ExitCode, true
	}
	return 0, false
}

// IOError wraps err with the operation and path and tags it with ErrIO.
// It returns nil when err is nil.
func IOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &ioError{op: op, path: path, err: err}
}

type ioError struct {
	op   string
	path string
	err  error
}

func (e *ioError) Error() string        { return e.op + " " + e.path + ": " + e.err.Error() }
func (e *ioError) Unwrap() error        { return e.err }
func (e *ioError) Is(target error) bool { return target == ErrIO }

// Configuration tags a formatted message with ErrConfiguration.
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// lastLine returns the last non-empty line of s. Compose tools print
// progress noise before the actual error, which is almost always last.
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return s
}
