package dbenv

import (
	"log/slog"

	"github.com/giantswarm/dbenv/internal/core"
)

// SetLogger replaces the package-level logger used by dbenv.
// This allows applications to integrate dbenv logging with their own
// logging infrastructure. The provided logger should already have any
// desired attributes; dbenv only adds per-environment "id" and "kind".
//
// If l is nil, the logger resets to the default: slog.Default() with
// "component" attribute, re-derived on the next use and then cached. Call
// SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// Environments capture the logger in New, so call SetLogger before creating
// them (e.g., in TestMain before m.Run).
//
// Example:
//
//	dbenv.SetLogger(myLogger.With("component", "dbenv"))
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
