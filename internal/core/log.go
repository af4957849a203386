package core

import (
	"log/slog"
	"sync/atomic"
)

// logger is the package-level logger. A nil value means SetLogger has not
// been called and Logger falls back to a cached default.
var logger atomic.Pointer[slog.Logger]

// defaultLogger caches slog.Default() with the dbenv component attribute.
// SetLogger(nil) clears it so a later slog.SetDefault is picked up.
var defaultLogger atomic.Pointer[slog.Logger]

// Logger returns the package-level logger. It is safe to call from multiple
// goroutines.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := slog.Default().With("component", "dbenv")
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	if l2 := defaultLogger.Load(); l2 != nil {
		return l2
	}
	return l
}

// SetLogger replaces the package-level logger. A nil l restores the default
// derived from slog.Default().
//
// Environments capture the logger when they are created; SetLogger does not
// affect existing ones.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	defaultLogger.Store(nil)
}
