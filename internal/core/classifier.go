package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/giantswarm/dbenv/internal/errdefs"
)

// exitReasons maps runtime exit codes to human-readable explanations.
var exitReasons = map[int]string{
	0:   "Container stopped - no tasks left to perform.",
	1:   "Container runtime daemon not running or container already exists.",
	137: "Container terminated - manual stop or out of memory.",
	139: "Container error - possible bug in the application.",
	143: "Container stopped - it received a termination signal.",
}

// ExitReason explains a runtime exit code, or returns "" for codes it does
// not know.
func ExitReason(code int) string {
	return exitReasons[code]
}

// Classifier turns a lifecycle failure into a logged, categorized error and
// runs the caller's teardown.
type Classifier struct {
	log *slog.Logger
}

// NewClassifier returns a Classifier logging to log. A nil log uses
// Logger().
func NewClassifier(log *slog.Logger) *Classifier {
	if log == nil {
		log = Logger()
	}
	return &Classifier{log: log}
}

// HandleError logs err under msg with its exit-code category, runs teardown
// (whose failure is logged, not returned) and returns err wrapped with msg
// and the category.
func (c *Classifier) HandleError(ctx context.Context, err error, msg string, teardown func(context.Context) error) error {
	attrs := []any{"error", err}
	reason := ""
	if code, ok := errdefs.ExitCode(err); ok {
		reason = ExitReason(code)
		attrs = append(attrs, "exit_code", code)
		if reason != "" {
			attrs = append(attrs, "reason", reason)
		}
	}
	c.log.Error(msg, attrs...)

	if teardown != nil {
		if terr := teardown(ctx); terr != nil {
			c.log.Warn("teardown after failure did not complete", "error", terr)
		}
	}

	if reason != "" {
		return fmt.Errorf("%s (%s): %w", msg, reason, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
