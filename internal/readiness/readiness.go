package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/giantswarm/dbenv/internal/errdefs"
)

// Defaults for Config fields left at zero.
const (
	DefaultMaxAttempts = 20
	DefaultInterval    = 3 * time.Second
)

// Prober is the connectivity capability WaitUntilReady exercises. A probe
// succeeds when Connect succeeds; Disconnect is always attempted afterwards.
type Prober interface {
	Connect(ctx context.Context, dsn string) error
	Disconnect(ctx context.Context) error
}

// Config configures WaitUntilReady.
type Config struct {
	MaxAttempts int           // Zero uses DefaultMaxAttempts.
	Interval    time.Duration // Zero uses DefaultInterval.
	Name        string        // For logging, e.g. the container name.
	Logger      *slog.Logger  // Optional; defaults to slog.Default().
}

// WaitUntilReady connects and disconnects through p until a connect succeeds,
// sleeping Interval between failures. After MaxAttempts failed attempts it
// returns an error matching errdefs.ErrReadinessTimeout that also wraps the
// last connect failure. Cancelling ctx aborts the wait with ctx's error.
func WaitUntilReady(ctx context.Context, cfg Config, dsn string, p Prober) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	var (
		attempt int
		lastErr error
	)
	// Factor 0 keeps the delay constant; Steps bounds the number of
	// condition calls, so exactly `attempts` probes run.
	backoff := wait.Backoff{Duration: interval, Steps: attempts}
	err := wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		attempt++
		if err := probe(ctx, log, p, dsn); err != nil {
			lastErr = err
			if attempt < attempts {
				log.Warn("database not ready, retrying",
					"name", cfg.Name, "attempt", attempt, "max_attempts", attempts,
					"retry_in", interval, "reason", err)
			}
			return false, nil
		}
		log.Debug("database ready", "name", cfg.Name, "attempt", attempt)
		return true, nil
	})
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("wait for %s: %w", cfg.Name, ctxErr)
	}
	if wait.Interrupted(err) {
		return fmt.Errorf("%w: %s after %d attempts: %w", errdefs.ErrReadinessTimeout, cfg.Name, attempt, lastErr)
	}
	return fmt.Errorf("wait for %s: %w", cfg.Name, err)
}

func probe(ctx context.Context, log *slog.Logger, p Prober, dsn string) error {
	connectErr := p.Connect(ctx, dsn)
	if err := p.Disconnect(ctx); err != nil {
		log.Debug("disconnect after probe failed", "error", err)
	}
	return connectErr
}
