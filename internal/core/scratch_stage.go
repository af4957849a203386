package core

import (
	"context"
	"errors"
	"log/slog"

	"github.com/giantswarm/dbenv/internal/template"
)

// scratchStage is the template processor's link in the stop cascade. It
// removes the stopped instance's scratch directory, then forwards the event
// to its own observers whether or not removal succeeded.
type scratchStage struct {
	processor *template.Processor
	next      Notifier
	log       *slog.Logger
}

func newScratchStage(p *template.Processor, log *slog.Logger) *scratchStage {
	return &scratchStage{processor: p, log: log}
}

// Update implements Observer.
func (s *scratchStage) Update(ctx context.Context, ev StopEvent) error {
	var cleanupErr error
	if ev.ScratchDir != "" {
		removed, err := s.processor.Cleanup(ev.ScratchDir)
		if err != nil {
			s.log.Warn("failed to remove scratch dir", "dir", ev.ScratchDir, "error", err)
			cleanupErr = err
		} else if removed {
			s.log.Debug("scratch dir removed", "dir", ev.ScratchDir)
		}
	}
	return errors.Join(cleanupErr, s.next.Notify(ctx, ev))
}
