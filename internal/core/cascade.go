package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// StopCause records why an instance stopped.
type StopCause int

const (
	// CauseExplicit is a Stop call by the user.
	CauseExplicit StopCause = iota
	// CauseSignal is SIGINT or SIGTERM delivered to the process.
	CauseSignal
	// CauseFailure is teardown after a failed start.
	CauseFailure
	// CausePanic is teardown triggered by a recovered panic.
	CausePanic
)

// String returns the cause name used in logs.
func (c StopCause) String() string {
	switch c {
	case CauseExplicit:
		return "explicit"
	case CauseSignal:
		return "signal"
	case CauseFailure:
		return "failure"
	case CausePanic:
		return "panic"
	default:
		return fmt.Sprintf("StopCause(%d)", int(c))
	}
}

// StopEvent is delivered down the cascade once an instance has stopped.
type StopEvent struct {
	InstanceID string
	Cause      StopCause
	// ScratchDir is the instance's scratch directory, or "" if it never
	// created one.
	ScratchDir string
}

// Observer receives stop events.
type Observer interface {
	Update(ctx context.Context, ev StopEvent) error
}

// Notifier fans a stop event out to its observers sequentially, in the
// order they were added. The zero value is ready to use.
type Notifier struct {
	mu        sync.Mutex
	observers []Observer
}

// Add subscribes o. Adding an observer twice has no effect.
func (n *Notifier) Add(o Observer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if slices.Contains(n.observers, o) {
		return
	}
	n.observers = append(n.observers, o)
}

// Remove unsubscribes o and reports whether it was subscribed.
func (n *Notifier) Remove(o Observer) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	i := slices.Index(n.observers, o)
	if i < 0 {
		return false
	}
	n.observers = slices.Delete(n.observers, i, i+1)
	return true
}

// Len returns the number of observers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.observers)
}

// Notify calls every observer's Update in subscription order. A failing
// observer does not stop the rest; all errors are joined.
func (n *Notifier) Notify(ctx context.Context, ev StopEvent) error {
	n.mu.Lock()
	observers := slices.Clone(n.observers)
	n.mu.Unlock()

	var errs []error
	for _, o := range observers {
		if err := o.Update(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
