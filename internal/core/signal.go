package core

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// shutdownSignals are the signals that trigger a graceful shutdown.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SignalGuard is a process-wide table of shutdown handlers keyed by
// instance ID. The OS signals are subscribed while at least one handler is
// installed and released when the last one is removed, so a process with no
// live instances keeps the default signal behavior.
//
// A delivered signal fires every installed handler once; each handler is
// removed from the table before it runs.
type SignalGuard struct {
	notify func(c chan<- os.Signal, sig ...os.Signal)
	stop   func(c chan<- os.Signal)

	mu       sync.Mutex
	handlers map[string]func()
	ch       chan os.Signal
	done     chan struct{}
}

// NewSignalGuard returns a guard subscribed through os/signal.
func NewSignalGuard() *SignalGuard {
	return newSignalGuard(signal.Notify, signal.Stop)
}

func newSignalGuard(notify func(chan<- os.Signal, ...os.Signal), stop func(chan<- os.Signal)) *SignalGuard {
	return &SignalGuard{
		notify:   notify,
		stop:     stop,
		handlers: make(map[string]func()),
	}
}

var defaultSignalGuard = NewSignalGuard()

// DefaultSignalGuard returns the guard shared by environments that are not
// given one explicitly.
func DefaultSignalGuard() *SignalGuard { return defaultSignalGuard }

// Install registers fn for id, replacing any handler already installed for
// it. Installing the first handler subscribes to the OS signals.
func (g *SignalGuard) Install(id string, fn func()) {
	if fn == nil {
		panic("dbenv: signal handler must not be nil")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.handlers[id] = fn
	if g.ch != nil {
		return
	}
	g.ch = make(chan os.Signal, 1)
	g.done = make(chan struct{})
	g.notify(g.ch, shutdownSignals...)
	go g.loop(g.ch, g.done)
}

// Remove deletes the handler for id. Removing an unknown id is a no-op.
// Removing the last handler unsubscribes from the OS signals.
func (g *SignalGuard) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.handlers, id)
	g.releaseIfEmptyLocked()
}

// Installed reports whether a handler is installed for id.
func (g *SignalGuard) Installed(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.handlers[id]
	return ok
}

// Len returns the number of installed handlers.
func (g *SignalGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.handlers)
}

// Subscribed reports whether the guard currently holds the OS signals.
func (g *SignalGuard) Subscribed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ch != nil
}

// Fire removes and runs the handler for id, reporting whether one was
// installed.
func (g *SignalGuard) Fire(id string) bool {
	g.mu.Lock()
	fn, ok := g.handlers[id]
	delete(g.handlers, id)
	g.releaseIfEmptyLocked()
	g.mu.Unlock()

	if ok {
		fn()
	}
	return ok
}

func (g *SignalGuard) releaseIfEmptyLocked() {
	if len(g.handlers) > 0 || g.ch == nil {
		return
	}
	g.stop(g.ch)
	close(g.done)
	g.ch = nil
	g.done = nil
}

func (g *SignalGuard) loop(ch <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case sig := <-ch:
			Logger().Info("received signal, shutting down environments", "signal", sig.String())
			g.dispatch()
		case <-done:
			return
		}
	}
}

// dispatch empties the table and runs every handler concurrently, returning
// once all of them have finished.
func (g *SignalGuard) dispatch() {
	g.mu.Lock()
	fns := make([]func(), 0, len(g.handlers))
	for id, fn := range g.handlers {
		fns = append(fns, fn)
		delete(g.handlers, id)
	}
	g.releaseIfEmptyLocked()
	g.mu.Unlock()

	var wg sync.WaitGroup
	for _, fn := range fns {
		wg.Go(fn)
	}
	wg.Wait()
}
