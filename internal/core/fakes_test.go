package core

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/giantswarm/dbenv/internal/backend"
	"github.com/giantswarm/dbenv/internal/errdefs"
	"github.com/giantswarm/dbenv/internal/netutil"
	"github.com/giantswarm/dbenv/internal/template"
)

// fakeRuntime records compose calls and fails the configured operations.
type fakeRuntime struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	up    map[string]bool // project -> running
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{fail: map[string]error{}, up: map[string]bool{}}
}

func (f *fakeRuntime) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.fail[op]
}

func (f *fakeRuntime) failWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakeRuntime) Pull(_ context.Context, descriptor, _ string) error {
	if _, err := os.Stat(descriptor); err != nil {
		return err
	}
	return f.record("pull")
}

func (f *fakeRuntime) Up(_ context.Context, _, project string) error {
	if err := f.record("up"); err != nil {
		return err
	}
	f.mu.Lock()
	f.up[project] = true
	f.mu.Unlock()
	return nil
}

func (f *fakeRuntime) Down(_ context.Context, _, project string) error {
	if err := f.record("down"); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.up, project)
	f.mu.Unlock()
	return nil
}

func (f *fakeRuntime) Status(context.Context, string) (string, error) {
	return "Up 1 second", f.record("status")
}

func (f *fakeRuntime) Logs(context.Context, string, int) (string, error) {
	return "ready for connections", f.record("logs")
}

func (f *fakeRuntime) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeRuntime) running() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.up)
}

// fakeClient is a dbclient.Client that refuses the first refusals connects.
type fakeClient struct {
	mu        sync.Mutex
	refusals  int
	connects  int
	connected bool
	resets    []string
}

func (c *fakeClient) Connect(context.Context, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	if c.connects <= c.refusals {
		return errdefs.Error("connection refused")
	}
	c.connected = true
	return nil
}

func (c *fakeClient) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *fakeClient) Reset(_ context.Context, database string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return errdefs.Error("not connected")
	}
	c.resets = append(c.resets, database)
	return nil
}

// exitRecorder replaces os.Exit.
type exitRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (r *exitRecorder) exit(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
}

func (r *exitRecorder) calls() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.codes...)
}

// fakeSignals is a SignalGuard whose OS subscription is captured so tests
// can deliver signals.
type fakeSignals struct {
	mu       sync.Mutex
	ch       chan<- os.Signal
	notifies int
	stops    int
}

func (f *fakeSignals) notify(c chan<- os.Signal, _ ...os.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch = c
	f.notifies++
}

func (f *fakeSignals) stop(chan<- os.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch = nil
	f.stops++
}

func (f *fakeSignals) deliver(t *testing.T, sig os.Signal) {
	t.Helper()
	f.mu.Lock()
	ch := f.ch
	f.mu.Unlock()
	if ch == nil {
		t.Fatal("no signal subscription to deliver to")
	}
	ch <- sig
}

func (f *fakeSignals) counts() (notifies, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notifies, f.stops
}

// harness shares the process-wide services of one test.
type harness struct {
	t        *testing.T
	base     string
	runtime  *fakeRuntime
	scratch  *template.Processor
	ports    *netutil.PortRegistry
	exits    *exitRecorder
	registry *Registry
	sigs     *fakeSignals
	guard    *SignalGuard
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	base := t.TempDir()
	scratch, err := template.NewProcessor(template.Config{BaseDir: base})
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}
	exits := &exitRecorder{}
	sigs := &fakeSignals{}
	return &harness{
		t:        t,
		base:     base,
		runtime:  newFakeRuntime(),
		scratch:  scratch,
		ports:    netutil.NewPortRegistry(nil),
		exits:    exits,
		registry: NewRegistry(exits.exit),
		sigs:     sigs,
		guard:    newSignalGuard(sigs.notify, sigs.stop),
	}
}

func (h *harness) newEnv(kind backend.Kind, client *fakeClient) *Environment {
	h.t.Helper()
	if client == nil {
		client = &fakeClient{}
	}
	return NewEnvironment(EnvironmentParams{
		Config:   validConfig(kind),
		Runtime:  h.runtime,
		Scratch:  h.scratch,
		Ports:    h.ports,
		Client:   client,
		Registry: h.registry,
		Signals:  h.guard,
	})
}

// scratchDirs lists the dbenv-* directories under the harness base.
func (h *harness) scratchDirs() []string {
	h.t.Helper()
	entries, err := os.ReadDir(h.base)
	if err != nil {
		h.t.Fatalf("read base dir: %v", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs
}
