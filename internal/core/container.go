package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giantswarm/dbenv/internal/errdefs"
	"github.com/giantswarm/dbenv/internal/netutil"
	"github.com/giantswarm/dbenv/internal/readiness"
	"github.com/giantswarm/dbenv/internal/template"
)

// ErrNotRunning is returned by operations that need a running container.
const ErrNotRunning = errdefs.Error("database container is not running")

// Runtime is the container runtime driver. compose.Driver implements it.
type Runtime interface {
	Pull(ctx context.Context, descriptor, project string) error
	Up(ctx context.Context, descriptor, project string) error
	Down(ctx context.Context, descriptor, project string) error
	Status(ctx context.Context, container string) (string, error)
	Logs(ctx context.Context, container string, lines int) (string, error)
}

// State is a ContainerManager lifecycle state.
type State int32

const (
	StateIdle State = iota
	StatePreparing
	StateStarting
	StateRunning
	StateStopping
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ContainerHandle identifies the container of one start.
type ContainerHandle struct {
	Project        string
	DescriptorPath string
	ScratchDir     string
	ContainerName  string
	NetworkName    string
	Port           int
	// Up is set once the runtime accepted the up command, meaning there may
	// be runtime resources to remove.
	Up bool
}

// ContainerManager owns one database container. Start and Stop are
// serialized by mu; the handle and state are published atomically so
// accessors never wait on a start in progress.
type ContainerManager struct {
	id         string
	cfg        InstanceConfig
	runtime    Runtime
	scratch    *template.Processor
	ports      *netutil.PortRegistry
	prober     readiness.Prober
	classifier *Classifier
	log        *slog.Logger

	// notifier receives the stop event after every stop or failed start.
	notifier Notifier

	mu     sync.Mutex
	state  atomic.Int32
	handle atomic.Pointer[ContainerHandle]
}

// ContainerManagerParams holds the collaborators of a ContainerManager.
// All fields are required.
type ContainerManagerParams struct {
	ID      string
	Config  InstanceConfig
	Runtime Runtime
	Scratch *template.Processor
	Ports   *netutil.PortRegistry
	Prober  readiness.Prober
	Logger  *slog.Logger
}

// NewContainerManager creates an idle manager. It panics on missing
// collaborators or invalid configuration.
func NewContainerManager(p ContainerManagerParams) *ContainerManager {
	switch {
	case p.ID == "":
		panic("dbenv: container manager id must not be empty")
	case p.Runtime == nil:
		panic("dbenv: container runtime must not be nil")
	case p.Scratch == nil:
		panic("dbenv: template processor must not be nil")
	case p.Ports == nil:
		panic("dbenv: port registry must not be nil")
	case p.Prober == nil:
		panic("dbenv: readiness prober must not be nil")
	}
	if err := p.Config.Validate(); err != nil {
		panic(fmt.Sprintf("dbenv: invalid instance config: %v", err))
	}
	log := p.Logger
	if log == nil {
		log = Logger()
	}
	return &ContainerManager{
		id:         p.ID,
		cfg:        p.Config,
		runtime:    p.Runtime,
		scratch:    p.Scratch,
		ports:      p.Ports,
		prober:     p.Prober,
		classifier: NewClassifier(log),
		log:        log,
	}
}

// State returns the current lifecycle state.
func (m *ContainerManager) State() State { return State(m.state.Load()) }

func (m *ContainerManager) setState(s State) {
	old := State(m.state.Swap(int32(s)))
	if old != s {
		m.log.Debug("state transition", "from", old.String(), "to", s.String())
	}
}

// IsRunning reports whether the container is up and passed readiness.
func (m *ContainerManager) IsRunning() bool { return m.State() == StateRunning }

// Handle returns the current container handle, or false when the manager
// holds no container.
func (m *ContainerManager) Handle() (ContainerHandle, bool) {
	h := m.handle.Load()
	if h == nil {
		return ContainerHandle{}, false
	}
	return *h, true
}

// Subscribe adds o to the observers notified after each stop.
func (m *ContainerManager) Subscribe(o Observer) { m.notifier.Add(o) }

// Unsubscribe removes o from the observers.
func (m *ContainerManager) Unsubscribe(o Observer) bool { return m.notifier.Remove(o) }

// Start prepares the scratch directory, pulls and starts the container and
// waits for the database to accept connections. Starting a running manager
// is a no-op.
//
// Any failure tears down whatever was created, notifies observers with
// CauseFailure and returns one error naming the failed phase.
func (m *ContainerManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == StateRunning {
		return nil
	}

	startTime := time.Now()
	kind := m.cfg.Kind
	m.setState(StatePreparing)
	m.log.Info("starting database container")

	port, err := m.acquirePort()
	if err != nil {
		return m.fail(ctx, err, "allocate port")
	}
	h := &ContainerHandle{Port: port, NetworkName: template.NewNetworkName(kind)}
	m.handle.Store(h)

	s, err := m.scratch.Prepare(kind, template.Values{
		Credentials: m.cfg.Credentials,
		Port:        port,
		NetworkName: h.NetworkName,
	})
	if err != nil {
		return m.fail(ctx, err, "prepare scratch dir")
	}
	h = m.updateHandle(func(h *ContainerHandle) {
		h.ScratchDir = s.Dir
		h.DescriptorPath = s.DescriptorPath
		h.Project = filepath.Base(s.Dir)
	})

	desc, err := template.ParseDescriptor(s.DescriptorPath)
	if err != nil {
		return m.fail(ctx, err, "parse descriptor")
	}
	containerName, err := desc.ContainerName(h.Project, kind.Service())
	if err != nil {
		return m.fail(ctx, err, "parse descriptor")
	}
	h = m.updateHandle(func(h *ContainerHandle) { h.ContainerName = containerName })
	log := m.log.With("container", containerName, "port", port)

	m.setState(StateStarting)
	log.Debug("pulling images")
	if err := m.runtime.Pull(ctx, h.DescriptorPath, h.Project); err != nil {
		return m.fail(ctx, err, "pull images")
	}
	// A failed up may still leave a network or container behind.
	m.updateHandle(func(h *ContainerHandle) { h.Up = true })
	if err := m.runtime.Up(ctx, h.DescriptorPath, h.Project); err != nil {
		return m.fail(ctx, err, "start container")
	}

	dsn, err := kind.ConnectionString(m.cfg.Host, port, m.cfg.Credentials)
	if err != nil {
		return m.fail(ctx, err, "build connection string")
	}
	if err := readiness.WaitUntilReady(ctx, readiness.Config{
		MaxAttempts: m.cfg.ReadinessAttempts,
		Interval:    m.cfg.ReadinessInterval,
		Name:        containerName,
		Logger:      log,
	}, dsn, m.prober); err != nil {
		return m.fail(ctx, err, "wait for database")
	}

	m.setState(StateRunning)
	log.Info("database container ready", "elapsed", time.Since(startTime))
	return nil
}

// Stop removes the container and notifies observers with cause. Stopping a
// manager that holds no container only notifies. A failed down is logged and
// returned, but the rest of the teardown still runs.
func (m *ContainerManager) Stop(ctx context.Context, cause StopCause) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx, cause)
}

// fail routes a start failure through the classifier with a teardown that
// leaves the manager idle.
func (m *ContainerManager) fail(ctx context.Context, err error, phase string) error {
	msg := fmt.Sprintf("start %s container: %s", m.cfg.Kind, phase)
	return m.classifier.HandleError(ctx, err, msg, func(ctx context.Context) error {
		return m.stopLocked(ctx, CauseFailure)
	})
}

func (m *ContainerManager) stopLocked(ctx context.Context, cause StopCause) error {
	// Teardown must run even when the caller's context is already done.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.effectiveStopTimeout(ctx))
	defer cancel()

	h := m.handle.Load()
	if h == nil {
		m.setState(StateIdle)
		return m.notify(ctx, StopEvent{InstanceID: m.id, Cause: cause})
	}

	m.setState(StateStopping)
	m.log.Info("stopping database container", "cause", cause.String(), "container", h.ContainerName)

	var downErr error
	if h.Up {
		if err := m.runtime.Down(ctx, h.DescriptorPath, h.Project); err != nil {
			downErr = m.classifier.HandleError(ctx, err, fmt.Sprintf("remove %s container", m.cfg.Kind), nil)
		}
	}

	if h.Port != 0 {
		m.ports.Release(h.Port)
	}
	m.handle.Store(nil)
	m.setState(StateIdle)

	notifyErr := m.notify(ctx, StopEvent{InstanceID: m.id, Cause: cause, ScratchDir: h.ScratchDir})
	if downErr == nil && notifyErr == nil {
		m.log.Info("database container stopped", "cause", cause.String())
	}
	return errors.Join(downErr, notifyErr)
}

func (m *ContainerManager) notify(ctx context.Context, ev StopEvent) error {
	if err := m.notifier.Notify(ctx, ev); err != nil {
		return fmt.Errorf("notify stop observers: %w", err)
	}
	return nil
}

// effectiveStopTimeout returns the smaller of the configured stop timeout
// and the time left on ctx, but never less than the configured timeout when
// ctx is already done, since teardown must still run.
func (m *ContainerManager) effectiveStopTimeout(ctx context.Context) time.Duration {
	timeout := m.cfg.StopTimeout
	if ctx.Err() != nil {
		return timeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

func (m *ContainerManager) acquirePort() (int, error) {
	if m.cfg.Port != 0 {
		if err := m.ports.Reserve(m.cfg.Port); err != nil {
			return 0, err
		}
		return m.cfg.Port, nil
	}
	return m.ports.Allocate()
}

// updateHandle publishes a modified copy of the current handle.
func (m *ContainerManager) updateHandle(fn func(h *ContainerHandle)) *ContainerHandle {
	next := *m.handle.Load()
	fn(&next)
	m.handle.Store(&next)
	return &next
}

// Status returns the runtime's status line for the container.
func (m *ContainerManager) Status(ctx context.Context) (string, error) {
	h, ok := m.Handle()
	if !ok || h.ContainerName == "" {
		return "", ErrNotRunning
	}
	return m.runtime.Status(ctx, h.ContainerName)
}

// Logs returns the last lines of the container's output.
func (m *ContainerManager) Logs(ctx context.Context, lines int) (string, error) {
	h, ok := m.Handle()
	if !ok || h.ContainerName == "" {
		return "", ErrNotRunning
	}
	return m.runtime.Logs(ctx, h.ContainerName, lines)
}

// ConnectionString returns the connection URL of the running database.
func (m *ContainerManager) ConnectionString() (string, error) {
	h, ok := m.Handle()
	if !ok || m.State() != StateRunning {
		return "", ErrNotRunning
	}
	return m.cfg.Kind.ConnectionString(m.cfg.Host, h.Port, m.cfg.Credentials)
}
