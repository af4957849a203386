package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/dbenv/internal/backend"
	"github.com/giantswarm/dbenv/internal/dbclient"
	"github.com/giantswarm/dbenv/internal/netutil"
	"github.com/giantswarm/dbenv/internal/template"
)

// Environment is one disposable database: the container manager plus its
// registration, signal handler and stop cascade.
//
// Stop events flow ContainerManager -> scratch stage -> Environment.
type Environment struct {
	id       string
	cfg      InstanceConfig
	manager  *ContainerManager
	scratch  *template.Processor
	client   dbclient.Client
	registry *Registry
	signals  *SignalGuard
	log      *slog.Logger

	// stops collapses concurrent Stop calls into one shutdown sequence.
	stops singleflight.Group
}

// EnvironmentParams holds the collaborators of an Environment. ID is
// optional; every other field is required.
type EnvironmentParams struct {
	ID       string
	Config   InstanceConfig
	Runtime  Runtime
	Scratch  *template.Processor
	Ports    *netutil.PortRegistry
	Client   dbclient.Client
	Registry *Registry
	Signals  *SignalGuard
}

// NewEnvironment wires an idle environment. It panics on missing
// collaborators or invalid configuration.
func NewEnvironment(p EnvironmentParams) *Environment {
	if p.Client == nil {
		panic("dbenv: database client must not be nil")
	}
	if p.Registry == nil {
		panic("dbenv: registry must not be nil")
	}
	if p.Signals == nil {
		panic("dbenv: signal guard must not be nil")
	}
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	log := Logger().With("id", id, "kind", p.Config.Kind.String())

	e := &Environment{
		id:       id,
		cfg:      p.Config,
		scratch:  p.Scratch,
		client:   p.Client,
		registry: p.Registry,
		signals:  p.Signals,
		log:      log,
	}
	e.manager = NewContainerManager(ContainerManagerParams{
		ID:      id,
		Config:  p.Config,
		Runtime: p.Runtime,
		Scratch: p.Scratch,
		Ports:   p.Ports,
		Prober:  p.Client,
		Logger:  log,
	})

	stage := newScratchStage(p.Scratch, log)
	stage.next.Add(e)
	e.manager.Subscribe(stage)
	return e
}

// Start registers the environment, installs its signal handler and starts
// the container. On failure the environment is torn down, deregistered and
// its handler removed.
func (e *Environment) Start(ctx context.Context) error {
	if e.registry.Add(e) {
		e.log.Debug("registered environment", "registered", e.registry.Len())
	}
	e.signals.Install(e.id, func() { e.shutdown(CauseSignal) })

	return e.manager.Start(ctx)
}

// Stop tears the environment down. Concurrent calls share one shutdown
// sequence and its result, including its context and stop cause: an
// explicit Stop that races a signal joins the signal's shutdown and the
// cascade sees CauseSignal.
func (e *Environment) Stop(ctx context.Context) error {
	return e.stop(ctx, CauseExplicit)
}

func (e *Environment) stop(ctx context.Context, cause StopCause) error {
	ran := false
	_, err, shared := e.stops.Do("stop", func() (any, error) {
		ran = true
		return nil, e.manager.Stop(ctx, cause)
	})
	if shared && !ran {
		e.log.Debug("joined in-flight shutdown", "requested_cause", cause.String())
	}
	return err
}

// shutdown is the signal and panic path. It never fails; errors are
// logged.
func (e *Environment) shutdown(cause StopCause) {
	defer e.signals.Remove(e.id)
	e.log.Info("shutting down environment", "cause", cause.String())
	if err := e.stop(context.Background(), cause); err != nil {
		e.log.Error("shutdown did not complete cleanly", "error", err)
	}
}

// HandlePanic tears the environment down after a recovered panic and then
// panics again with r. Callers recover in their own deferred function and
// pass the value here.
func (e *Environment) HandlePanic(r any) {
	e.log.Error("panic, shutting down environment", "panic", fmt.Sprint(r))
	e.shutdown(CausePanic)
	panic(r)
}

// Update implements Observer. It is the last link of the stop cascade:
// it removes the signal handler and deregisters. The call that empties the
// registry after a clean stop sweeps scratch directories and exits the
// process with code 0.
func (e *Environment) Update(ctx context.Context, ev StopEvent) error {
	e.signals.Remove(e.id)

	removed, remaining := e.registry.Remove(e)
	if !removed {
		return nil
	}
	e.log.Debug("deregistered environment", "cause", ev.Cause.String(), "remaining", remaining)

	if remaining > 0 || ev.Cause == CauseFailure || ev.Cause == CausePanic {
		return nil
	}
	e.log.Info("last environment stopped, exiting")
	e.scratch.CleanupAll(ctx)
	e.registry.exit(0)
	return nil
}

// Reset empties the database without restarting the container.
func (e *Environment) Reset(ctx context.Context) (retErr error) {
	dsn, err := e.manager.ConnectionString()
	if err != nil {
		return err
	}
	if err := e.client.Connect(ctx, dsn); err != nil {
		return fmt.Errorf("reset %s: %w", e.cfg.Kind, err)
	}
	defer func() {
		if err := e.client.Disconnect(ctx); err != nil && retErr == nil {
			retErr = fmt.Errorf("reset %s: %w", e.cfg.Kind, err)
		}
	}()
	if err := e.client.Reset(ctx, e.cfg.Credentials.Database); err != nil {
		return fmt.Errorf("reset %s: %w", e.cfg.Kind, err)
	}
	e.log.Debug("database reset")
	return nil
}

// ID returns the environment's unique identifier.
func (e *Environment) ID() string { return e.id }

// Kind returns the backend kind.
func (e *Environment) Kind() backend.Kind { return e.cfg.Kind }

// Config returns the environment's configuration.
func (e *Environment) Config() InstanceConfig { return e.cfg }

// IsRunning reports whether the database is up and accepted a connection.
func (e *Environment) IsRunning() bool { return e.manager.IsRunning() }

// State returns the container manager's lifecycle state.
func (e *Environment) State() State { return e.manager.State() }

// ConnectionString returns the URL of the running database.
func (e *Environment) ConnectionString() (string, error) {
	return e.manager.ConnectionString()
}

// Port returns the host port of the current container, or the configured
// port when none is running.
func (e *Environment) Port() int {
	if h, ok := e.manager.Handle(); ok {
		return h.Port
	}
	return e.cfg.Port
}

// ContainerName returns the name of the current container, or "".
func (e *Environment) ContainerName() string {
	h, _ := e.manager.Handle()
	return h.ContainerName
}

// NetworkName returns the isolated network of the current container, or "".
func (e *Environment) NetworkName() string {
	h, _ := e.manager.Handle()
	return h.NetworkName
}

// ScratchDir returns the current scratch directory, or "".
func (e *Environment) ScratchDir() string {
	h, _ := e.manager.Handle()
	return h.ScratchDir
}

// Status returns the runtime's status line for the container.
func (e *Environment) Status(ctx context.Context) (string, error) {
	return e.manager.Status(ctx)
}

// Logs returns the last lines of the container's output.
func (e *Environment) Logs(ctx context.Context, lines int) (string, error) {
	return e.manager.Logs(ctx, lines)
}
