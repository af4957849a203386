package dbenv

import (
	"context"
	"sync"

	"github.com/giantswarm/dbenv/internal/compose"
	"github.com/giantswarm/dbenv/internal/core"
	"github.com/giantswarm/dbenv/internal/dbclient"
	"github.com/giantswarm/dbenv/internal/netutil"
	"github.com/giantswarm/dbenv/internal/template"
)

// Process-wide services shared by all environments. Ports are reserved in
// one registry so parallel environments never publish on the same port;
// template processors are shared per base and template directory so the
// last-instance sweep sees every scratch directory of the process.
var (
	ports = netutil.NewPortRegistry(nil)

	processorsMu sync.Mutex
	processors   = make(map[processorKey]*template.Processor)
)

type processorKey struct {
	baseDir     string
	templateDir string
}

// Compile-time interface satisfaction check.
var _ Environment = (*environmentWrapper)(nil)

// environmentWrapper wraps core.Environment to implement the Environment
// interface.
//
// The core.Environment is stored as a named (unexported) field rather than
// embedded to prevent callers from using type assertions to access internal
// methods (e.g., Update, HandlePanic) that are not part of the public
// Environment interface.
type environmentWrapper struct {
	env *core.Environment
}

func (w *environmentWrapper) Start(ctx context.Context) error { return w.env.Start(ctx) }
func (w *environmentWrapper) Stop(ctx context.Context) error  { return w.env.Stop(ctx) }
func (w *environmentWrapper) Reset(ctx context.Context) error { return w.env.Reset(ctx) }

func (w *environmentWrapper) ConnectionString() (string, error) {
	return w.env.ConnectionString()
}

// RecoverPanic implements Environment.RecoverPanic. recover only stops a
// panic when called directly by the deferred function, so it cannot move
// into core.
func (w *environmentWrapper) RecoverPanic() {
	if r := recover(); r != nil {
		w.env.HandlePanic(r)
	}
}

func (w *environmentWrapper) Status(ctx context.Context) (string, error) {
	return w.env.Status(ctx)
}

func (w *environmentWrapper) Logs(ctx context.Context, lines int) (string, error) {
	return w.env.Logs(ctx, lines)
}

func (w *environmentWrapper) ID() string               { return w.env.ID() }
func (w *environmentWrapper) Kind() Kind               { return w.env.Kind() }
func (w *environmentWrapper) Credentials() Credentials { return w.env.Config().Credentials }
func (w *environmentWrapper) Port() int                { return w.env.Port() }
func (w *environmentWrapper) ContainerName() string    { return w.env.ContainerName() }
func (w *environmentWrapper) NetworkName() string      { return w.env.NetworkName() }
func (w *environmentWrapper) ScratchDir() string       { return w.env.ScratchDir() }
func (w *environmentWrapper) IsRunning() bool          { return w.env.IsRunning() }

// New creates an idle Environment for kind. It performs no container
// operations; call Start to run the database.
//
// Returns an error matching ErrConfiguration for an unsupported kind, a
// MySQL "root" user, a blank compose command or an unusable template
// directory.
//
// Panics if any option receives an invalid value. See individual With*
// functions for constraints.
//
//nolint:ireturn // Returns Environment interface by design for testability (mockable).
func New(kind Kind, opts ...Option) (Environment, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Kind = kind
	return newEnvironment(cfg)
}

//nolint:ireturn // See New.
func newEnvironment(cfg config) (Environment, error) {
	if err := cfg.InstanceConfig.Validate(); err != nil {
		return nil, err
	}

	scratch, err := sharedProcessor(cfg.BaseDir, cfg.TemplateDir)
	if err != nil {
		return nil, err
	}

	runtime := cfg.runtime
	if runtime == nil {
		d, err := compose.NewDriver(compose.Config{
			Command: cfg.ComposeCommand,
			Engine:  cfg.Engine,
			Logger:  core.Logger(),
		})
		if err != nil {
			return nil, err
		}
		runtime = d
	}

	client := cfg.client
	if client == nil {
		client, err = dbclient.New(cfg.Kind)
		if err != nil {
			return nil, err
		}
	}

	reg := cfg.registry
	if reg == nil {
		reg = defaultRegistry
	}

	env := core.NewEnvironment(core.EnvironmentParams{
		Config:   cfg.InstanceConfig,
		Runtime:  runtime,
		Scratch:  scratch,
		Ports:    ports,
		Client:   client,
		Registry: reg.reg,
		Signals:  core.DefaultSignalGuard(),
	})
	return &environmentWrapper{env: env}, nil
}

// sharedProcessor returns the process-wide template processor for the
// given directories, creating it on first use.
func sharedProcessor(baseDir, templateDir string) (*template.Processor, error) {
	processorsMu.Lock()
	defer processorsMu.Unlock()

	key := processorKey{baseDir: baseDir, templateDir: templateDir}
	if p, ok := processors[key]; ok {
		return p, nil
	}
	p, err := template.NewProcessor(template.Config{
		BaseDir:     baseDir,
		TemplateDir: templateDir,
		Logger:      core.Logger(),
	})
	if err != nil {
		return nil, err
	}
	processors[key] = p
	return p, nil
}

// CleanupAll removes every scratch directory under dir left behind by
// processes that no longer run, for example after a SIGKILL. Directories of
// live environments, in this or any other process, are skipped. An empty
// dir uses the default base directory.
//
// It returns the number of directories removed.
func CleanupAll(ctx context.Context, dir string) (int, error) {
	if dir == "" {
		dir = defaultConfig().BaseDir
	}
	p, err := sharedProcessor(dir, "")
	if err != nil {
		return 0, err
	}
	return p.CleanupAll(ctx), nil
}
