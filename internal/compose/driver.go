package compose

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/giantswarm/dbenv/internal/errdefs"
	"github.com/giantswarm/dbenv/internal/process"
)

// DefaultCommand is the compose invocation used when none is configured.
const DefaultCommand = "docker compose"

// RunFunc executes one subprocess. process.Run is the production value;
// tests substitute a recorder.
type RunFunc func(ctx context.Context, cfg process.RunConfig, c process.Command) (process.Result, error)

// Config configures a Driver.
type Config struct {
	// Command is the compose invocation split on whitespace, for example
	// "docker compose" or "podman-compose". Empty uses DefaultCommand.
	Command string
	// Engine is the runtime CLI used for status and logs. Empty derives it
	// from Command ("podman-compose" gives "podman").
	Engine           string
	Logger           *slog.Logger
	ProgressInterval time.Duration
	GracePeriod      time.Duration
	// Run overrides subprocess execution. Nil uses process.Run.
	Run RunFunc
}

// Driver issues pull, up, down, status and logs commands.
// It holds no per-instance state and is safe for concurrent use.
type Driver struct {
	command []string
	engine  string
	log     *slog.Logger
	runCfg  process.RunConfig
	run     RunFunc
}

// NewDriver creates a Driver. It returns an ErrConfiguration error when the
// compose command is blank after trimming.
func NewDriver(cfg Config) (*Driver, error) {
	raw := cfg.Command
	if raw == "" {
		raw = DefaultCommand
	}
	command := strings.Fields(raw)
	if len(command) == 0 {
		return nil, errdefs.Configuration("compose command %q is blank", cfg.Command)
	}

	engine := cfg.Engine
	if engine == "" {
		engine = EngineFor(command[0])
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	run := cfg.Run
	if run == nil {
		run = process.Run
	}

	return &Driver{
		command: command,
		engine:  engine,
		log:     log,
		runCfg: process.RunConfig{
			Logger:           log,
			ProgressInterval: cfg.ProgressInterval,
			GracePeriod:      cfg.GracePeriod,
		},
		run: run,
	}, nil
}

// EngineFor derives the engine CLI from the compose executable name.
func EngineFor(composeExe string) string {
	base := filepath.Base(composeExe)
	if engine, ok := strings.CutSuffix(base, "-compose"); ok && engine != "" {
		return engine
	}
	return base
}

// Command returns the compose invocation.
func (d *Driver) Command() []string {
	return append([]string(nil), d.command...)
}

// Engine returns the runtime CLI used for diagnostics.
func (d *Driver) Engine() string { return d.engine }

// Pull fetches the images the descriptor references.
func (d *Driver) Pull(ctx context.Context, descriptor, project string) error {
	_, err := d.compose(ctx, "pull", descriptor, project, "pull")
	return err
}

// Up creates and starts the descriptor's services detached.
func (d *Driver) Up(ctx context.Context, descriptor, project string) error {
	_, err := d.compose(ctx, "up", descriptor, project, "up", "-d")
	return err
}

// Down stops and removes the project's containers, networks and volumes.
func (d *Driver) Down(ctx context.Context, descriptor, project string) error {
	_, err := d.compose(ctx, "down", descriptor, project, "down", "--volumes", "--remove-orphans")
	return err
}

// Status returns the runtime's status line for container, or "" when no
// such container exists.
func (d *Driver) Status(ctx context.Context, container string) (string, error) {
	res, err := d.engineCmd(ctx, "status",
		"ps", "-a", "--filter", "name=^"+container+"$", "--format", "{{.Status}}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Logs returns the last lines of the container's output. Non-positive lines
// returns the whole log.
func (d *Driver) Logs(ctx context.Context, container string, lines int) (string, error) {
	args := []string{"logs"}
	if lines > 0 {
		args = append(args, "--tail", strconv.Itoa(lines))
	}
	args = append(args, container)
	res, err := d.engineCmd(ctx, "logs", args...)
	if err != nil {
		return "", err
	}
	// Container processes write to both streams.
	return res.Stdout + res.Stderr, nil
}

func (d *Driver) compose(ctx context.Context, op, descriptor, project string, sub ...string) (process.Result, error) {
	args := make([]string, 0, len(d.command)+len(sub)+3)
	args = append(args, d.command[1:]...)
	args = append(args, "-f", descriptor)
	if project != "" {
		args = append(args, "-p", project)
	}
	args = append(args, sub...)

	log := d.log.With("op", "compose "+op, "project", project)
	log.Info("running compose", "descriptor", descriptor)
	start := time.Now()

	res, err := d.run(ctx, d.runCfg, process.Command{
		Name: "compose " + op,
		Path: d.command[0],
		Args: args,
		Dir:  filepath.Dir(descriptor),
	})
	if err != nil {
		return res, d.runtimeError("compose "+op, res, err)
	}
	log.Debug("compose finished", "elapsed", time.Since(start))
	return res, nil
}

func (d *Driver) engineCmd(ctx context.Context, op string, args ...string) (process.Result, error) {
	res, err := d.run(ctx, d.runCfg, process.Command{
		Name: d.engine + " " + op,
		Path: d.engine,
		Args: args,
	})
	if err != nil {
		return res, d.runtimeError(d.engine+" "+op, res, err)
	}
	return res, nil
}

func (d *Driver) runtimeError(op string, res process.Result, err error) error {
	code := res.ExitCode
	if code == 0 {
		code = -1
	}
	d.log.Debug("runtime command failed", "op", op, "exit_code", code, "error", err)
	return &errdefs.RuntimeError{Op: op, ExitCode: code, Stderr: res.Stderr, Err: err}
}
