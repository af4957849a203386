package process

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giantswarm/dbenv/internal/errdefs"
)

// ErrEmptyCmdPath is returned when Run is called without an executable.
const ErrEmptyCmdPath = errdefs.Error("command path must not be empty")

// DefaultProgressInterval is how often Run logs that a command is still
// running when RunConfig.ProgressInterval is zero.
const DefaultProgressInterval = 10 * time.Second

// DefaultGracePeriod is how long a cancelled command may take to exit after
// SIGTERM before it is killed, when RunConfig.GracePeriod is zero.
const DefaultGracePeriod = 5 * time.Second

// Command describes one invocation of an external program.
type Command struct {
	Name string   // Short name for logs; defaults to the base name of Path.
	Path string   // Executable name or path, resolved through PATH.
	Args []string // Arguments, not including the executable.
	Dir  string   // Working directory; empty means the current one.
	Env  []string // Extra KEY=value pairs appended to the current environment.
}

func (c Command) displayName() string {
	if c.Name != "" {
		return c.Name
	}
	return filepath.Base(c.Path)
}

// Result is the outcome of a command that was started.
type Result struct {
	// ExitCode is the process exit status. A process terminated by a signal
	// reports 128 plus the signal number, as a shell would.
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// RunConfig configures Run.
type RunConfig struct {
	Logger           *slog.Logger  // Optional; defaults to slog.Default().
	ProgressInterval time.Duration // Zero uses DefaultProgressInterval.
	GracePeriod      time.Duration // Zero uses DefaultGracePeriod.
}

// Run executes c and waits for it to exit.
//
// A non-zero exit returns the populated Result together with the
// *exec.ExitError. When ctx is cancelled the process receives SIGTERM, then
// SIGKILL once the grace period has elapsed, and Run returns the context
// error.
func Run(ctx context.Context, cfg RunConfig, c Command) (Result, error) {
	if c.Path == "" {
		return Result{}, ErrEmptyCmdPath
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	progress := cfg.ProgressInterval
	if progress <= 0 {
		progress = DefaultProgressInterval
	}
	grace := cfg.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	name := c.displayName()

	cmd := exec.CommandContext(ctx, c.Path, c.Args...) //nolint:gosec // G204: the runtime CLI is chosen by configuration
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	configureSysProcAttr(cmd)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = grace

	log.Debug("running command", "command", name, "args", c.Args)
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("start %s: %w", name, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	waitErr := waitWithProgress(done, progress, func(elapsed time.Duration) {
		log.Info("command still running", "command", name, "elapsed", elapsed.Round(time.Second))
	}, start)

	res := Result{
		ExitCode: exitCode(cmd.ProcessState),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	log.Debug("command finished", "command", name, "exit_code", res.ExitCode, "duration", res.Duration)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s interrupted: %w", name, ctxErr)
	}
	if waitErr != nil {
		return res, fmt.Errorf("%s: %w", name, waitErr)
	}
	return res, nil
}

// waitWithProgress blocks until done delivers, calling tick with the elapsed
// time at every interval.
func waitWithProgress(done <-chan error, interval time.Duration, tick func(time.Duration), start time.Time) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			tick(time.Since(start))
		}
	}
}

// exitCode converts a process state to a shell-style exit status.
func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}
