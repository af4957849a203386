package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"
)

// helperCommand returns a Command that re-executes the test binary into
// TestHelperProcess with the given mode and extra environment.
func helperCommand(mode string, env ...string) Command {
	return Command{
		Name: "helper",
		Path: os.Args[0],
		Args: []string{"-test.run=^TestHelperProcess$"},
		Env:  append([]string{"GO_WANT_HELPER_PROCESS=1", "GO_HELPER_MODE=" + mode}, env...),
	}
}

// TestHelperProcess is not a real test. It is the subprocess started by
// helperCommand.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("GO_HELPER_MODE") {
	case "sleep":
		d, err := time.ParseDuration(os.Getenv("GO_HELPER_SLEEP"))
		if err != nil {
			d = time.Minute
		}
		time.Sleep(d)
	case "ignore-term":
		signal.Ignore(syscall.SIGTERM)
		time.Sleep(time.Minute)
	}

	fmt.Fprint(os.Stdout, os.Getenv("GO_HELPER_STDOUT"))
	fmt.Fprint(os.Stderr, os.Getenv("GO_HELPER_STDERR"))

	exitCode := 0
	if code := os.Getenv("GO_HELPER_EXIT_CODE"); code != "" {
		fmt.Sscanf(code, "%d", &exitCode)
	}
	os.Exit(exitCode)
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("signal semantics differ on windows")
	}
}

func TestRun_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), RunConfig{}, Command{})
	if !errors.Is(err, ErrEmptyCmdPath) {
		t.Errorf("error = %v, want %v", err, ErrEmptyCmdPath)
	}
}

func TestRun_MissingExecutable(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), RunConfig{}, Command{Path: "dbenv-no-such-binary"})
	if err == nil {
		t.Fatal("expected error for missing executable")
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
}

func TestRun_CapturesOutput(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		exitCode int
		wantErr  bool
	}{
		"success":        {exitCode: 0},
		"daemon missing": {exitCode: 1, wantErr: true},
		"custom code":    {exitCode: 42, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cmd := helperCommand("output",
				"GO_HELPER_STDOUT=pulled",
				"GO_HELPER_STDERR=Cannot connect to the Docker daemon",
				fmt.Sprintf("GO_HELPER_EXIT_CODE=%d", tc.exitCode),
			)
			res, err := Run(context.Background(), RunConfig{}, cmd)

			if tc.wantErr {
				var exitErr *exec.ExitError
				if !errors.As(err, &exitErr) {
					t.Fatalf("error = %v, want *exec.ExitError", err)
				}
			} else if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if res.ExitCode != tc.exitCode {
				t.Errorf("ExitCode = %d, want %d", res.ExitCode, tc.exitCode)
			}
			if res.Stdout != "pulled" {
				t.Errorf("Stdout = %q, want %q", res.Stdout, "pulled")
			}
			if !strings.Contains(res.Stderr, "Docker daemon") {
				t.Errorf("Stderr = %q, want daemon message", res.Stderr)
			}
		})
	}
}

func TestRun_CancelSendsSIGTERM(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	res, err := Run(ctx, RunConfig{GracePeriod: 5 * time.Second}, helperCommand("sleep"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want %v", err, context.DeadlineExceeded)
	}
	if res.ExitCode != 143 {
		t.Errorf("ExitCode = %d, want 143", res.ExitCode)
	}
}

func TestRun_CancelEscalatesToSIGKILL(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	res, err := Run(ctx, RunConfig{GracePeriod: 200 * time.Millisecond}, helperCommand("ignore-term"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want %v", err, context.DeadlineExceeded)
	}
	if res.ExitCode != 137 {
		t.Errorf("ExitCode = %d, want 137", res.ExitCode)
	}
	if elapsed := time.Since(start); elapsed > 30*time.Second {
		t.Errorf("Run took %v, want prompt kill", elapsed)
	}
}

func TestRun_LogsProgress(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := RunConfig{Logger: logger, ProgressInterval: 20 * time.Millisecond}
	if _, err := Run(context.Background(), cfg, helperCommand("sleep", "GO_HELPER_SLEEP=300ms")); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"running command", "command still running", "command finished"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestExitCode_NilState(t *testing.T) {
	t.Parallel()

	if got := exitCode(nil); got != -1 {
		t.Errorf("exitCode(nil) = %d, want -1", got)
	}
}
