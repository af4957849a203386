package core

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/giantswarm/dbenv/internal/errdefs"
)

func TestExitReason(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		code int
		want string
	}{
		"graceful":    {code: 0, want: "Container stopped - no tasks left to perform."},
		"daemon":      {code: 1, want: "Container runtime daemon not running or container already exists."},
		"oom":         {code: 137, want: "Container terminated - manual stop or out of memory."},
		"segfault":    {code: 139, want: "Container error - possible bug in the application."},
		"terminated":  {code: 143, want: "Container stopped - it received a termination signal."},
		"unknown":     {code: 255, want: ""},
		"not started": {code: -1, want: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := ExitReason(tc.code); got != tc.want {
				t.Errorf("ExitReason(%d) = %q, want %q", tc.code, got, tc.want)
			}
		})
	}
}

func TestClassifier_HandleError(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err         error
		teardownErr error
		wantMsg     string
		wantLog     []string
	}{
		"known exit code": {
			err:     &errdefs.RuntimeError{Op: "compose up", ExitCode: 137},
			wantMsg: "start failed (Container terminated - manual stop or out of memory.): compose up: exit code 137",
			wantLog: []string{"exit_code=137", "out of memory"},
		},
		"unknown exit code": {
			err:     &errdefs.RuntimeError{Op: "compose up", ExitCode: 255},
			wantMsg: "start failed: compose up: exit code 255",
			wantLog: []string{"exit_code=255"},
		},
		"not a runtime error": {
			err:     errdefs.IOError("create scratch dir", "/x", errors.New("read-only file system")),
			wantMsg: "start failed: create scratch dir /x: read-only file system",
		},
		"teardown failure is logged only": {
			err:         errors.New("boom"),
			teardownErr: errors.New("down failed"),
			wantMsg:     "start failed: boom",
			wantLog:     []string{"down failed"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			c := NewClassifier(slog.New(slog.NewTextHandler(&buf, nil)))

			tornDown := 0
			got := c.HandleError(context.Background(), tc.err, "start failed", func(context.Context) error {
				tornDown++
				return tc.teardownErr
			})

			if got.Error() != tc.wantMsg {
				t.Errorf("error = %q, want %q", got.Error(), tc.wantMsg)
			}
			if !errors.Is(got, tc.err) {
				t.Error("returned error does not wrap the original")
			}
			if tornDown != 1 {
				t.Errorf("teardown ran %d times, want 1", tornDown)
			}
			for _, want := range tc.wantLog {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("log missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestClassifier_NilTeardown(t *testing.T) {
	t.Parallel()
	c := NewClassifier(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	err := c.HandleError(context.Background(), errors.New("boom"), "stop failed", nil)
	if err == nil || err.Error() != "stop failed: boom" {
		t.Errorf("error = %v, want %q", err, "stop failed: boom")
	}
}
