//go:build integration

package dbenv_test

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/dbenv"
)

// requireDocker skips the test when no compose-capable docker is on PATH.
func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not found in PATH")
	}
	if err := exec.Command("docker", "compose", "version").Run(); err != nil {
		t.Skipf("docker compose unavailable: %v", err)
	}
}

func TestIntegration_StartResetStop(t *testing.T) {
	requireDocker(t)

	for _, kind := range dbenv.Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			env := dbenv.Setup(t, kind,
				dbenv.WithBaseDir(t.TempDir()),
				dbenv.WithDatabase("fixtures"),
				dbenv.WithUser("app"),
				dbenv.WithReadinessInterval(2*time.Second),
				dbenv.WithReadinessAttempts(60),
			)

			dsn, err := env.ConnectionString()
			if err != nil {
				t.Fatalf("ConnectionString() error: %v", err)
			}
			if !strings.Contains(dsn, "/fixtures") {
				t.Errorf("ConnectionString() = %q, want database fixtures", dsn)
			}

			ctx := context.Background()
			status, err := env.Status(ctx)
			if err != nil || !strings.HasPrefix(status, "Up") {
				t.Errorf("Status() = %q, %v; want Up...", status, err)
			}
			if err := env.Reset(ctx); err != nil {
				t.Fatalf("Reset() error: %v", err)
			}
		})
	}
}

func TestIntegration_FixedPortConflict(t *testing.T) {
	requireDocker(t)
	reg := dbenv.NewRegistry(func(int) {})
	base := t.TempDir()
	ctx := context.Background()

	first := dbenv.Setup(t, dbenv.PostgreSQL, dbenv.WithBaseDir(base), dbenv.WithRegistry(reg))
	port := first.Port()

	second, err := dbenv.New(dbenv.PostgreSQL, dbenv.WithBaseDir(base), dbenv.WithRegistry(reg), dbenv.WithPort(port))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := second.Start(ctx); !errors.Is(err, dbenv.ErrPortInUse) {
		t.Fatalf("Start() on a taken port error = %v, want ErrPortInUse", err)
	}
}
