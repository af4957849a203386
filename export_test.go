package dbenv

import (
	"time"

	"github.com/giantswarm/dbenv/internal/core"
	"github.com/giantswarm/dbenv/internal/dbclient"
)

// WithRuntimeForTesting replaces the compose driver. Exported only for use
// in test packages (package dbenv_test).
func WithRuntimeForTesting(r core.Runtime) Option {
	return func(c *config) { c.runtime = r }
}

// WithClientForTesting replaces the database client used for readiness
// probes and Reset.
func WithClientForTesting(cl dbclient.Client) Option {
	return func(c *config) { c.client = cl }
}

// ConfigSnapshot holds a copy of config fields for test assertions.
// Exported only via export_test.go so that the _test package can verify
// option closures actually mutate the config without accessing internals.
type ConfigSnapshot struct {
	Credentials       Credentials
	Port              int
	Host              string
	ReadinessAttempts int
	ReadinessInterval time.Duration
	StopTimeout       time.Duration
	ComposeCommand    string
	Engine            string
	BaseDir           string
	TemplateDir       string
	Registry          *Registry
}

// ApplyOptionsForTesting creates a default config, applies the given
// options, and returns a ConfigSnapshot of the result.
func ApplyOptionsForTesting(opts ...Option) ConfigSnapshot {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return ConfigSnapshot{
		Credentials:       cfg.Credentials,
		Port:              cfg.Port,
		Host:              cfg.Host,
		ReadinessAttempts: cfg.ReadinessAttempts,
		ReadinessInterval: cfg.ReadinessInterval,
		StopTimeout:       cfg.StopTimeout,
		ComposeCommand:    cfg.ComposeCommand,
		Engine:            cfg.Engine,
		BaseDir:           cfg.BaseDir,
		TemplateDir:       cfg.TemplateDir,
		Registry:          cfg.registry,
	}
}
