package dbenv

import (
	"os"
	"path/filepath"

	"github.com/giantswarm/dbenv/internal/core"
	"github.com/giantswarm/dbenv/internal/dbclient"
)

// config holds the settings of one Environment. The embedded
// core.InstanceConfig keeps internal types out of the public API signature
// while avoiding field-by-field duplication; the remaining fields select the
// process-wide services the environment is wired to.
type config struct {
	core.InstanceConfig

	ComposeCommand string
	Engine         string
	BaseDir        string
	TemplateDir    string

	registry *Registry

	// Overrides used by tests instead of the compose driver and the real
	// database clients.
	runtime core.Runtime
	client  dbclient.Client
}

// defaultConfig returns a config populated with all default values. Both
// New and test helpers use this to avoid duplicating the default field
// assignments.
func defaultConfig() config {
	return config{
		InstanceConfig: core.InstanceConfig{
			Credentials: Credentials{
				User:     DefaultUser,
				Password: DefaultPassword,
				Database: DefaultDatabase,
			},
			Host:              DefaultHost,
			ReadinessAttempts: DefaultReadinessAttempts,
			ReadinessInterval: DefaultReadinessInterval,
			StopTimeout:       DefaultStopTimeout,
		},
		ComposeCommand: DefaultComposeCommand,
		BaseDir:        filepath.Join(os.TempDir(), DefaultBaseDirName),
	}
}
