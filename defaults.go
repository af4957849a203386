package dbenv

import (
	"time"

	"github.com/giantswarm/dbenv/internal/compose"
	"github.com/giantswarm/dbenv/internal/readiness"
)

// Default configuration values for New.
// These constants are exported so callers can reference the defaults
// when building custom configurations relative to them (e.g.,
// 2 * DefaultReadinessInterval).
const (
	// DefaultUser, DefaultPassword and DefaultDatabase are the credentials
	// the container is initialized with.
	DefaultUser     = "dbenv"
	DefaultPassword = "dbenv"
	DefaultDatabase = "dbenv"

	// DefaultHost is the host name used in connection strings.
	DefaultHost = "localhost"

	// DefaultComposeCommand is the compose invocation used to pull, start
	// and remove containers.
	DefaultComposeCommand = compose.DefaultCommand

	// DefaultReadinessAttempts is the number of connection probes made after
	// the container is up before Start gives up with ErrReadinessTimeout.
	DefaultReadinessAttempts = readiness.DefaultMaxAttempts

	// DefaultReadinessInterval is the pause between failed probes.
	DefaultReadinessInterval = readiness.DefaultInterval

	// DefaultStopTimeout bounds one teardown: compose down plus scratch
	// directory removal. Image pulls are not covered, so it can be short.
	DefaultStopTimeout = 60 * time.Second

	// DefaultBaseDirName is the directory name under the system temp
	// directory where scratch directories are created. The full path is
	// computed as filepath.Join(os.TempDir(), DefaultBaseDirName).
	DefaultBaseDirName = "dbenv"
)
