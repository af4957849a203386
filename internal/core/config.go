package core

import (
	"errors"
	"time"

	"github.com/giantswarm/dbenv/internal/backend"
	"github.com/giantswarm/dbenv/internal/errdefs"
)

// InstanceConfig is the immutable configuration of one Environment.
type InstanceConfig struct {
	Kind        backend.Kind
	Credentials backend.Credentials

	// Port is the host port the database is published on. Zero allocates a
	// free port at every start.
	Port int
	// Host is the host name used in connection strings.
	Host string

	// ReadinessAttempts bounds the connection probes after the container is
	// up; ReadinessInterval is the pause between failed probes.
	ReadinessAttempts int
	ReadinessInterval time.Duration

	// StopTimeout bounds a teardown, including teardown after a failed start.
	StopTimeout time.Duration
}

// Validate reports every violated constraint at once. Each error matches
// errdefs.ErrConfiguration.
func (c InstanceConfig) Validate() error {
	var errs []error

	if !c.Kind.IsValid() {
		errs = append(errs, errdefs.Configuration("unsupported backend kind %q", c.Kind.String()))
	}
	if c.Credentials.User == "" {
		errs = append(errs, errdefs.Configuration("database user must not be empty"))
	}
	if c.Credentials.Password == "" {
		errs = append(errs, errdefs.Configuration("database password must not be empty"))
	}
	if c.Credentials.Database == "" {
		errs = append(errs, errdefs.Configuration("database name must not be empty"))
	}
	if c.Kind == backend.MySQL && c.Credentials.User == "root" {
		errs = append(errs, errdefs.Configuration("mysql user must not be root, the image creates root itself"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, errdefs.Configuration("port must be between 0 and 65535, got %d", c.Port))
	}
	if c.Host == "" {
		errs = append(errs, errdefs.Configuration("host must not be empty"))
	}
	if c.ReadinessAttempts <= 0 {
		errs = append(errs, errdefs.Configuration("readiness attempts must be greater than 0, got %d", c.ReadinessAttempts))
	}
	if c.ReadinessInterval <= 0 {
		errs = append(errs, errdefs.Configuration("readiness interval must be greater than 0, got %s", c.ReadinessInterval))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, errdefs.Configuration("stop timeout must be greater than 0, got %s", c.StopTimeout))
	}

	return errors.Join(errs...)
}
