package dbenv

import (
	"fmt"
	"time"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("dbenv: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("dbenv: %s must not be empty", name))
	}
}

// Option configures an Environment during construction via New.
// Each With* function returns an Option that sets a specific field.
//
// Several With* functions panic on invalid input (empty strings, ports out
// of range, non-positive durations). Option values are typically constants
// in test setup code, so an invalid value is a programmer error. The
// pattern mirrors [regexp.MustCompile].
type Option func(*config)

// WithUser sets the database user created in the container.
//
// Default: DefaultUser. MySQL rejects "root", which New reports as
// ErrConfiguration.
//
// Panics if user is empty.
func WithUser(user string) Option {
	requireNonEmpty("user", user)
	return func(c *config) {
		c.Credentials.User = user
	}
}

// WithPassword sets the password of the database user.
// Panics if password is empty.
func WithPassword(password string) Option {
	requireNonEmpty("password", password)
	return func(c *config) {
		c.Credentials.Password = password
	}
}

// WithDatabase sets the database created in the container and reset by
// Environment.Reset.
// Panics if name is empty.
func WithDatabase(name string) Option {
	requireNonEmpty("database name", name)
	return func(c *config) {
		c.Credentials.Database = name
	}
}

// WithCredentials sets user, password and database at once.
// Panics if any field is empty.
func WithCredentials(creds Credentials) Option {
	requireNonEmpty("user", creds.User)
	requireNonEmpty("password", creds.Password)
	requireNonEmpty("database name", creds.Database)
	return func(c *config) {
		c.Credentials = creds
	}
}

// WithPort publishes the database on a fixed host port. Without it every
// Start publishes on a free port chosen by the kernel, which is what
// parallel tests want.
//
// Panics if port is outside 1-65535.
func WithPort(port int) Option {
	if port <= 0 || port > 65535 {
		panic(fmt.Sprintf("dbenv: port must be between 1 and 65535, got %d", port))
	}
	return func(c *config) {
		c.Port = port
	}
}

// WithHost sets the host name used in connection strings, for example when
// the container engine runs in a VM.
//
// Default: "localhost".
//
// Panics if host is empty.
func WithHost(host string) Option {
	requireNonEmpty("host", host)
	return func(c *config) {
		c.Host = host
	}
}

// WithComposeCommand sets the compose invocation, split on whitespace:
// "docker compose", "docker-compose", "podman compose" or "podman-compose".
// The engine used for status and logs is derived from it unless set with
// WithEngine.
//
// Default: "docker compose".
//
// Panics if command is empty.
func WithComposeCommand(command string) Option {
	requireNonEmpty("compose command", command)
	return func(c *config) {
		c.ComposeCommand = command
	}
}

// WithEngine sets the container engine CLI used for Status and Logs.
// Panics if engine is empty.
func WithEngine(engine string) Option {
	requireNonEmpty("container engine", engine)
	return func(c *config) {
		c.Engine = engine
	}
}

// WithBaseDir sets the directory under which scratch directories are
// created. Useful in CI environments where the system temp directory is
// small or shared.
// If not set, defaults to filepath.Join(os.TempDir(), "dbenv").
// Panics if dir is empty.
func WithBaseDir(dir string) Option {
	requireNonEmpty("base directory", dir)
	return func(c *config) {
		c.BaseDir = dir
	}
}

// WithTemplateDir replaces the built-in compose descriptors. The directory
// must contain "docker-compose.<kind>.yml" for the kinds in use and
// "init-mongo.js" for MongoDB; placeholders such as ${DB_USER} are
// substituted the same way.
// Panics if dir is empty.
func WithTemplateDir(dir string) Option {
	requireNonEmpty("template directory", dir)
	return func(c *config) {
		c.TemplateDir = dir
	}
}

// WithReadinessAttempts sets how many connection probes Start makes after
// the container is up.
//
// Default: 20.
//
// Panics if n <= 0.
func WithReadinessAttempts(n int) Option {
	requirePositive("readiness attempts", n)
	return func(c *config) {
		c.ReadinessAttempts = n
	}
}

// WithReadinessInterval sets the pause between failed connection probes.
//
// Default: 3 seconds.
//
// Panics if d <= 0.
func WithReadinessInterval(d time.Duration) Option {
	requirePositive("readiness interval", d)
	return func(c *config) {
		c.ReadinessInterval = d
	}
}

// WithStopTimeout bounds each teardown, including teardown after a failed
// Start.
//
// Default: 60 seconds.
//
// Panics if d <= 0.
func WithStopTimeout(d time.Duration) Option {
	requirePositive("stop timeout", d)
	return func(c *config) {
		c.StopTimeout = d
	}
}

// WithRegistry registers the environment in r instead of the process
// default. The registry decides what happens when its last environment
// stops; see NewRegistry.
// Panics if r is nil.
func WithRegistry(r *Registry) Option {
	if r == nil {
		panic("dbenv: registry must not be nil")
	}
	return func(c *config) {
		c.registry = r
	}
}
