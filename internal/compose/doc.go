// Package compose drives a container runtime through its compose CLI.
//
// Driver wraps the configured compose command (docker compose by default;
// docker-compose, podman-compose and podman compose also work) and the
// matching engine CLI used for diagnostics. Every failed invocation is
// reported as an *errdefs.RuntimeError carrying the exit code and stderr.
package compose
