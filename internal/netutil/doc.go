// Package netutil allocates host ports for database containers.
//
// PortRegistry asks the kernel for a free port and records it for the life of
// the instance, so two environments started concurrently in one test binary
// never publish their containers on the same host port.
package netutil
