// Package errdefs defines the error taxonomy shared by every dbenv layer.
//
// Error is a string-backed type so category sentinels can be declared as
// const and still be matched with errors.Is through wrapped chains. The four
// categories mirror the failure sources of an ephemeral database instance:
// the container runtime (ErrRuntime), scratch files and templates (ErrIO),
// the readiness probe (ErrReadinessTimeout) and invalid configuration
// (ErrConfiguration).
package errdefs
