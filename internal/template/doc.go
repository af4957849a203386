// Package template turns the built-in compose and init-script templates into
// per-instance scratch directories.
//
// Each scratch directory is named dbenv-<uuid>, lives under a configurable
// base directory, and holds a .lock file locked for as long as the owning
// Processor keeps the directory. CleanupAll uses that lock to tell live
// directories from ones abandoned by a crashed test binary.
//
// Templates use ${DB_USER}, ${DB_PASSWORD}, ${DB_NAME}, ${DB_PORT} and
// ${NETWORK_NAME} placeholders. Unknown placeholders are left untouched.
package template
