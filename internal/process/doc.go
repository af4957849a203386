// Package process runs short-lived external commands such as the container
// runtime CLI.
//
// Run captures stdout and stderr, logs a progress line while a slow command
// (an image pull, for instance) is still running, and on context
// cancellation sends SIGTERM before escalating to SIGKILL after a grace
// period. On Linux children also receive SIGTERM if the test binary dies.
package process
