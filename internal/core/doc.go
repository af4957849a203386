// Package core provides the internal implementation of dbenv.
//
// It contains the ContainerManager (per-instance start/stop state machine),
// the Classifier that explains runtime exit codes and runs teardown, the
// process-wide SignalGuard, the stop cascade (Notifier and Observer), the
// Environment facade, and the Registry whose last deregistration exits the
// process.
package core
