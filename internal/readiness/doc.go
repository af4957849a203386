// Package readiness waits for a freshly started database to accept
// connections.
package readiness
