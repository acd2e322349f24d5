// Package shutdown coordinates graceful process termination: a one-shot
// drain sequence armed once the listener is live, with a watchdog that
// forces exit if graceful close overruns the platform grace period.
package shutdown
