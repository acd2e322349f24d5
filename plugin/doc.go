// Package plugin defines the lifecycle extension surface: plugins register
// before startup, receive the resolved configuration in a first broadcast
// phase, and are told the service is live in a second. Both phases run in
// registration order and the first phase completes for every plugin before
// the second begins.
package plugin
