// Package lifecycle orchestrates a service from declarative configuration
// to a live, registered HTTP listener: config validation, registry
// connection, plugin broadcast, listener bind, route advertisement, and a
// single-assignment ready signal, with graceful shutdown owned by a
// coordinator armed once the listener is live.
package lifecycle
