// Package discovery defines the service registry collaborator: the contract
// the lifecycle orchestrator registers through, plus a redis-backed default
// implementation with TTL presence, route-table advertisement, and a capped
// health log.
package discovery
