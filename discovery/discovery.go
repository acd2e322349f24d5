package discovery

import (
	"context"

	"github.com/harborstack/keel/config"
)

// ServiceDescriptor is the registry-assigned record identifying a running
// instance. It is the value the lifecycle's ready signal resolves with.
type ServiceDescriptor struct {
	ServiceName    string `json:"serviceName"`
	InstanceID     string `json:"instanceID"`
	ServiceIP      string `json:"serviceIP"`
	ServicePort    int    `json:"servicePort"`
	ServiceType    string `json:"serviceType"`
	ServiceVersion string `json:"serviceVersion"`
}

// EventKind classifies asynchronous client events so consumers do not have
// to pattern-match message text.
type EventKind string

const (
	// KindLog is a generic log event from the registry client.
	KindLog EventKind = "log"
	// KindRouterUnavailable signals that the optional router indirection
	// has no live instances. Not fatal.
	KindRouterUnavailable EventKind = "router-unavailable"
)

// Event is an asynchronous log/health event emitted by a registry client.
type Event struct {
	Kind    EventKind
	Level   string
	Message string
}

// Client is the service discovery and registration collaborator. The
// lifecycle orchestrator treats it as a black box: it connects, registers,
// advertises routes, reports health, and emits log events.
type Client interface {
	// Init establishes the registry connection and resolves the
	// configuration, filling in registry-assigned fields (serviceIP,
	// servicePort) when left empty. In test mode the client avoids
	// long-running side effects such as presence heartbeats.
	Init(ctx context.Context, cfg *config.Config, testMode bool) (*config.Config, error)

	// RegisterService registers this instance and returns its descriptor.
	RegisterService(ctx context.Context) (*ServiceDescriptor, error)

	// RegisterRoutes advertises the service's flat route list
	// ("[GET]/v1/users" style entries).
	RegisterRoutes(ctx context.Context, routes []string) error

	// SendToHealthLog appends an entry to the instance health log.
	// suppressEmit prevents the entry from echoing back through Events.
	SendToHealthLog(ctx context.Context, level, message string, suppressEmit bool) error

	// Shutdown deregisters the instance and releases the connection.
	Shutdown(ctx context.Context) error

	// Events is the asynchronous log-event source. The channel closes on
	// Shutdown.
	Events() <-chan Event

	// ServiceName returns the registered service name.
	ServiceName() string

	// InstanceVersion returns the version advertised for this instance.
	InstanceVersion() string
}
