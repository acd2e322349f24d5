package lifecycle

import (
	"github.com/harborstack/keel/discovery"
	"github.com/harborstack/keel/logger"
	"github.com/harborstack/keel/pipeline"
	"github.com/harborstack/keel/plugin"
	"github.com/harborstack/keel/shutdown"
)

type options struct {
	version            string
	routeCallback      pipeline.Callback
	middlewareCallback pipeline.Callback
	client             discovery.Client
	plugins            []plugin.Plugin
	log                *logger.Logger
	coordinator        *shutdown.Coordinator
}

// Option configures a Service at construction time.
type Option func(*options)

// WithVersion overrides the advertised service version. When absent the
// version comes from the config's serviceVersion, then from build info.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// WithRoutes supplies the route registration callback. It runs once, after
// the listener is bound, so routes always mount on a live server. A service
// without one fails config validation.
func WithRoutes(cb pipeline.Callback) Option {
	return func(o *options) { o.routeCallback = cb }
}

// WithMiddleware supplies the user middleware callback. It runs during
// pipeline assembly, after body handling and before route dispatch.
func WithMiddleware(cb pipeline.Callback) Option {
	return func(o *options) { o.middlewareCallback = cb }
}

// WithClient injects a discovery client. Defaults to the Redis-backed
// registry client.
func WithClient(c discovery.Client) Option {
	return func(o *options) { o.client = c }
}

// WithPlugins registers plugins in the given order. Order is observable:
// both broadcast phases walk plugins in registration order.
func WithPlugins(ps ...plugin.Plugin) Option {
	return func(o *options) { o.plugins = append(o.plugins, ps...) }
}

// WithLogger injects a logger instead of building one from the config's
// logging block.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithCoordinator injects a shutdown coordinator. Tests use this to shrink
// the drain and watchdog windows.
func WithCoordinator(c *shutdown.Coordinator) Option {
	return func(o *options) { o.coordinator = c }
}
