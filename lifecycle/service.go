package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harborstack/keel/config"
	"github.com/harborstack/keel/discovery"
	"github.com/harborstack/keel/errors"
	"github.com/harborstack/keel/logger"
	"github.com/harborstack/keel/pipeline"
	"github.com/harborstack/keel/plugin"
	"github.com/harborstack/keel/shutdown"
	"github.com/harborstack/keel/version"
)

// Service is the lifecycle orchestrator. It captures configuration once at
// construction, validates it before touching the registry, then drives the
// ordered startup sequence in Start. A Service runs at most one listener;
// process termination is delegated to its shutdown coordinator.
type Service struct {
	version            string
	log                *logger.Logger
	client             discovery.Client
	plugins            *plugin.Registry
	coord              *shutdown.Coordinator
	routeCallback      pipeline.Callback
	middlewareCallback pipeline.Callback

	mu      sync.Mutex
	cfg     *config.Config
	started bool
	pipe    *pipeline.Pipeline
	server  *http.Server
	desc    *discovery.ServiceDescriptor

	ready *readySignal
}

// New builds a Service from a configuration source: either a *config.Config
// or a path to a config file. Validation happens here, before any registry
// connection: the redis block check first, then the required-field walk,
// then value validation. A config that fails never produces a Service.
func New(source interface{}, opts ...Option) (*Service, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var (
		cfg *config.Config
		err error
	)
	switch src := source.(type) {
	case *config.Config:
		cfg = src.Copy()
	case string:
		cfg, err = config.Load(src)
		if err != nil {
			return nil, errors.Config(err.Error())
		}
	default:
		return nil, errors.Config(fmt.Sprintf("unsupported configuration source %T", source))
	}
	cfg.ApplyDefaults()

	if err := cfg.CheckRedis(); err != nil {
		return nil, errors.Config(err.Error())
	}
	if missing := cfg.MissingFields(o.routeCallback != nil); len(missing) > 0 {
		return nil, errors.Config("missing required config: " + strings.Join(missing, " "))
	}
	if err := cfg.ValidateValues(); err != nil {
		return nil, errors.Config(err.Error())
	}

	ver := o.version
	if ver == "" {
		ver = cfg.ServiceDescriptor.ServiceVersion
	}
	if ver == "" {
		ver = version.Short()
	}
	cfg.ServiceDescriptor.ServiceVersion = ver

	log := o.log
	if log == nil {
		log = logger.New(&cfg.Logging, cfg.ServiceDescriptor.ServiceName)
		logger.SetGlobalLogger(log)
	}

	client := o.client
	if client == nil {
		client = discovery.NewRedisClient(log)
	}

	coord := o.coordinator
	if coord == nil {
		coord = shutdown.New(log)
	}

	s := &Service{
		version:            ver,
		log:                log.WithComponent("lifecycle"),
		client:             client,
		plugins:            plugin.NewRegistry(log),
		coord:              coord,
		routeCallback:      o.routeCallback,
		middlewareCallback: o.middlewareCallback,
		cfg:                cfg,
		ready:              newReadySignal(),
	}

	for _, p := range o.plugins {
		if err := s.plugins.Register(p, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Use registers additional plugins. Valid only before Start.
func (s *Service) Use(plugins ...plugin.Plugin) error {
	for _, p := range plugins {
		if err := s.plugins.Register(p, s); err != nil {
			return err
		}
	}
	return nil
}

// Ready is closed once startup has settled, successfully or not.
func (s *Service) Ready() <-chan struct{} { return s.ready.ch }

// Wait blocks until startup settles or ctx expires, returning the
// registered descriptor or the first startup error.
func (s *Service) Wait(ctx context.Context) (*discovery.ServiceDescriptor, error) {
	select {
	case <-s.ready.ch:
		return s.ready.settled()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Descriptor returns the registered service descriptor, or nil before
// registration completes.
func (s *Service) Descriptor() *discovery.ServiceDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

// Coordinator returns the shutdown coordinator owning process termination.
func (s *Service) Coordinator() *shutdown.Coordinator { return s.coord }

// Shutdown raises the termination event and blocks until the drain
// sequence completes or ctx expires.
func (s *Service) Shutdown(ctx context.Context) error {
	s.coord.Trigger()
	select {
	case <-s.coord.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterRoutes mounts additional routes under routeBase on the live
// engine and re-advertises the full route table to the registry. The
// engine's routing tree is not synchronized against request dispatch, so
// late mounts must happen before traffic that targets the new paths is
// admitted.
func (s *Service) RegisterRoutes(ctx context.Context, routeBase string, mount func(*gin.RouterGroup)) error {
	s.mu.Lock()
	pipe := s.pipe
	s.mu.Unlock()
	if pipe == nil {
		return fmt.Errorf("lifecycle: RegisterRoutes called before the listener is live")
	}
	if mount != nil {
		mount(pipe.Engine().Group(routeBase))
	}
	return s.client.RegisterRoutes(ctx, pipe.RouteList())
}

// Log records a message at the given severity. Fatal and error entries are
// additionally forwarded to the instance health log with emission
// suppressed, so they never echo back through the event stream. Non-string
// messages are serialized with the panic-safe stringifier.
func (s *Service) Log(level string, message interface{}) {
	msg := logger.Stringify(message)
	switch strings.ToLower(level) {
	case "fatal":
		s.log.Fatal(msg)
		s.forwardToHealthLog("fatal", msg)
	case "error":
		s.log.Error(msg)
		s.forwardToHealthLog("error", msg)
	case "warn":
		s.log.Warn(msg)
	case "debug":
		s.log.Debug(msg)
	default:
		s.log.Info(msg)
	}
}

func (s *Service) forwardToHealthLog(level, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.client.SendToHealthLog(ctx, level, msg, true); err != nil {
		s.log.Debug("Health log forward failed", logger.Fields(logger.FieldError, err.Error()))
	}
}

// --- plugin.Owner ---

// Logger returns the service logger.
func (s *Service) Logger() *logger.Logger { return s.log }

// RuntimeConfig returns a defensive copy of the captured configuration.
func (s *Service) RuntimeConfig() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Copy()
}

// Engine returns the shared HTTP engine, or nil before the listener phase.
func (s *Service) Engine() *gin.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipe == nil {
		return nil
	}
	return s.pipe.Engine()
}
