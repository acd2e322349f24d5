package lifecycle

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/harborstack/keel/config"
	"github.com/harborstack/keel/discovery"
	"github.com/harborstack/keel/errors"
	"github.com/harborstack/keel/logger"
	"github.com/harborstack/keel/pipeline"
)

// Start drives the ordered startup sequence: registry connection, plugin
// config broadcast, service registration, listener bind with route
// advertisement, plugin ready broadcast. The sequence short-circuits on the
// first failure; failures past the connection phase additionally raise the
// termination event so partially-registered state is torn down. Start
// settles the ready signal exactly once and may be called at most once.
func (s *Service) Start(ctx context.Context) (*discovery.ServiceDescriptor, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, fmt.Errorf("lifecycle: Start called twice; a service owns at most one listener")
	}
	s.started = true
	s.mu.Unlock()

	desc, err := s.run(ctx)
	if err != nil {
		s.ready.reject(err)
		return nil, err
	}
	s.ready.resolve(desc)
	return desc, nil
}

func (s *Service) run(ctx context.Context) (*discovery.ServiceDescriptor, error) {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	s.log.Info("Connecting to service registry", logger.Fields(logger.FieldPhase, "init"))
	resolved, err := s.client.Init(ctx, cfg, cfg.TestMode)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cfg = resolved
	s.mu.Unlock()

	// From here on a registry connection exists, so any failure that raises
	// the termination event must deregister and release it, even though no
	// listener is armed yet.
	s.coord.SetDeregister(s.client.Shutdown)
	go s.pumpEvents()

	// Every plugin sees the resolved config before any plugin is told the
	// service is ready.
	if err := s.plugins.ApplyConfig(ctx, resolved.Copy()); err != nil {
		s.coord.Trigger()
		return nil, err
	}

	s.log.Info("Registering service instance", logger.Fields(logger.FieldPhase, "register"))
	desc, err := s.client.RegisterService(ctx)
	if err != nil {
		s.coord.Trigger()
		return nil, err
	}
	s.mu.Lock()
	s.desc = desc
	s.mu.Unlock()

	if err := s.listen(ctx, resolved); err != nil {
		s.coord.Trigger()
		return nil, err
	}

	if err := s.plugins.NotifyReady(ctx); err != nil {
		s.coord.Trigger()
		return nil, err
	}

	s.log.Info("Service ready", logger.Fields(
		"instance", desc.InstanceID,
		"port", desc.ServicePort,
	))
	return desc, nil
}

// listen assembles the pipeline, binds the port, mounts user routes, then
// starts serving, arms the shutdown coordinator, and advertises the route
// table. Route advertisement failure is logged but not fatal; the service
// is reachable even when the registry missed the table.
func (s *Service) listen(ctx context.Context, cfg *config.Config) error {
	port := cfg.ServiceDescriptor.ServicePort
	pipe := pipeline.New(cfg, s.version, s.log)
	pipe.Build(s.middlewareCallback)

	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return classifyListenError(err, port)
	}

	// Routes mount after the bind succeeds but before the server accepts
	// its first request: discovery never advertises routes for a listener
	// that failed to come up, and the routing tree is never mutated while
	// requests are in flight.
	pipe.MountRoutes(s.routeCallback)
	routes := pipe.RouteList()

	// Cleartext HTTP/2 alongside HTTP/1.1 on the same port.
	srv := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(pipe.Engine(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.pipe = pipe
	s.server = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server stopped", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.coord.Arm(srv.Shutdown, s.client.Shutdown)

	if err := s.client.RegisterRoutes(ctx, routes); err != nil {
		s.log.Warn("Route advertisement failed", logger.Fields(logger.FieldError, err.Error()))
	}

	s.log.Info("Listening", logger.Fields("addr", addr, "routes", len(routes)))
	return nil
}

func (s *Service) pumpEvents() {
	for ev := range s.client.Events() {
		if suppressEvent(ev) {
			continue
		}
		switch strings.ToLower(ev.Level) {
		case "fatal", "error":
			s.log.Error(ev.Message)
		case "warn":
			s.log.Warn(ev.Message)
		case "debug":
			s.log.Debug(ev.Message)
		default:
			s.log.Info(ev.Message)
		}
	}
}

// suppressEvent drops registry-client noise that carries no signal for a
// service instance, most notably the router-availability complaint emitted
// when the optional router indirection has no live instances.
func suppressEvent(ev discovery.Event) bool {
	if ev.Kind == discovery.KindRouterUnavailable {
		return true
	}
	return strings.Contains(ev.Message, discovery.RouterUnavailableMarker)
}

// classifyListenError maps bind failures to actionable diagnostics. Ports
// below 1024 need elevated privileges; a taken port names the likely owner
// of the conflict.
func classifyListenError(err error, port int) *errors.KitError {
	switch {
	case stderrors.Is(err, syscall.EADDRINUSE):
		return errors.Listen(fmt.Sprintf("port %d is already in use by another process", port), err)
	case stderrors.Is(err, syscall.EACCES):
		return errors.Listen(fmt.Sprintf("insufficient privileges to bind port %d", port), err)
	default:
		return errors.Listen(fmt.Sprintf("unable to bind port %d", port), err)
	}
}
