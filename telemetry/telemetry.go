// Package telemetry is an optional lifecycle plugin wiring OpenTelemetry
// tracing and metrics into a service. Providers are initialized during the
// config broadcast so every later phase, plugin, and request handler can
// reach them through the otel globals.
package telemetry

import (
	"context"
	"sync"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/harborstack/keel/config"
	"github.com/harborstack/keel/logger"
	"github.com/harborstack/keel/plugin"
)

const (
	defaultEndpoint = "localhost:4318"
	defaultInterval = 15 * time.Second
)

// identity is the service metadata stamped onto every span and metric.
type identity struct {
	serviceName    string
	serviceVersion string
	environment    string
}

// Plugin initializes tracer and meter providers from the resolved service
// configuration. In test mode it builds in-process providers with no
// exporter so tests never open network connections.
type Plugin struct {
	endpoint   string
	insecure   bool
	sampleRate float64
	interval   time.Duration

	mu      sync.Mutex
	owner   plugin.Owner
	log     *logger.Logger
	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	metrics *RequestMetrics
}

// Option configures the telemetry plugin.
type Option func(*Plugin)

// WithEndpoint sets the OTLP HTTP endpoint (host:port).
func WithEndpoint(endpoint string) Option {
	return func(p *Plugin) { p.endpoint = endpoint }
}

// WithInsecure allows cleartext OTLP export.
func WithInsecure() Option {
	return func(p *Plugin) { p.insecure = true }
}

// WithSampleRate sets the trace sampling rate in [0, 1].
func WithSampleRate(rate float64) Option {
	return func(p *Plugin) { p.sampleRate = rate }
}

// WithExportInterval sets the metric export interval.
func WithExportInterval(d time.Duration) Option {
	return func(p *Plugin) { p.interval = d }
}

// New creates the telemetry plugin with development-friendly defaults:
// local collector, insecure transport, full sampling.
func New(opts ...Option) *Plugin {
	p := &Plugin{
		endpoint:   defaultEndpoint,
		insecure:   true,
		sampleRate: 1.0,
		interval:   defaultInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the plugin registration name.
func (p *Plugin) Name() string { return "telemetry" }

// BindLifecycle captures the owning service.
func (p *Plugin) BindLifecycle(owner plugin.Owner) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.owner = owner
	p.log = owner.Logger().WithComponent("telemetry")
}

// ApplyConfig initializes the tracer and meter providers with the resolved
// service identity.
func (p *Plugin) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	id := identity{
		serviceName:    cfg.ServiceDescriptor.ServiceName,
		serviceVersion: cfg.ServiceDescriptor.ServiceVersion,
		environment:    cfg.Environment,
	}

	tp, err := p.initTracer(ctx, id, cfg.TestMode)
	if err != nil {
		return err
	}
	mp, err := p.initMeter(ctx, id, cfg.TestMode)
	if err != nil {
		return err
	}
	metrics, err := newRequestMetrics(id.serviceName)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.tp = tp
	p.mp = mp
	p.metrics = metrics
	p.mu.Unlock()

	p.log.Info("Telemetry providers initialized", logger.Fields(
		"endpoint", p.endpoint,
		"sample_rate", p.sampleRate,
	))
	return nil
}

// OnReady marks the instance live.
func (p *Plugin) OnReady(ctx context.Context) error {
	p.log.Debug("Telemetry ready")
	return nil
}

// Metrics returns the request instruments, or nil before the config phase.
func (p *Plugin) Metrics() *RequestMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

// Shutdown flushes and stops both providers. Hosts call this after the
// lifecycle drain completes; plugins have no teardown phase of their own.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	tp, mp := p.tp, p.mp
	p.mu.Unlock()

	var firstErr error
	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if mp != nil {
		if err := mp.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
