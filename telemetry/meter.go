package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// initMeter builds the meter provider and installs it globally. Test mode
// skips the periodic OTLP reader.
func (p *Plugin) initMeter(ctx context.Context, id identity, testMode bool) (*sdkmetric.MeterProvider, error) {
	res, err := newResource(id)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if !testMode {
		expOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(p.endpoint)}
		if p.insecure {
			expOpts = append(expOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, expOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating metric exporter: %w", err)
		}
		readerOpts := []sdkmetric.PeriodicReaderOption{}
		if p.interval > 0 {
			readerOpts = append(readerOpts, sdkmetric.WithInterval(p.interval))
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)))
	}

	mp := sdkmetric.NewMeterProvider(mpOpts...)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// RequestMetrics holds the per-request instruments recorded by the tracing
// middleware.
type RequestMetrics struct {
	serviceName     string
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
}

func newRequestMetrics(serviceName string) (*RequestMetrics, error) {
	meter := otel.Meter("github.com/harborstack/keel/telemetry")

	requestTotal, err := meter.Int64Counter("request.total",
		metric.WithDescription("Total number of requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request.total counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("request.duration",
		metric.WithDescription("Duration of requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request.duration histogram: %w", err)
	}

	requestActive, err := meter.Int64UpDownCounter("request.active",
		metric.WithDescription("Number of currently active requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request.active gauge: %w", err)
	}

	return &RequestMetrics{
		serviceName:     serviceName,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestActive:   requestActive,
	}, nil
}

// RecordStart increments the active request count.
func (m *RequestMetrics) RecordStart(ctx context.Context) {
	m.requestActive.Add(ctx, 1)
}

// RecordEnd decrements active requests and records the completed request.
func (m *RequestMetrics) RecordEnd(ctx context.Context, method, route, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("service", m.serviceName),
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", status),
	)
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("service", m.serviceName),
		attribute.String("method", method),
		attribute.String("route", route),
	))
}
