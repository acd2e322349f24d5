package telemetry

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/harborstack/keel/telemetry"

// Middleware traces and measures each request. Pass it through the
// lifecycle's middleware callback so it sits inside the fixed pipeline:
//
//	lifecycle.WithMiddleware(func(e *gin.Engine) {
//		e.Use(tel.Middleware())
//	})
func (p *Plugin) Middleware() gin.HandlerFunc {
	propagator := otel.GetTextMapPropagator()

	return func(c *gin.Context) {
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		spanName := c.Request.Method + " " + route

		ctx, span := otel.Tracer(tracerName).Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", c.Request.URL.Path),
			),
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		metrics := p.Metrics()
		if metrics != nil {
			metrics.RecordStart(ctx)
		}
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}
		if metrics != nil {
			metrics.RecordEnd(ctx, c.Request.Method, route, fmt.Sprintf("%d", status), time.Since(start))
		}
	}
}
