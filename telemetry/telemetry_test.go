package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/harborstack/keel/config"
	"github.com/harborstack/keel/logger"
)

type stubOwner struct {
	cfg *config.Config
}

func (o *stubOwner) Logger() *logger.Logger        { return logger.NewDefault("test") }
func (o *stubOwner) RuntimeConfig() *config.Config { return o.cfg.Copy() }
func (o *stubOwner) Engine() *gin.Engine           { return nil }

func testPlugin(t *testing.T) *Plugin {
	t.Helper()
	cfg := &config.Config{
		ServiceDescriptor: config.ServiceDescriptor{
			ServiceName:    "svc",
			ServiceVersion: "1.2.3",
		},
		Environment: "development",
		TestMode:    true,
	}

	p := New(WithSampleRate(1.0))
	p.BindLifecycle(&stubOwner{cfg: cfg})
	if err := p.ApplyConfig(context.Background(), cfg); err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p
}

func TestPluginName(t *testing.T) {
	if got := New().Name(); got != "telemetry" {
		t.Errorf("expected plugin name telemetry, got %q", got)
	}
}

func TestApplyConfigInitializesProviders(t *testing.T) {
	p := testPlugin(t)
	if p.Metrics() == nil {
		t.Error("expected request metrics after config phase")
	}
	if err := p.OnReady(context.Background()); err != nil {
		t.Errorf("OnReady: %v", err)
	}
}

func TestMiddlewarePassesRequestsThrough(t *testing.T) {
	p := testPlugin(t)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(p.Middleware())
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "pong" {
		t.Errorf("expected body pong, got %q", w.Body.String())
	}
}

func TestMiddlewareHandlesUnmatchedRoutes(t *testing.T) {
	p := testPlugin(t)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(p.Middleware())

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
