package pipeline

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/harborstack/keel/config"
	"github.com/harborstack/keel/errors"
	"github.com/harborstack/keel/logger"
)

func testPipeline(t *testing.T, publicFolder string) *Pipeline {
	t.Helper()
	cfg := &config.Config{
		ServiceDescriptor: config.ServiceDescriptor{
			ServiceName:        "svc",
			ServiceDescription: "test",
		},
		PublicFolder: publicFolder,
	}
	cfg.ApplyDefaults()
	if publicFolder != "" {
		cfg.PublicFolder = publicFolder
	}
	return New(cfg, "2.0.1", logger.NewDefault("test"))
}

func doRequest(p *Pipeline, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	p.Engine().ServeHTTP(w, req)
	return w
}

func TestSecureHeadersApplied(t *testing.T) {
	p := testPipeline(t, "")
	p.Build(nil)
	p.MountRoutes(func(e *gin.Engine) {
		e.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })
	})

	w := doRequest(p, "GET", "/ping", nil)

	if got := w.Header().Get("X-Powered-By"); got != "svc/2.0.1" {
		t.Errorf("expected X-Powered-By svc/2.0.1, got %q", got)
	}
	if got := w.Header().Get("Strict-Transport-Security"); !strings.Contains(got, "max-age=7776000") {
		t.Errorf("expected 90-day HSTS, got %q", got)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
	if w.Header().Get("X-Process-Id") == "" {
		t.Error("expected process identifier stamp")
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("expected request id header")
	}
}

func TestCORSPreflight(t *testing.T) {
	p := testPipeline(t, "")
	p.Build(nil)

	w := doRequest(p, "OPTIONS", "/anything", map[string]string{"Origin": "http://example.com"})

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Errorf("expected permissive origin echo, got %q", got)
	}
}

func TestCORSRestrictedOrigin(t *testing.T) {
	cfg := &config.Config{
		ServiceDescriptor: config.ServiceDescriptor{ServiceName: "svc"},
		CORS:              config.CORSOptions{AllowedOrigins: []string{"http://allowed.test"}},
	}
	p := New(cfg, "1.0.0", logger.NewDefault("test"))
	p.Build(nil)

	w := doRequest(p, "OPTIONS", "/x", map[string]string{"Origin": "http://other.test"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS headers for disallowed origin, got %q", got)
	}
}

func TestErrorWithoutStatusYields500(t *testing.T) {
	p := testPipeline(t, "")
	p.Build(nil)
	p.MountRoutes(func(e *gin.Engine) {
		e.GET("/boom", func(c *gin.Context) {
			c.Error(fmt.Errorf("database exploded"))
		})
	})

	w := doRequest(p, "GET", "/boom", nil)

	if w.Code != 500 {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var env errors.Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid envelope: %v", err)
	}
	if env.Code != 500 {
		t.Errorf("expected {code:500}, got %+v", env)
	}
	if strings.Contains(w.Body.String(), "database exploded") {
		t.Error("error message leaked to the client")
	}
}

func TestErrorWithNotFoundStatus(t *testing.T) {
	p := testPipeline(t, "")
	p.Build(nil)
	p.MountRoutes(func(e *gin.Engine) {
		e.GET("/gone", func(c *gin.Context) {
			c.Error(errors.NotFound("/gone"))
		})
	})

	w := doRequest(p, "GET", "/gone", nil)

	var env errors.Envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	if env.Code != 404 {
		t.Errorf("expected {code:404}, got %+v", env)
	}
}

func TestPanicRecovered(t *testing.T) {
	p := testPipeline(t, "")
	p.Build(nil)
	p.MountRoutes(func(e *gin.Engine) {
		e.GET("/panic", func(c *gin.Context) { panic("unexpected") })
	})

	w := doRequest(p, "GET", "/panic", nil)

	if w.Code != 500 {
		t.Errorf("expected 500 after panic, got %d", w.Code)
	}
	var env errors.Envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	if env.Code != 500 {
		t.Errorf("expected {code:500}, got %+v", env)
	}
}

func TestUnmatchedPathYields404Envelope(t *testing.T) {
	p := testPipeline(t, filepath.Join(t.TempDir(), "missing"))
	p.Build(nil)

	w := doRequest(p, "GET", "/nowhere", nil)

	if w.Code != 404 {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var env errors.Envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	if env.Code != 404 {
		t.Errorf("expected {code:404}, got %+v", env)
	}
}

func TestStaticAssetServed(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "app.css"), []byte("body{}"), 0o644)

	p := testPipeline(t, dir)
	p.Build(nil)

	w := doRequest(p, "GET", "/app.css", nil)
	if w.Code != 200 || w.Body.String() != "body{}" {
		t.Errorf("expected static asset, got %d %q", w.Code, w.Body.String())
	}
}

func TestSPACatchAllServesIndex(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644)

	p := testPipeline(t, dir)
	p.Build(nil)

	w := doRequest(p, "GET", "/deep/client/route", nil)
	if w.Code != 200 || !strings.Contains(w.Body.String(), "app") {
		t.Errorf("expected index.html fallback, got %d %q", w.Code, w.Body.String())
	}
}

func TestStaticTraversalRejected(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644)

	p := testPipeline(t, dir)
	p.Build(nil)

	w := doRequest(p, "GET", "/../go.mod", nil)
	if w.Code == 200 && strings.Contains(w.Body.String(), "module") {
		t.Error("path traversal escaped the public folder")
	}
}

func TestMiddlewareCallbackRunsBeforeRoutes(t *testing.T) {
	p := testPipeline(t, "")
	order := []string{}

	p.Build(func(e *gin.Engine) {
		e.Use(func(c *gin.Context) {
			order = append(order, "middleware")
			c.Next()
		})
	})
	p.MountRoutes(func(e *gin.Engine) {
		e.GET("/r", func(c *gin.Context) {
			order = append(order, "route")
			c.String(200, "ok")
		})
	})

	doRequest(p, "GET", "/r", nil)

	if len(order) != 2 || order[0] != "middleware" || order[1] != "route" {
		t.Errorf("expected [middleware route], got %v", order)
	}
}

func TestRouteListDerivation(t *testing.T) {
	p := testPipeline(t, "")
	p.Build(nil)
	p.MountRoutes(func(e *gin.Engine) {
		v1 := e.Group("/v1")
		v1.GET("/users", func(c *gin.Context) {})
		v1.POST("/users", func(c *gin.Context) {})
	})

	list := p.RouteList()
	want := map[string]bool{"[GET]/v1/users": false, "[POST]/v1/users": false}
	for _, r := range list {
		if _, ok := want[r]; ok {
			want[r] = true
		}
	}
	for r, seen := range want {
		if !seen {
			t.Errorf("expected %s in route list %v", r, list)
		}
	}
}

func TestParseSize(t *testing.T) {
	if got := parseSize("10MB", 1); got != 10*1024*1024 {
		t.Errorf("10MB: got %d", got)
	}
	if got := parseSize("512KB", 1); got != 512*1024 {
		t.Errorf("512KB: got %d", got)
	}
	if got := parseSize("", 42); got != 42 {
		t.Errorf("empty: got %d", got)
	}
	if got := parseSize("bogus", 42); got != 42 {
		t.Errorf("bogus: got %d", got)
	}
}
