package pipeline

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/harborstack/keel/config"
	"github.com/harborstack/keel/logger"
)

// Callback mounts middleware or routes on the shared engine.
type Callback func(engine *gin.Engine)

// Pipeline assembles the request-handling middleware chain. Assembly order
// is a strict invariant: identification stamping, security headers, CORS,
// body limits, user middleware, then the static/route/fallback chain.
// Moving body handling after user middleware would break any middleware
// that expects a decoded body, so Build owns the sequence and callers only
// supply callbacks.
type Pipeline struct {
	engine         *gin.Engine
	cfg            *config.Config
	serviceName    string
	serviceVersion string
	log            *logger.Logger
}

// New creates a pipeline for the given service identity.
func New(cfg *config.Config, serviceVersion string, log *logger.Logger) *Pipeline {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Pipeline{
		engine:         gin.New(),
		cfg:            cfg,
		serviceName:    cfg.ServiceDescriptor.ServiceName,
		serviceVersion: serviceVersion,
		log:            log.WithComponent("pipeline"),
	}
}

// Engine returns the underlying engine.
func (p *Pipeline) Engine() *gin.Engine { return p.engine }

// Build assembles the fixed middleware sequence and invokes the user
// middleware callback. Route registration happens separately, once the
// listener is live (MountRoutes). The terminal error handler is installed
// outermost so it observes every later stage.
func (p *Pipeline) Build(middlewareCallback Callback) {
	p.engine.Use(ErrorHandler(p.log))
	p.engine.Use(RequestID())
	p.engine.Use(RequestLogger(p.log))
	p.engine.Use(ProcessStamp())
	p.engine.Use(SecureHeaders(p.serviceName, p.serviceVersion))
	p.engine.Use(CORS(p.cfg.CORS))
	p.engine.Use(BodyLimit(p.cfg.Body.MaxSize))
	p.engine.Use(FormOptions(p.cfg.Body.FormExtended))

	if middlewareCallback != nil {
		middlewareCallback(p.engine)
	}

	// Static assets, SPA catch-all, and the 404 envelope share the
	// unmatched-request chain, tried in that order.
	p.engine.NoRoute(Fallback(p.cfg.PublicFolder))
}

// MountRoutes invokes the user route registration callback. The lifecycle
// calls this only after the listener is bound, so routes always mount on a
// live server and match discovery-registration timing.
func (p *Pipeline) MountRoutes(routeCallback Callback) {
	if routeCallback != nil {
		routeCallback(p.engine)
	}
}

// RouteList derives the flat advertised route table ("[GET]/v1/users")
// from the engine's explicit route enumeration. Mounts that contribute no
// concrete route simply do not appear.
func (p *Pipeline) RouteList() []string {
	routes := p.engine.Routes()
	out := make([]string, 0, len(routes))
	for _, r := range routes {
		if r.Path == "" {
			continue
		}
		out = append(out, fmt.Sprintf("[%s]%s", strings.ToUpper(r.Method), r.Path))
	}
	return out
}
