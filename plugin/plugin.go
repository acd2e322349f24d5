package plugin

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/harborstack/keel/config"
	"github.com/harborstack/keel/logger"
)

// Owner is the surface a plugin may call back into. It is bound once,
// before the config phase. Plugins read the engine; they never replace it.
type Owner interface {
	// Logger returns the owning service's logger.
	Logger() *logger.Logger

	// RuntimeConfig returns a defensive copy of the captured configuration.
	RuntimeConfig() *config.Config

	// Engine returns the shared HTTP engine.
	Engine() *gin.Engine
}

// Plugin is a lifecycle extension. Implementations are registered before
// startup and live for the process lifetime; there is no per-plugin
// teardown. All operations are required, so a half-implemented extension
// is rejected at compile time rather than mid-lifecycle.
type Plugin interface {
	// Name returns the unique plugin name for registration.
	Name() string

	// BindLifecycle hands the plugin its owner. Called once at
	// registration, before any phase.
	BindLifecycle(owner Owner)

	// ApplyConfig propagates the resolved configuration. Phase one of the
	// startup broadcast; an error here aborts startup.
	ApplyConfig(ctx context.Context, cfg *config.Config) error

	// OnReady notifies the plugin that the listener is live and the
	// service is registered. Phase two of the startup broadcast.
	OnReady(ctx context.Context) error
}
