package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/harborstack/keel/config"
	"github.com/harborstack/keel/errors"
	"github.com/harborstack/keel/logger"
)

// Registry holds registered plugins in order and drives their two-phase
// startup broadcast. Phases run in strict registration order and a phase
// completes for every plugin before the next begins; a slow or failing
// plugin therefore blocks startup for all others, so no partial-plugin
// state can leak into ready.
type Registry struct {
	plugins       []Plugin
	lookup        map[string]Plugin
	configApplied bool
	log           *logger.Logger
	mu            sync.Mutex
}

// NewRegistry creates an empty plugin registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		lookup: make(map[string]Plugin),
		log:    log.WithComponent("plugins"),
	}
}

// Register adds a plugin and binds it to its owner. Nil plugins, empty
// names, and duplicate names are rejected.
func (r *Registry) Register(p Plugin, owner Owner) error {
	if p == nil {
		return fmt.Errorf("plugin: cannot register nil plugin")
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugin: plugin name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.configApplied {
		return fmt.Errorf("plugin: %s registered after startup began", name)
	}
	if _, exists := r.lookup[name]; exists {
		return fmt.Errorf("plugin: %s already registered", name)
	}

	p.BindLifecycle(owner)
	r.plugins = append(r.plugins, p)
	r.lookup[name] = p

	r.log.Debug("Plugin registered", logger.Fields("plugin", name))
	return nil
}

// ApplyConfig broadcasts the resolved configuration to every plugin in
// registration order. The first failure aborts the broadcast.
func (r *Registry) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.plugins {
		if err := p.ApplyConfig(ctx, cfg); err != nil {
			r.log.Error("Plugin config phase failed", logger.Fields(
				"plugin", p.Name(), logger.FieldError, err.Error(),
			))
			return errors.Plugin(p.Name(), "config", err)
		}
	}
	r.configApplied = true
	return nil
}

// NotifyReady broadcasts the ready notification in registration order. It
// refuses to run before ApplyConfig has completed for all plugins.
func (r *Registry) NotifyReady(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.configApplied && len(r.plugins) > 0 {
		return fmt.Errorf("plugin: ready phase before config phase")
	}

	for _, p := range r.plugins {
		if err := p.OnReady(ctx); err != nil {
			r.log.Error("Plugin ready phase failed", logger.Fields(
				"plugin", p.Name(), logger.FieldError, err.Error(),
			))
			return errors.Plugin(p.Name(), "ready", err)
		}
	}
	return nil
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.plugins)
}

// Get returns a registered plugin by name, or nil.
func (r *Registry) Get(name string) Plugin {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup[name]
}
