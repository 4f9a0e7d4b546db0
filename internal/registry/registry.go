// Package registry manages the plugin lifecycle: registration, dependency
// validation, ordered init/start, and reverse-ordered stop. Optional plugins
// that fail validation or init are disabled rather than aborting startup;
// required plugins abort.
package registry

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/HerbHall/watchdesk/pkg/plugin"
)

// Registry holds all registered plugins.
type Registry struct {
	logger *zap.Logger

	mu       sync.RWMutex
	plugins  map[string]plugin.Plugin
	order    []string // Topological init order, set by Validate.
	disabled map[string]string
	started  []string // Names started, in start order.
}

// New creates an empty Registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		logger:   logger,
		plugins:  make(map[string]plugin.Plugin),
		disabled: make(map[string]string),
	}
}

// Register adds a plugin. Names must be unique and non-empty.
func (r *Registry) Register(p plugin.Plugin) error {
	info := p.Info()
	if info.Name == "" {
		return fmt.Errorf("plugin has empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[info.Name]; exists {
		return fmt.Errorf("plugin %q already registered", info.Name)
	}
	r.plugins[info.Name] = p
	r.order = append(r.order, info.Name)
	return nil
}

// Validate checks API versions and dependency declarations and computes the
// init order. Optional plugins with problems are disabled (cascading to their
// dependents); problems in required plugins are errors.
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// API version gate.
	for name, p := range r.plugins {
		info := p.Info()
		if info.APIVersion < plugin.APIVersionMin || info.APIVersion > plugin.APIVersionCurrent {
			reason := fmt.Sprintf("incompatible API version %d (supported %d..%d)",
				info.APIVersion, plugin.APIVersionMin, plugin.APIVersionCurrent)
			if info.Required {
				return fmt.Errorf("required plugin %q: %s", name, reason)
			}
			r.disabled[name] = reason
		}
	}

	// Missing dependencies.
	for name, p := range r.plugins {
		if _, off := r.disabled[name]; off {
			continue
		}
		for _, dep := range p.Info().Dependencies {
			if _, ok := r.plugins[dep]; !ok {
				reason := fmt.Sprintf("missing dependency %q", dep)
				if p.Info().Required {
					return fmt.Errorf("required plugin %q: %s", name, reason)
				}
				r.disabled[name] = reason
			}
		}
	}

	// Cascade: disable dependents of disabled plugins.
	for changed := true; changed; {
		changed = false
		for name, p := range r.plugins {
			if _, off := r.disabled[name]; off {
				continue
			}
			for _, dep := range p.Info().Dependencies {
				if reason, off := r.disabled[dep]; off {
					r.disabled[name] = fmt.Sprintf("dependency %q disabled: %s", dep, reason)
					changed = true
				}
			}
		}
	}

	order, err := r.topoSort()
	if err != nil {
		return err
	}
	r.order = order

	for name, reason := range r.disabled {
		r.logger.Warn("plugin disabled",
			zap.String("plugin", name),
			zap.String("reason", reason),
		)
	}
	return nil
}

// topoSort orders plugins so dependencies init before dependents.
// Caller holds r.mu.
func (r *Registry) topoSort() ([]string, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(r.plugins))
	var order []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("plugin dependency cycle involving %q", name)
		}
		state[name] = visiting
		p, ok := r.plugins[name]
		if ok {
			for _, dep := range p.Info().Dependencies {
				if _, exists := r.plugins[dep]; !exists {
					continue // Already handled as missing dep.
				}
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	for name := range r.plugins {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// InitAll initializes plugins in dependency order. depsFor supplies each
// plugin's Dependencies. A failing optional plugin is disabled; a failing
// required plugin aborts.
func (r *Registry) InitAll(ctx context.Context, depsFor func(name string) plugin.Dependencies) error {
	r.mu.Lock()
	order := append([]string(nil), r.order...)
	r.mu.Unlock()

	for _, name := range order {
		if r.IsDisabled(name) {
			continue
		}
		p := r.plugins[name]
		if err := p.Init(ctx, depsFor(name)); err != nil {
			if p.Info().Required {
				return fmt.Errorf("init plugin %q: %w", name, err)
			}
			r.mu.Lock()
			r.disabled[name] = fmt.Sprintf("init failed: %v", err)
			r.mu.Unlock()
			r.logger.Warn("optional plugin disabled after init failure",
				zap.String("plugin", name),
				zap.Error(err),
			)
			continue
		}
		r.logger.Debug("plugin initialized", zap.String("plugin", name))
	}
	return nil
}

// StartAll starts enabled plugins in init order.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	order := append([]string(nil), r.order...)
	r.mu.Unlock()

	for _, name := range order {
		if r.IsDisabled(name) {
			continue
		}
		p := r.plugins[name]
		if err := p.Start(ctx); err != nil {
			if p.Info().Required {
				return fmt.Errorf("start plugin %q: %w", name, err)
			}
			r.mu.Lock()
			r.disabled[name] = fmt.Sprintf("start failed: %v", err)
			r.mu.Unlock()
			r.logger.Warn("optional plugin disabled after start failure",
				zap.String("plugin", name),
				zap.Error(err),
			)
			continue
		}
		r.mu.Lock()
		r.started = append(r.started, name)
		r.mu.Unlock()
		r.logger.Info("plugin started", zap.String("plugin", name))
	}
	return nil
}

// StopAll stops started plugins in reverse start order. Stop errors are
// logged, never propagated; shutdown continues.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	started := append([]string(nil), r.started...)
	r.started = nil
	r.mu.Unlock()

	for i := len(started) - 1; i >= 0; i-- {
		name := started[i]
		if err := r.plugins[name].Stop(ctx); err != nil {
			r.logger.Warn("plugin stop failed",
				zap.String("plugin", name),
				zap.Error(err),
			)
		}
	}
}

// Get returns the named plugin.
func (r *Registry) Get(name string) (plugin.Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// All returns enabled plugins in init order.
func (r *Registry) All() []plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]plugin.Plugin, 0, len(r.order))
	for _, name := range r.order {
		if _, off := r.disabled[name]; off {
			continue
		}
		if p, ok := r.plugins[name]; ok {
			out = append(out, p)
		}
	}
	return out
}

// AllRoutes returns HTTP routes per enabled plugin implementing HTTPProvider.
func (r *Registry) AllRoutes() map[string][]plugin.Route {
	routes := make(map[string][]plugin.Route)
	for _, p := range r.All() {
		if hp, ok := p.(plugin.HTTPProvider); ok {
			routes[p.Info().Name] = hp.Routes()
		}
	}
	return routes
}

// InstallSubscriptions registers the declared subscriptions of every enabled
// EventSubscriber plugin on the bus. Called once after InitAll.
func (r *Registry) InstallSubscriptions(bus plugin.EventBus) {
	for _, p := range r.All() {
		es, ok := p.(plugin.EventSubscriber)
		if !ok {
			continue
		}
		for _, sub := range es.Subscriptions() {
			bus.Subscribe(sub.Topic, sub.Handler)
			r.logger.Debug("subscription installed",
				zap.String("plugin", p.Info().Name),
				zap.String("topic", sub.Topic),
			)
		}
	}
}

// IsDisabled reports whether a plugin was disabled during validation or init.
func (r *Registry) IsDisabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, off := r.disabled[name]
	return off
}
