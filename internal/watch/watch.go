// Package watch is the polling and alerting core: a fixed-interval SNMP
// poller that classifies device health against per-device thresholds, writes
// transitions through the inventory registry, announces them on the event
// bus, and opens incident tickets for critical conditions.
package watch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/HerbHall/watchdesk/internal/inventory"
	"github.com/HerbHall/watchdesk/internal/ticketing"
	"github.com/HerbHall/watchdesk/pkg/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

// Module implements the watch plugin.
type Module struct {
	logger    *zap.Logger
	cfg       Config
	inventory *inventory.Module
	ticketing *ticketing.Module
	poller    *Poller
}

// New creates the watch module. The inventory and ticketing modules are
// handed over up front; their repositories are resolved at Init, after the
// registry has initialized them (they precede watch in dependency order).
func New(inv *inventory.Module, tk *ticketing.Module) *Module {
	return &Module{inventory: inv, ticketing: tk}
}

// Info implements plugin.Plugin.
func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "watch",
		Version:      "0.1.0",
		Description:  "SNMP device poller with threshold alerting",
		Dependencies: []string{"inventory", "ticketing"},
		APIVersion:   plugin.APIVersionCurrent,
		Required:     true,
	}
}

// Init implements plugin.Plugin.
func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.cfg = loadConfig(deps.Config)

	registry := m.inventory.Repository()
	if registry == nil {
		return fmt.Errorf("watch requires the inventory repository")
	}

	ticketer := NewTicketer(m.logger, m.ticketing, m.cfg.SystemRequester, m.cfg.TicketDedupWindow)

	var prober Prober
	if m.cfg.ICMPProbe {
		prober = &ICMPProber{Timeout: m.cfg.SNMPTimeout}
	}

	reconciler := NewReconciler(m.logger, registry, deps.Bus, ticketer, prober, m.cfg.ClassifyDisk)
	querier := NewSessionPool(m.logger, m.cfg.SNMPTimeout, m.cfg.SNMPRetries)
	m.poller = NewPoller(m.logger, m.cfg, registry, querier, reconciler)

	m.logger.Info("watch module initialized",
		zap.Duration("interval", m.cfg.Interval),
		zap.Int64("max_in_flight", m.cfg.MaxInFlight))
	return nil
}

// Start implements plugin.Plugin.
func (m *Module) Start(ctx context.Context) error {
	m.poller.Start()
	return nil
}

// Stop implements plugin.Plugin.
func (m *Module) Stop(ctx context.Context) error {
	m.poller.Stop()
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	if m.poller == nil || !m.poller.Running() {
		return plugin.HealthStatus{Healthy: false, Message: "poller not running"}
	}
	return plugin.HealthStatus{Healthy: true}
}
