// Package inventory is the device registry: it owns the inventory_devices
// table and exposes CRUD over devices. Observed state (status, last_seen,
// metrics) is written exclusively by the watch module through the repository's
// UpdateStatus method.
package inventory

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/HerbHall/watchdesk/pkg/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

// Module implements the inventory plugin.
type Module struct {
	logger *zap.Logger
	repo   DeviceRepository
}

// New creates a new inventory module.
func New() *Module {
	return &Module{}
}

// Info implements plugin.Plugin.
func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "inventory",
		Version:     "0.1.0",
		Description: "Device registry with SNMP credentials and alert thresholds",
		APIVersion:  plugin.APIVersionCurrent,
		Required:    true,
	}
}

// Init implements plugin.Plugin.
func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	if deps.Store == nil {
		return fmt.Errorf("inventory requires a store")
	}
	if err := deps.Store.Migrate(ctx, "inventory", migrations()); err != nil {
		return fmt.Errorf("inventory migrations: %w", err)
	}
	m.repo = NewSQLiteDeviceRepository(deps.Store.DB())

	m.logger.Info("inventory module initialized")
	return nil
}

// Start implements plugin.Plugin.
func (m *Module) Start(ctx context.Context) error {
	return nil
}

// Stop implements plugin.Plugin.
func (m *Module) Stop(ctx context.Context) error {
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	if m.repo == nil {
		return plugin.HealthStatus{Healthy: false, Message: "repository not initialized"}
	}
	return plugin.HealthStatus{Healthy: true}
}

// Repository exposes the device registry to other modules.
func (m *Module) Repository() DeviceRepository {
	return m.repo
}

func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create inventory_devices table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS inventory_devices (
						id           TEXT PRIMARY KEY,
						name         TEXT NOT NULL UNIQUE,
						ip_address   TEXT NOT NULL UNIQUE,
						community    TEXT NOT NULL DEFAULT 'public',
						snmp_version TEXT NOT NULL DEFAULT '2c',
						device_type  TEXT NOT NULL DEFAULT 'other',
						location     TEXT NOT NULL DEFAULT '',
						department   TEXT NOT NULL DEFAULT '',
						thresholds   TEXT NOT NULL DEFAULT '{}',
						monitored    INTEGER NOT NULL DEFAULT 1,
						status       TEXT NOT NULL DEFAULT 'offline',
						last_seen    TIMESTAMP,
						metrics      TEXT,
						created_at   TIMESTAMP NOT NULL,
						updated_at   TIMESTAMP NOT NULL
					);
					CREATE INDEX IF NOT EXISTS idx_inventory_devices_monitored
						ON inventory_devices(monitored);
					CREATE INDEX IF NOT EXISTS idx_inventory_devices_status
						ON inventory_devices(status);
				`)
				return err
			},
		},
	}
}
