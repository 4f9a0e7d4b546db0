// Package plugin defines the contracts between the WatchDesk core and its
// feature plugins. The core owns the process lifecycle, HTTP server, event
// bus, and SQLite store; plugins implement features (device inventory,
// ticketing, SNMP monitoring, realtime fan-out) against these interfaces.
package plugin

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// API version gates. A plugin compiled against an incompatible contract is
// disabled (or, if required, refuses startup) during registry validation.
const (
	APIVersionMin     = 1
	APIVersionCurrent = 1
)

// PluginInfo describes a plugin to the registry.
type PluginInfo struct {
	Name         string   // Unique identifier, e.g. "watch", "ticketing".
	Version      string   // Semantic version of the plugin.
	Description  string   // One-line human description.
	Dependencies []string // Names of plugins that must init first.
	APIVersion   int      // Contract version the plugin was built against.
	Required     bool     // Required plugins abort startup on failure.
}

// Dependencies is handed to each plugin at Init time.
type Dependencies struct {
	Logger *zap.Logger // Named logger for the plugin.
	Config Config      // Plugin-scoped configuration subtree.
	Store  Store       // Shared SQLite store (may be nil in tests).
	Bus    EventBus    // Shared event bus (may be nil in tests).
}

// Plugin is the interface every WatchDesk module implements.
type Plugin interface {
	// Info returns static plugin metadata.
	Info() PluginInfo

	// Init wires the plugin to its dependencies. No background work yet.
	Init(ctx context.Context, deps Dependencies) error

	// Start begins background operations (schedulers, subscriptions).
	Start(ctx context.Context) error

	// Stop gracefully shuts the plugin down.
	Stop(ctx context.Context) error
}

// Route represents an HTTP route exposed by a plugin. Routes are mounted
// under /api/v1/<plugin-name><Path>.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Config is the read-only configuration surface plugins receive.
// Implemented by internal/config over viper; nil-safe implementations
// return zero values.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetFloat64(key string) float64
	GetDuration(key string) time.Duration
	IsSet(key string) bool
	Sub(key string) Config
	Unmarshal(target any) error
}

// HealthStatus reports a plugin's health.
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}
