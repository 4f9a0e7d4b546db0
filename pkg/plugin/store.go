package plugin

import (
	"context"
	"database/sql"
)

// Migration is a single schema migration owned by a plugin. Migrations are
// applied in ascending Version order and tracked per plugin.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// Store is the persistence surface shared by all plugins.
type Store interface {
	// DB returns the underlying database handle for direct queries.
	DB() *sql.DB

	// Tx runs fn inside a transaction, committing on nil error.
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error

	// Migrate applies the plugin's pending migrations.
	Migrate(ctx context.Context, pluginName string, migrations []Migration) error

	// Close closes the store.
	Close() error
}
