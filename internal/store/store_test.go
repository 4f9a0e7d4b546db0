package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/HerbHall/watchdesk/pkg/plugin"
)

func testMigrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create things table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`CREATE TABLE things (id TEXT PRIMARY KEY, name TEXT)`)
				return err
			},
		},
		{
			Version:     2,
			Description: "add index",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`CREATE INDEX idx_things_name ON things(name)`)
				return err
			},
		},
	}
}

func TestMigrateAndQuery(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	if err := s.Migrate(ctx, "test", testMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if _, err := s.DB().ExecContext(ctx, `INSERT INTO things (id, name) VALUES ('a', 'alpha')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var name string
	if err := s.DB().QueryRowContext(ctx, `SELECT name FROM things WHERE id = 'a'`).Scan(&name); err != nil {
		t.Fatalf("select: %v", err)
	}
	if name != "alpha" {
		t.Errorf("name = %q, want %q", name, "alpha")
	}
}

func TestMigrateIdempotent(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	if err := s.Migrate(ctx, "test", testMigrations()); err != nil {
		t.Fatalf("first Migrate() error = %v", err)
	}
	// Re-running the same migrations must be a no-op.
	if err := s.Migrate(ctx, "test", testMigrations()); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	var count int
	err = s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM _migrations WHERE plugin_name = 'test'`).Scan(&count)
	if err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("applied migrations = %d, want 2", count)
	}
}

func TestTxRollback(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	if err := s.Migrate(ctx, "test", testMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	wantErr := sql.ErrTxDone // any sentinel works for the assertion
	err = s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO things (id, name) VALUES ('x', 'rollback-me')`); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("Tx() error = %v, want %v", err, wantErr)
	}

	var count int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM things`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("rows after rollback = %d, want 0", count)
	}
}
