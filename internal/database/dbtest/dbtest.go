// Package dbtest opens throwaway SQLite databases with the production schema
// applied, for repository and service tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver, no cgo

	"pushsvc/internal/database"
)

// New returns a migrated database that is closed when the test ends.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "push.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// SQLite has a single writer; serialize at the pool instead of retrying SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}
