// Package repotest opens throwaway SQLite databases with the server schema
// applied, for tests of repositories and the code built on them.
package repotest

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/gophaccounts/internal/server/migrations"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteDSN returns a DSN for a database file inside dir with foreign keys
// and a busy timeout enabled.
func SQLiteDSN(dir string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", filepath.Join(dir, "accounts.db"))
}

// OpenSQLite returns a migrated single-connection SQLite database that is
// closed when the test ends.
func OpenSQLite(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", SQLiteDSN(t.TempDir()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.SQLite)
	if err := goose.SetDialect("sqlite3"); err != nil {
		t.Fatalf("goose dialect: %v", err)
	}
	if err := goose.UpContext(context.Background(), db, "sqlite"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}
