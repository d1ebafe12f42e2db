package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophaccounts/internal/dbx"
	"github.com/dmitrijs2005/gophaccounts/internal/server/migrations"
	"github.com/dmitrijs2005/gophaccounts/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophaccounts/internal/server/repositories/tokens"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends SQLite-backed repositories for single-node
// deployments and tests.
type SQLiteRepositoryManager struct {
	migrationLogger goose.Logger
}

func (m *SQLiteRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Tokens(db dbx.DBTX) tokens.Repository {
	return tokens.NewSQLiteRepository(db)
}

// RunMigrations applies the embedded sqlite migrations.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	setGooseLogger(m.migrationLogger)
	goose.SetBaseFS(migrations.SQLite)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, "sqlite")
}

func NewSQLiteRepositoryManager(migrationLogger goose.Logger) *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{migrationLogger: migrationLogger}
}
