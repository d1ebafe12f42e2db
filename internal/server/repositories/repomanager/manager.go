// Package repomanager wires repository implementations to a storage driver
// and owns schema migrations and connection setup for that driver.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophaccounts/internal/dbx"
	"github.com/dmitrijs2005/gophaccounts/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophaccounts/internal/server/repositories/tokens"
	"github.com/pressly/goose/v3"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// path works on the pool and inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Tokens(db dbx.DBTX) tokens.Repository
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// setGooseLogger installs l as goose's process-wide logger when non-nil.
func setGooseLogger(l goose.Logger) {
	if l != nil {
		goose.SetLogger(l)
	}
}
