package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dmitrijs2005/gophaccounts/internal/filex"
	"github.com/dmitrijs2005/gophaccounts/internal/logging"
)

// Options describes how to reach the database.
type Options struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int

	// ConnectTimeout bounds the ping retries; zero means one minute.
	ConnectTimeout time.Duration
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open connects to the configured database, waits for it to answer a ping
// (retrying with exponential backoff), runs migrations and returns the pool
// with its matching RepositoryManager.
func Open(ctx context.Context, opts Options, logger logging.Logger) (*sql.DB, RepositoryManager, error) {
	var (
		driverName string
		manager    RepositoryManager
	)

	migrationLogger := logging.GooseLogger{L: logger.With("module", "migrations")}

	switch opts.Driver {
	case DriverPostgres:
		driverName = "pgx"
		manager = NewPostgresRepositoryManager(migrationLogger)
	case DriverSQLite:
		driverName = "sqlite"
		manager = NewSQLiteRepositoryManager(migrationLogger)
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", opts.Driver)
	}

	if path := sqliteFilePath(opts.DSN); opts.Driver == DriverSQLite && path != "" {
		if _, err := filex.EnsureParentDir(path); err != nil {
			return nil, nil, fmt.Errorf("sqlite directory: %w", err)
		}
	}

	db, err := sqlOpen(driverName, opts.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}

	if opts.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
	}

	if err := waitForDB(ctx, db, opts.ConnectTimeout, logger); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	if err := manager.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	return db, manager, nil
}

func waitForDB(ctx context.Context, db *sql.DB, timeout time.Duration, logger logging.Logger) error {
	if timeout <= 0 {
		timeout = time.Minute
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = timeout

	attempt := 0
	ping := func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	}
	notify := func(err error, next time.Duration) {
		logger.Warn(ctx, "database not ready", "attempt", attempt, "retry_in", next.String(), "error", err)
	}

	if err := backoff.RetryNotify(ping, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// sqliteFilePath extracts the database file from a SQLite DSN such as
// "file:data/accounts.db?_pragma=...". In-memory databases yield "".
func sqliteFilePath(dsn string) string {
	path, query, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" || strings.HasPrefix(path, ":memory:") || strings.Contains(query, "mode=memory") {
		return ""
	}
	return path
}
