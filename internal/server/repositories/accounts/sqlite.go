package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophaccounts/internal/common"
	"github.com/dmitrijs2005/gophaccounts/internal/dbx"
	"github.com/dmitrijs2005/gophaccounts/internal/server/models"
)

// SQLiteRepository stores timestamps as unix nanoseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (uid, tenant_code, login_code, login_secret, admin_level, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		a.UID, a.TenantCode, a.LoginCode, a.LoginSecret, a.AdminLevel, a.CreatedAt.UnixNano()).Scan(&a.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *SQLiteRepository) GetByLoginCode(ctx context.Context, loginCode string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE login_code = ?`, loginCode)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAccount(row rowScanner) (*models.Account, error) {
	a := &models.Account{}
	var created int64
	if err := row.Scan(&a.ID, &a.UID, &a.TenantCode, &a.LoginCode, &a.LoginSecret, &a.AdminLevel, &created); err != nil {
		return nil, err
	}
	a.CreatedAt = time.Unix(0, created).UTC()
	return a, nil
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a, err := scanSQLiteAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) UpdateLoginSecret(ctx context.Context, id int64, secret string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET login_secret = ? WHERE id = ?`, secret, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *SQLiteRepository) ListByTenant(ctx context.Context, tenantCode string) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE tenant_code = ? ORDER BY id`, tenantCode)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		a, err := scanSQLiteAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Lock only checks existence: SQLite has no row locks and the server runs
// it over a single connection, so an open transaction is already exclusive.
func (r *SQLiteRepository) Lock(ctx context.Context, id int64) error {
	var got int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM accounts WHERE id = ?`, id).Scan(&got)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
