package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophaccounts/internal/common"
	"github.com/dmitrijs2005/gophaccounts/internal/dbx"
	"github.com/dmitrijs2005/gophaccounts/internal/server/models"
)

const accountColumns = `id, uid, tenant_code, login_code, login_secret, admin_level, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (uid, tenant_code, login_code, login_secret, admin_level, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		a.UID, a.TenantCode, a.LoginCode, a.LoginSecret, a.AdminLevel, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) GetByLoginCode(ctx context.Context, loginCode string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE login_code = $1`
	return r.getOne(ctx, query, loginCode)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&a.ID, &a.UID, &a.TenantCode, &a.LoginCode, &a.LoginSecret, &a.AdminLevel, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func (r *PostgresRepository) UpdateLoginSecret(ctx context.Context, id int64, secret string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET login_secret = $2 WHERE id = $1`, id, secret)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantCode string) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tenant_code = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, tenantCode)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		a := &models.Account{}
		if err := rows.Scan(&a.ID, &a.UID, &a.TenantCode, &a.LoginCode, &a.LoginSecret, &a.AdminLevel, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		a.CreatedAt = a.CreatedAt.UTC()
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Lock(ctx context.Context, id int64) error {
	var got int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&got)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
