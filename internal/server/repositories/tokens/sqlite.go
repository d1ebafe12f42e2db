package tokens

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

func (r *SQLiteRepository) Create(ctx context.Context, t *models.Token) (*models.Token, error) {
	query :=
		`INSERT INTO tokens (uid, api_key, account_id, valid_until, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		t.UID, t.Key, t.AccountID, t.ValidUntil.UnixNano(), t.CreatedAt.UnixNano()).Scan(&t.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteToken(row rowScanner) (*models.Token, error) {
	t := &models.Token{}
	var validUntil, created int64
	if err := row.Scan(&t.ID, &t.UID, &t.Key, &t.AccountID, &validUntil, &created); err != nil {
		return nil, err
	}
	t.ValidUntil = time.Unix(0, validUntil).UTC()
	t.CreatedAt = time.Unix(0, created).UTC()
	return t, nil
}

func (r *SQLiteRepository) ListByAccount(ctx context.Context, accountID int64) ([]*models.Token, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE account_id = ? ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Token
	for rows.Next() {
		t, err := scanSQLiteToken(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *SQLiteRepository) UpdateExpiry(ctx context.Context, id int64, validUntil time.Time) (*models.Token, error) {
	return r.getOne(ctx,
		`UPDATE tokens SET valid_until = ? WHERE id = ? RETURNING `+tokenColumns, validUntil.UnixNano(), id)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetByKey(ctx context.Context, key string) (*models.Token, error) {
	return r.getOne(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE api_key = ?`, key)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, args ...any) (*models.Token, error) {
	t, err := scanSQLiteToken(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}
