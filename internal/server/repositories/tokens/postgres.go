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

const tokenColumns = `id, uid, api_key, account_id, valid_until, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new token row.
func (r *PostgresRepository) Create(ctx context.Context, t *models.Token) (*models.Token, error) {
	query :=
		`INSERT INTO tokens (uid, api_key, account_id, valid_until, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT DO NOTHING
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, query, t.UID, t.Key, t.AccountID, t.ValidUntil, t.CreatedAt).Scan(&t.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return t, nil
}

// ListByAccount returns every token owned by the account, lowest id first.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID int64) ([]*models.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE account_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Token
	for rows.Next() {
		t := &models.Token{}
		if err := rows.Scan(&t.ID, &t.UID, &t.Key, &t.AccountID, &t.ValidUntil, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, normalize(t))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// UpdateExpiry sets valid_until and returns the updated row.
func (r *PostgresRepository) UpdateExpiry(ctx context.Context, id int64, validUntil time.Time) (*models.Token, error) {
	query := `UPDATE tokens SET valid_until = $2 WHERE id = $1 RETURNING ` + tokenColumns
	return r.getOne(ctx, query, id, validUntil)
}

// Delete removes the token; a missing row is common.ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE id = $1`, id)
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

// GetByKey finds a token by its api key.
func (r *PostgresRepository) GetByKey(ctx context.Context, key string) (*models.Token, error) {
	return r.getOne(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE api_key = $1`, key)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Token, error) {
	t := &models.Token{}
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&t.ID, &t.UID, &t.Key, &t.AccountID, &t.ValidUntil, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return normalize(t), nil
}

func normalize(t *models.Token) *models.Token {
	t.ValidUntil = t.ValidUntil.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t
}
