// Package tokens persists api keys issued to accounts.
package tokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophaccounts/internal/server/models"
)

// Repository is the token store.
type Repository interface {
	// Create inserts the token and sets its ID. A uid or key collision
	// returns common.ErrorAlreadyExists without aborting the surrounding
	// transaction, so the caller may retry with a fresh key.
	Create(ctx context.Context, token *models.Token) (*models.Token, error)

	// ListByAccount returns the account's tokens ordered by id.
	ListByAccount(ctx context.Context, accountID int64) ([]*models.Token, error)

	UpdateExpiry(ctx context.Context, id int64, validUntil time.Time) (*models.Token, error)
	Delete(ctx context.Context, id int64) error
	GetByKey(ctx context.Context, key string) (*models.Token, error)
}
