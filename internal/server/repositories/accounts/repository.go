// Package accounts persists login accounts.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/gophaccounts/internal/server/models"
)

// Repository is the credential store. Lookups return common.ErrorNotFound
// when no row matches; Create returns common.ErrorAlreadyExists when the
// login code (or uid) is taken.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByLoginCode(ctx context.Context, loginCode string) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	UpdateLoginSecret(ctx context.Context, id int64, secret string) error
	ListByTenant(ctx context.Context, tenantCode string) ([]*models.Account, error)
	Count(ctx context.Context) (int64, error)

	// Lock takes a row lock on the account for the rest of the current
	// transaction, serializing token decisions for it.
	Lock(ctx context.Context, id int64) error
}
