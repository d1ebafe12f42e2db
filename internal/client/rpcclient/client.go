package rpcclient

import (
	"context"

	"github.com/dmitrijs2005/gophaccounts/internal/envelope"
)

// CreateAccountParams are the create_account arguments. An empty Key makes
// the client send the remembered API key instead.
type CreateAccountParams struct {
	AccountCode  string `json:"account_code,omitempty"`
	Key          string `json:"key,omitempty"`
	LoginCode    string `json:"login_code"`
	LoginSecret1 string `json:"login_secret_1"`
	LoginSecret2 string `json:"login_secret_2"`
	AdminLevel   int    `json:"admin_level"`
}

type Client interface {
	Login(ctx context.Context, loginCode, secret string) (*envelope.Response, error)
	CreateAccount(ctx context.Context, p CreateAccountParams) (*envelope.Response, error)
	GetLoginsForAccount(ctx context.Context, accountCode, loginCode string) (*envelope.Response, error)
	APIKey() string
	SetAPIKey(key string)
	Close() error
}
