package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophaccounts/internal/common"
	"github.com/dmitrijs2005/gophaccounts/internal/envelope"
	"github.com/dmitrijs2005/gophaccounts/internal/logging"
	"github.com/dmitrijs2005/gophaccounts/internal/server/models"
	"github.com/dmitrijs2005/gophaccounts/internal/server/services"
)

// Envelope messages.
const (
	MsgLoggedIn        = "logged in"
	MsgAccountCreated  = "new account created"
	MsgLoginsRetrieved = "logins retrieved"

	MsgNoAccountFound       = "No Account Found"
	MsgInvalidCredentials   = "invalid credentials"
	MsgTokenFailure         = "failed to create or update token for account"
	MsgNoAccountForToken    = "no account for token"
	MsgAdminLevel           = "admin_level not sufficient"
	MsgTenantNotPermitted   = "account_code not permitted"
	MsgFailureSavingAccount = "failure saving account"
)

// ErrUnavailable wraps failures that are not the caller's fault, such as an
// unreachable database. Transports report it as an internal error instead
// of an envelope.
var ErrUnavailable = errors.New("service unavailable")

type Authenticator interface {
	Login(ctx context.Context, loginCode, secret string) (*services.LoginResult, error)
}

type AccountProvisioner interface {
	CreateAccount(ctx context.Context, req services.CreateAccountRequest) (*models.Account, error)
	ListLogins(ctx context.Context, requesterKey, tenantCode, loginCode string) (*services.LoginListing, error)
}

// Handlers serves the RPC methods.
type Handlers struct {
	auth     Authenticator
	accounts AccountProvisioner
	logger   logging.Logger
}

func NewHandlers(auth Authenticator, accounts AccountProvisioner, logger logging.Logger) *Handlers {
	return &Handlers{auth: auth, accounts: accounts, logger: logger}
}

// Login handles login(lc, ls).
func (h *Handlers) Login(ctx context.Context, p LoginParams) (*envelope.Response, error) {
	res, err := h.auth.Login(ctx, p.LC, p.LS)
	switch {
	case err == nil:
		return envelope.OK(MsgLoggedIn).
			With("api_key", res.Token.Key).
			With("valid_until", res.Token.ValidUntil.UTC().Format(time.RFC3339Nano)), nil
	case errors.Is(err, common.ErrorNotFound):
		return envelope.Error(MsgNoAccountFound), nil
	case errors.Is(err, common.ErrorInvalidCredentials):
		return envelope.Error(MsgInvalidCredentials), nil
	case errors.Is(err, common.ErrorTokenLifecycle), errors.Is(err, common.ErrorTokenPersistence):
		return envelope.Error(MsgTokenFailure), nil
	}
	return nil, h.unavailable(ctx, MethodLogin, err)
}

// CreateAccount handles create_account. The requester key falls back to
// the transport-supplied key.
func (h *Handlers) CreateAccount(ctx context.Context, p CreateAccountParams) (*envelope.Response, error) {
	a, err := h.accounts.CreateAccount(ctx, services.CreateAccountRequest{
		RequesterKey: resolveKey(ctx, p.Key),
		TenantCode:   p.AccountCode,
		LoginCode:    p.LoginCode,
		Secret1:      p.LoginSecret1,
		Secret2:      p.LoginSecret2,
		AdminLevel:   p.AdminLevel,
	})
	if err == nil {
		return envelope.OK(MsgAccountCreated).With("login_code", a.LoginCode), nil
	}

	if r := tokenError(err); r != nil {
		return r, nil
	}
	var lvl *common.AdminLevelError
	switch {
	case errors.As(err, &lvl):
		return envelope.Error(MsgAdminLevel).With("help", lvl.Error()), nil
	case errors.Is(err, common.ErrorTenantMismatch):
		return envelope.Error(MsgTenantNotPermitted), nil
	case errors.Is(err, common.ErrorValidation):
		return envelope.Error(common.ValidationMessage(err)), nil
	case errors.Is(err, common.ErrorAlreadyExists):
		return envelope.Error(MsgFailureSavingAccount), nil
	}
	return nil, h.unavailable(ctx, MethodCreateAccount, err)
}

// GetLoginsForAccount handles get_logins_for_account.
func (h *Handlers) GetLoginsForAccount(ctx context.Context, p GetLoginsParams) (*envelope.Response, error) {
	listing, err := h.accounts.ListLogins(ctx, resolveKey(ctx, p.Key), p.AccountCode, p.LC)
	if err == nil {
		return envelope.OK(MsgLoginsRetrieved).
			With("account_code", listing.TenantCode).
			With("logins", listing.Logins), nil
	}

	if r := tokenError(err); r != nil {
		return r, nil
	}
	if errors.Is(err, common.ErrorTenantMismatch) {
		return envelope.Error(MsgTenantNotPermitted), nil
	}
	return nil, h.unavailable(ctx, MethodGetLoginsForAccount, err)
}

func tokenError(err error) *envelope.Response {
	switch {
	case errors.Is(err, common.ErrorTokenExpired):
		return envelope.Error(MsgNoAccountForToken).With("error", "token expired")
	case errors.Is(err, common.ErrorInvalidToken):
		return envelope.Error(MsgNoAccountForToken).With("error", "token not present")
	}
	return nil
}

func (h *Handlers) unavailable(ctx context.Context, method string, err error) error {
	h.logger.Error(ctx, "rpc failed", "method", method, "error", err)
	return fmt.Errorf("%w: %s", ErrUnavailable, method)
}
