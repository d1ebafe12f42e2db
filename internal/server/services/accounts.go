package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophaccounts/internal/common"
	"github.com/dmitrijs2005/gophaccounts/internal/logging"
	"github.com/dmitrijs2005/gophaccounts/internal/server/config"
	"github.com/dmitrijs2005/gophaccounts/internal/server/metrics"
	"github.com/dmitrijs2005/gophaccounts/internal/server/models"
	"github.com/dmitrijs2005/gophaccounts/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophaccounts/internal/timex"
)

// CreateAccountRequest carries the create_account parameters.
type CreateAccountRequest struct {
	RequesterKey string
	TenantCode   string
	LoginCode    string
	Secret1      string
	Secret2      string
	AdminLevel   int
}

// LoginListing is the tenant's accounts as seen by get_logins_for_account.
type LoginListing struct {
	TenantCode string
	Logins     []models.LoginInfo
}

// AccountService provisions accounts and lists them per tenant.
//
// Creating an account requires a valid api key whose account holds an
// admin level at least as high as the one requested. The only exception
// is the very first account of an empty store, which bootstraps the
// directory.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *TokenManager
	logger      logging.Logger
	metrics     *metrics.Metrics

	bcryptCost      int
	bootstrapTenant string
	bootstrapMu     sync.Mutex
}

// NewAccountService constructs an AccountService using the bcrypt cost and
// bootstrap tenant from cfg. m may be nil.
func NewAccountService(db *sql.DB, rm repomanager.RepositoryManager, tm *TokenManager, cfg *config.Config, logger logging.Logger, m *metrics.Metrics) *AccountService {
	return &AccountService{
		db:              db,
		repomanager:     rm,
		tokens:          tm,
		logger:          logger,
		metrics:         m,
		bcryptCost:      cfg.BcryptCost,
		bootstrapTenant: cfg.BootstrapTenantCode,
	}
}

// CreateAccount authorizes the requester, validates the fields, hashes the
// secret and stores the account.
//
// Errors, in the order they are checked:
//   - common.ErrorInvalidToken (missing or expired key)
//   - *common.AdminLevelError, wrapping common.ErrorAuthorizationInsufficient
//   - common.ErrorTenantMismatch
//   - a validation error wrapping common.ErrorValidation
//   - common.ErrorAlreadyExists for a taken login code, common.ErrorPersistence otherwise
func (s *AccountService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*models.Account, error) {
	if req.RequesterKey == "" {
		s.bootstrapMu.Lock()
		defer s.bootstrapMu.Unlock()

		n, err := s.repomanager.Accounts(s.db).Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: count accounts: %w", common.ErrorPersistence, err)
		}
		if n > 0 {
			return nil, common.ErrorTokenMissing
		}
		if req.TenantCode == "" {
			req.TenantCode = s.bootstrapTenant
		}
		a, err := s.insert(ctx, req)
		if err != nil {
			return nil, err
		}
		s.logger.Warn(ctx, "bootstrap account created", "login_code", a.LoginCode, "admin_level", a.AdminLevel)
		return a, nil
	}

	requester, err := s.tokens.ValidateToken(ctx, req.RequesterKey)
	if err != nil {
		return nil, err
	}
	log := s.logger.With("login_code", requester.LoginCode)

	if requester.AdminLevel < req.AdminLevel {
		log.Info(ctx, "admin_level not sufficient", "have", requester.AdminLevel, "want", req.AdminLevel)
		return nil, &common.AdminLevelError{Have: requester.AdminLevel, Want: req.AdminLevel}
	}

	tenant, err := resolveTenant(requester, req.TenantCode)
	if err != nil {
		log.Info(ctx, "tenant not permitted", "account_code", req.TenantCode)
		return nil, err
	}
	req.TenantCode = tenant

	return s.insert(ctx, req)
}

// ListLogins returns the accounts of tenantCode, optionally narrowed to a
// single login code. An empty tenantCode means the requester's tenant;
// any other tenant returns common.ErrorTenantMismatch.
func (s *AccountService) ListLogins(ctx context.Context, requesterKey, tenantCode, loginCode string) (*LoginListing, error) {
	requester, err := s.tokens.ValidateToken(ctx, requesterKey)
	if err != nil {
		return nil, err
	}

	tenant, err := resolveTenant(requester, tenantCode)
	if err != nil {
		return nil, err
	}

	accounts, err := s.repomanager.Accounts(s.db).ListByTenant(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("%w: list accounts: %w", common.ErrorPersistence, err)
	}

	out := &LoginListing{TenantCode: tenant, Logins: make([]models.LoginInfo, 0, len(accounts))}
	for _, a := range accounts {
		if loginCode != "" && a.LoginCode != loginCode {
			continue
		}
		out.Logins = append(out.Logins, a.Info())
	}
	return out, nil
}

func resolveTenant(requester *models.Account, requested string) (string, error) {
	if requested == "" || requested == requester.TenantCode {
		return requester.TenantCode, nil
	}
	return "", common.ErrorTenantMismatch
}

func validateCreate(req CreateAccountRequest) error {
	switch {
	case req.LoginCode == "":
		return common.ErrorLoginCodeEmpty
	case req.Secret1 == "" || req.Secret2 == "":
		return common.ErrorPasswordEmpty
	case req.Secret1 != req.Secret2:
		return common.ErrorPasswordMismatch
	case req.AdminLevel < 0:
		return common.ErrorNegativeAdminLevel
	}
	return nil
}

func (s *AccountService) insert(ctx context.Context, req CreateAccountRequest) (*models.Account, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	hash, err := hashSecret(req.Secret1, s.bcryptCost)
	if err != nil {
		if errors.Is(err, common.ErrorValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	uid, err := common.NewUID()
	if err != nil {
		return nil, fmt.Errorf("%w: generate uid: %w", common.ErrorInternal, err)
	}

	account, err := s.repomanager.Accounts(s.db).Create(ctx, &models.Account{
		UID:         uid,
		TenantCode:  req.TenantCode,
		LoginCode:   req.LoginCode,
		LoginSecret: hash,
		AdminLevel:  req.AdminLevel,
		CreatedAt:   timex.NowMicro(),
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			s.logger.Info(ctx, "login code taken", "login_code", req.LoginCode)
			return nil, fmt.Errorf("create account: %w", common.ErrorAlreadyExists)
		}
		s.logger.Error(ctx, "failure saving account", "login_code", req.LoginCode, "error", err)
		return nil, fmt.Errorf("%w: create account: %w", common.ErrorPersistence, err)
	}

	s.metrics.AccountCreated()
	s.logger.Info(ctx, "new account created", "login_code", account.LoginCode, "tenant_code", account.TenantCode, "admin_level", account.AdminLevel)
	return account, nil
}
