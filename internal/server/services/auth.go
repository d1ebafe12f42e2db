package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophaccounts/internal/common"
	"github.com/dmitrijs2005/gophaccounts/internal/logging"
	"github.com/dmitrijs2005/gophaccounts/internal/server/metrics"
	"github.com/dmitrijs2005/gophaccounts/internal/server/models"
	"github.com/dmitrijs2005/gophaccounts/internal/server/repositories/repomanager"
)

// Login results recorded in metrics.
const (
	loginOK          = "ok"
	loginNotFound    = "not_found"
	loginBadSecret   = "invalid_credentials"
	loginTokenFailed = "token_failure"
	loginError       = "error"
)

// LoginResult is a successful login: the account and its live token.
type LoginResult struct {
	Account *models.Account
	Token   *models.Token
	Event   TokenEvent
}

// AuthService verifies login credentials and hands out api keys.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *TokenManager
	logger      logging.Logger
	metrics     *metrics.Metrics
	rehashCost  int
}

type AuthServiceOption func(*AuthService)

// WithRehashCost makes Login re-hash, at cost, any stored secret that was
// hashed with a lower bcrypt cost. Zero disables re-hashing.
func WithRehashCost(cost int) AuthServiceOption {
	return func(s *AuthService) { s.rehashCost = cost }
}

// NewAuthService constructs an AuthService. m may be nil.
func NewAuthService(db *sql.DB, rm repomanager.RepositoryManager, tm *TokenManager, logger logging.Logger, m *metrics.Metrics, opts ...AuthServiceOption) *AuthService {
	s := &AuthService{db: db, repomanager: rm, tokens: tm, logger: logger, metrics: m}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Login looks up the account by login code, checks the secret and obtains
// a token. It returns common.ErrorNotFound for an unknown login code,
// common.ErrorInvalidCredentials for a wrong secret, and the token
// manager's lifecycle or persistence error when no token could be stored.
func (s *AuthService) Login(ctx context.Context, loginCode, secret string) (*LoginResult, error) {
	account, err := s.repomanager.Accounts(s.db).GetByLoginCode(ctx, loginCode)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.Login(loginNotFound)
			return nil, common.ErrorNotFound
		}
		s.metrics.Login(loginError)
		return nil, fmt.Errorf("%w: lookup account: %w", common.ErrorPersistence, err)
	}

	log := s.logger.With("login_code", account.LoginCode)

	if !verifySecret(account.LoginSecret, secret) {
		s.metrics.Login(loginBadSecret)
		log.Info(ctx, "login rejected")
		return nil, common.ErrorInvalidCredentials
	}

	s.upgradeSecret(ctx, log, account, secret)

	res, err := s.tokens.ObtainToken(ctx, account.ID)
	if err != nil {
		s.metrics.Login(loginTokenFailed)
		log.Error(ctx, "failed to create or update token", "error", err)
		return nil, err
	}

	s.metrics.Login(loginOK)
	log.Info(ctx, "logged in", "event", string(res.Event))
	return &LoginResult{Account: account, Token: res.Token, Event: res.Event}, nil
}

// upgradeSecret re-hashes a verified secret stored below the configured
// cost. Failures are logged and do not affect the login.
func (s *AuthService) upgradeSecret(ctx context.Context, log logging.Logger, account *models.Account, secret string) {
	if s.rehashCost == 0 || !needsRehash(account.LoginSecret, s.rehashCost) {
		return
	}

	hash, err := hashSecret(secret, s.rehashCost)
	if err == nil {
		err = s.repomanager.Accounts(s.db).UpdateLoginSecret(ctx, account.ID, hash)
	}
	if err != nil {
		log.Warn(ctx, "secret rehash failed", "error", err)
		return
	}
	account.LoginSecret = hash
	log.Info(ctx, "secret rehashed", "cost", s.rehashCost)
}
