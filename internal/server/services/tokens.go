// Package services contains server-side business logic. This file
// implements TokenManager, which owns the api key lifecycle: the lazy
// expiry sweep, the issue-or-renew decision and key validation.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophaccounts/internal/common"
	"github.com/dmitrijs2005/gophaccounts/internal/dbx"
	"github.com/dmitrijs2005/gophaccounts/internal/logging"
	"github.com/dmitrijs2005/gophaccounts/internal/server/config"
	"github.com/dmitrijs2005/gophaccounts/internal/server/metrics"
	"github.com/dmitrijs2005/gophaccounts/internal/server/models"
	"github.com/dmitrijs2005/gophaccounts/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophaccounts/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/gophaccounts/internal/timex"
)

// TokenEvent says what ObtainToken did.
type TokenEvent string

const (
	TokenIssued  TokenEvent = "issued"
	TokenRenewed TokenEvent = "renewed"
	TokenSwept   TokenEvent = "swept"
)

// maxKeyAttempts bounds key regeneration after a uniqueness collision.
const maxKeyAttempts = 5

// ObtainResult is the live token for an account after ObtainToken.
type ObtainResult struct {
	Token *models.Token
	Event TokenEvent
	Swept int
}

// TokenManager issues, renews, sweeps and validates api keys.
//
// ObtainToken is serialized per account twice: by an in-process keyed
// mutex and by a row lock on the account taken inside the transaction, so
// concurrent logins for one account never both observe "no token".
type TokenManager struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	window      time.Duration
	logger      logging.Logger
	metrics     *metrics.Metrics

	locks  keyedMutex
	now    func() time.Time
	newKey func() (string, error)
}

// TokenManagerOption customizes a TokenManager.
type TokenManagerOption func(*TokenManager)

// WithClock replaces the time source.
func WithClock(now func() time.Time) TokenManagerOption {
	return func(s *TokenManager) { s.now = now }
}

// WithKeyGenerator replaces the api key generator.
func WithKeyGenerator(gen func() (string, error)) TokenManagerOption {
	return func(s *TokenManager) { s.newKey = gen }
}

// NewTokenManager constructs a TokenManager using the expiration window
// from cfg. m may be nil.
func NewTokenManager(db *sql.DB, rm repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger, m *metrics.Metrics, opts ...TokenManagerOption) *TokenManager {
	s := &TokenManager{
		db:          db,
		repomanager: rm,
		window:      cfg.TokenExpirationWindow,
		logger:      logger,
		metrics:     m,
		now:         timex.NowMicro,
		newKey:      common.NewTokenKey,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *TokenManager) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// SweepExpired deletes the account's tokens whose valid_until lies more
// than one window in the past and returns how many were deleted. Any
// failure is reported as common.ErrorTokenLifecycle.
func (s *TokenManager) SweepExpired(ctx context.Context, accountID int64) (int, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	now := s.clock()
	var swept int
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Accounts(tx).Lock(ctx, accountID); err != nil {
			return fmt.Errorf("%w: lock account: %w", common.ErrorTokenLifecycle, err)
		}
		var err error
		_, swept, err = s.sweep(ctx, s.repomanager.Tokens(tx), accountID, now)
		return err
	})
	if err != nil {
		if !errors.Is(err, common.ErrorTokenLifecycle) {
			err = fmt.Errorf("%w: %w", common.ErrorTokenLifecycle, err)
		}
		return 0, err
	}

	s.metrics.TokenEvent(string(TokenSwept), swept)
	return swept, nil
}

// ObtainToken sweeps the account's stale tokens, then renews the surviving
// token with the lowest id by adding one window to its current expiry, or
// issues a new one valid for one window from now when none survives.
//
// Sweep failures return common.ErrorTokenLifecycle; failures writing the
// token return common.ErrorTokenPersistence. On error nothing is committed.
func (s *TokenManager) ObtainToken(ctx context.Context, accountID int64) (*ObtainResult, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	now := s.clock()
	var res *ObtainResult
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Accounts(tx).Lock(ctx, accountID); err != nil {
			return fmt.Errorf("%w: lock account: %w", common.ErrorTokenLifecycle, err)
		}

		repo := s.repomanager.Tokens(tx)
		remaining, swept, err := s.sweep(ctx, repo, accountID, now)
		if err != nil {
			return err
		}

		if len(remaining) == 0 {
			tok, err := s.issue(ctx, repo, accountID, now)
			if err != nil {
				return err
			}
			res = &ObtainResult{Token: tok, Event: TokenIssued, Swept: swept}
			return nil
		}

		if len(remaining) > 1 {
			s.logger.Warn(ctx, "account holds more than one live token", "account_id", accountID, "count", len(remaining))
		}
		current := remaining[0]
		tok, err := repo.UpdateExpiry(ctx, current.ID, current.ValidUntil.Add(s.window))
		if err != nil {
			return fmt.Errorf("%w: renew token: %w", common.ErrorTokenPersistence, err)
		}
		res = &ObtainResult{Token: tok, Event: TokenRenewed, Swept: swept}
		return nil
	})
	if err != nil {
		if !errors.Is(err, common.ErrorTokenLifecycle) && !errors.Is(err, common.ErrorTokenPersistence) {
			err = fmt.Errorf("%w: %w", common.ErrorTokenPersistence, err)
		}
		return nil, err
	}

	s.metrics.TokenEvent(string(TokenSwept), res.Swept)
	s.metrics.TokenEvent(string(res.Event), 1)
	s.logger.Debug(ctx, "token obtained", "account_id", accountID, "event", string(res.Event), "swept", res.Swept)
	return res, nil
}

// ValidateToken resolves an api key to its account. A missing key returns
// common.ErrorTokenMissing and a key past its valid_until returns
// common.ErrorTokenExpired; both wrap common.ErrorInvalidToken.
func (s *TokenManager) ValidateToken(ctx context.Context, key string) (*models.Account, error) {
	if key == "" {
		return nil, common.ErrorTokenMissing
	}

	tok, err := s.repomanager.Tokens(s.db).GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorTokenMissing
		}
		return nil, fmt.Errorf("%w: lookup token: %w", common.ErrorPersistence, err)
	}
	if tok.Expired(s.clock()) {
		return nil, common.ErrorTokenExpired
	}

	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, tok.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorTokenMissing
		}
		return nil, fmt.Errorf("%w: lookup account: %w", common.ErrorPersistence, err)
	}
	return account, nil
}

// sweep deletes sweepable tokens and returns the survivors in id order.
func (s *TokenManager) sweep(ctx context.Context, repo tokens.Repository, accountID int64, now time.Time) ([]*models.Token, int, error) {
	all, err := repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list tokens: %w", common.ErrorTokenLifecycle, err)
	}

	kept := make([]*models.Token, 0, len(all))
	swept := 0
	for _, t := range all {
		if !t.Sweepable(now, s.window) {
			kept = append(kept, t)
			continue
		}
		if err := repo.Delete(ctx, t.ID); err != nil {
			return nil, 0, fmt.Errorf("%w: delete token %d: %w", common.ErrorTokenLifecycle, t.ID, err)
		}
		swept++
	}
	return kept, swept, nil
}

func (s *TokenManager) issue(ctx context.Context, repo tokens.Repository, accountID int64, now time.Time) (*models.Token, error) {
	for attempt := 1; attempt <= maxKeyAttempts; attempt++ {
		key, err := s.newKey()
		if err != nil {
			return nil, fmt.Errorf("%w: generate key: %w", common.ErrorTokenPersistence, err)
		}
		uid, err := common.NewUID()
		if err != nil {
			return nil, fmt.Errorf("%w: generate uid: %w", common.ErrorTokenPersistence, err)
		}

		tok, err := repo.Create(ctx, &models.Token{
			UID:        uid,
			Key:        key,
			AccountID:  accountID,
			ValidUntil: now.Add(s.window),
			CreatedAt:  now,
		})
		if err == nil {
			return tok, nil
		}
		if !errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("%w: create token: %w", common.ErrorTokenPersistence, err)
		}
		s.logger.Warn(ctx, "token key collision, regenerating", "account_id", accountID, "attempt", attempt)
	}
	return nil, fmt.Errorf("%w: key collision after %d attempts", common.ErrorTokenPersistence, maxKeyAttempts)
}
