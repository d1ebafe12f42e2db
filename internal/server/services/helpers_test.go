package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophaccounts/internal/logging"
	"github.com/dmitrijs2005/gophaccounts/internal/server/config"
	"github.com/dmitrijs2005/gophaccounts/internal/server/metrics"
	"github.com/dmitrijs2005/gophaccounts/internal/server/models"
	"github.com/dmitrijs2005/gophaccounts/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophaccounts/internal/server/repositories/repotest"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

const testWindow = 24 * time.Hour

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// recordingLogger keeps the messages logged at Warn.
type recordingLogger struct {
	nopLogger
	mu    sync.Mutex
	warns []string
}

func (r *recordingLogger) Warn(_ context.Context, msg string, _ ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warns = append(r.warns, msg)
}

func (r *recordingLogger) With(...any) logging.Logger { return r }

func (r *recordingLogger) Warns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warns...)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testConfig() *config.Config {
	return &config.Config{
		TokenExpirationWindow: testWindow,
		BcryptCost:            bcrypt.MinCost,
		BootstrapTenantCode:   "default",
	}
}

type testEnv struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	reg      *prometheus.Registry
	tokens   *TokenManager
	auth     *AuthService
	accounts *AccountService
}

func newTestEnv(t *testing.T, opts ...TokenManagerOption) *testEnv {
	t.Helper()

	db := repotest.OpenSQLite(t)
	rm := repomanager.NewSQLiteRepositoryManager(nil)
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	tm := NewTokenManager(db, rm, cfg, nopLogger{}, m, opts...)
	return &testEnv{
		db:       db,
		rm:       rm,
		reg:      reg,
		tokens:   tm,
		auth:     NewAuthService(db, rm, tm, nopLogger{}, m),
		accounts: NewAccountService(db, rm, tm, cfg, nopLogger{}, m),
	}
}

// bootstrap creates the first account of the store without a key.
func (e *testEnv) bootstrap(t *testing.T, loginCode, secret string, level int) *models.Account {
	t.Helper()
	a, err := e.accounts.CreateAccount(context.Background(), CreateAccountRequest{
		LoginCode:  loginCode,
		Secret1:    secret,
		Secret2:    secret,
		AdminLevel: level,
	})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return a
}

func (e *testEnv) login(t *testing.T, loginCode, secret string) *LoginResult {
	t.Helper()
	res, err := e.auth.Login(context.Background(), loginCode, secret)
	if err != nil {
		t.Fatalf("login %s: %v", loginCode, err)
	}
	return res
}

func (e *testEnv) tokensOf(t *testing.T, accountID int64) []*models.Token {
	t.Helper()
	list, err := e.rm.Tokens(e.db).ListByAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("list tokens: %v", err)
	}
	return list
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label == "" && len(m.GetLabel()) == 0 {
				return m.GetCounter().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
