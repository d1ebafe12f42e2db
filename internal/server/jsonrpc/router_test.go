package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophaccounts/internal/common"
	"github.com/dmitrijs2005/gophaccounts/internal/envelope"
	"github.com/dmitrijs2005/gophaccounts/internal/logging"
	"github.com/dmitrijs2005/gophaccounts/internal/server/api"
	"github.com/dmitrijs2005/gophaccounts/internal/server/config"
	"github.com/dmitrijs2005/gophaccounts/internal/server/metrics"
	"github.com/dmitrijs2005/gophaccounts/internal/server/models"
	"github.com/dmitrijs2005/gophaccounts/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophaccounts/internal/server/repositories/repotest"
	"github.com/dmitrijs2005/gophaccounts/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type rpcResult struct {
	JSONRPC string             `json:"jsonrpc"`
	Result  *envelope.Response `json:"result"`
	Error   *Error             `json:"error"`
	ID      json.RawMessage    `json:"id"`
}

func newTestServer(t *testing.T, mutate func(*Options)) *httptest.Server {
	t.Helper()

	db := repotest.OpenSQLite(t)
	rm := repomanager.NewSQLiteRepositoryManager(nil)
	cfg := &config.Config{TokenExpirationWindow: time.Hour, BcryptCost: bcrypt.MinCost, BootstrapTenantCode: "default"}
	m := metrics.New(prometheus.NewRegistry())

	tm := services.NewTokenManager(db, rm, cfg, nopLogger{}, m)
	h := api.NewHandlers(
		services.NewAuthService(db, rm, tm, nopLogger{}, m),
		services.NewAccountService(db, rm, tm, cfg, nopLogger{}, m),
		nopLogger{},
	)

	opts := Options{Logger: nopLogger{}, Metrics: m, DB: db, MaxBodyBytes: 1 << 20}
	if mutate != nil {
		mutate(&opts)
	}
	srv := httptest.NewServer(NewRouter(h, opts))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string, header ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func call(t *testing.T, srv *httptest.Server, path, body string, header ...string) rpcResult {
	t.Helper()
	resp := post(t, srv, path, body, header...)
	var out rpcResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestRouter_Scenario(t *testing.T) {
	srv := newTestServer(t, nil)

	created := call(t, srv, "/api/v1/account", `{"jsonrpc":"2.0","id":1,"method":"create_account",
		"params":{"login_code":"jantje@gmail.com","login_secret_1":"Secret123","login_secret_2":"Secret123","admin_level":0}}`)
	require.Nil(t, created.Error)
	b, _ := json.Marshal(created.Result)
	assert.JSONEq(t, `{"code":"ok","message":"new account created","login_code":"jantje@gmail.com"}`, string(b))
	assert.Equal(t, "1", string(created.ID))

	ok := call(t, srv, "/api/v1/auth", `{"jsonrpc":"2.0","id":"a","method":"login","params":{"lc":"jantje@gmail.com","ls":"Secret123"}}`)
	require.Nil(t, ok.Error)
	assert.True(t, ok.Result.IsOK())
	assert.Equal(t, "logged in", ok.Result.Message)
	assert.Regexp(t, `^[0-9a-f]{64}$`, ok.Result.String("api_key"))
	assert.NotEmpty(t, ok.Result.String("valid_until"))

	bad := call(t, srv, "/api/v1/auth", `{"jsonrpc":"2.0","id":2,"method":"login","params":["jantje@gmail.com","wrong"]}`)
	require.Nil(t, bad.Error)
	b, _ = json.Marshal(bad.Result)
	assert.JSONEq(t, `{"code":"error","message":"invalid credentials"}`, string(b))

	missing := call(t, srv, "/api/v1/auth", `{"jsonrpc":"2.0","id":3,"method":"login","params":["ghost@example.com","x"]}`)
	assert.Equal(t, "No Account Found", missing.Result.Message)
}

func TestRouter_PositionalCreateAndBearerListing(t *testing.T) {
	srv := newTestServer(t, nil)

	call(t, srv, "/api/v1/account", `{"jsonrpc":"2.0","id":1,"method":"create_account","params":["", "", "root@example.com", "pw", "pw", 3]}`)
	key := call(t, srv, "/api/v1/auth", `{"jsonrpc":"2.0","id":2,"method":"login","params":["root@example.com","pw"]}`).Result.String("api_key")
	require.NotEmpty(t, key)

	created := call(t, srv, "/api/v1/account",
		`{"jsonrpc":"2.0","id":3,"method":"create_account","params":["", "`+key+`", "user@example.com", "pw", "pw", 1]}`)
	require.True(t, created.Result.IsOK(), created.Result.Message)

	denied := call(t, srv, "/api/v1/account",
		`{"jsonrpc":"2.0","id":4,"method":"create_account","params":{"key":"`+key+`","login_code":"god@example.com","login_secret_1":"pw","login_secret_2":"pw","admin_level":7}}`)
	assert.Equal(t, "admin_level not sufficient", denied.Result.Message)
	assert.Equal(t, "user with level 3 cannot create account with level 7", denied.Result.String("help"))

	listed := call(t, srv, "/api/v1/account", `{"jsonrpc":"2.0","id":5,"method":"get_logins_for_account","params":{}}`,
		"Authorization", "Bearer "+key)
	require.True(t, listed.Result.IsOK())
	logins, ok := listed.Result.Get("logins")
	require.True(t, ok)
	assert.Len(t, logins, 2)

	anon := call(t, srv, "/api/v1/account", `{"jsonrpc":"2.0","id":6,"method":"get_logins_for_account","params":{}}`)
	assert.Equal(t, "no account for token", anon.Result.Message)
	assert.Equal(t, "token not present", anon.Result.String("error"))
}

func TestRouter_ProtocolErrors(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"parse error", "/api/v1/auth", `{"jsonrpc":`, CodeParseError},
		{"wrong version", "/api/v1/auth", `{"jsonrpc":"1.0","id":1,"method":"login"}`, CodeInvalidRequest},
		{"no method", "/api/v1/auth", `{"jsonrpc":"2.0","id":1}`, CodeInvalidRequest},
		{"method on other endpoint", "/api/v1/auth", `{"jsonrpc":"2.0","id":1,"method":"create_account"}`, CodeMethodNotFound},
		{"unknown method", "/api/v1/account", `{"jsonrpc":"2.0","id":1,"method":"drop_tables"}`, CodeMethodNotFound},
		{"wrong param type", "/api/v1/auth", `{"jsonrpc":"2.0","id":1,"method":"login","params":{"lc":5}}`, CodeInvalidParams},
		{"too many positional", "/api/v1/auth", `{"jsonrpc":"2.0","id":1,"method":"login","params":["a","b","c"]}`, CodeInvalidParams},
		{"scalar params", "/api/v1/auth", `{"jsonrpc":"2.0","id":1,"method":"login","params":"a"}`, CodeInvalidParams},
		{"empty batch", "/api/v1/auth", `[]`, CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := call(t, srv, tt.path, tt.body)
			require.NotNil(t, out.Error)
			assert.Equal(t, tt.code, out.Error.Code)
			assert.Nil(t, out.Result)
		})
	}
}

func TestRouter_BatchAndNotifications(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := post(t, srv, "/api/v1/auth", `[
		{"jsonrpc":"2.0","id":1,"method":"login","params":["nobody","x"]},
		{"jsonrpc":"2.0","method":"login","params":["nobody","x"]},
		42,
		{"jsonrpc":"2.0","id":2,"method":"nope"}
	]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []rpcResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 3)
	assert.Equal(t, "No Account Found", out[0].Result.Message)
	assert.Equal(t, CodeInvalidRequest, out[1].Error.Code)
	assert.Equal(t, CodeMethodNotFound, out[2].Error.Code)

	notif := post(t, srv, "/api/v1/auth", `{"jsonrpc":"2.0","method":"login","params":["nobody","x"]}`)
	assert.Equal(t, http.StatusNoContent, notif.StatusCode)
}

type failingAuth struct{}

func (failingAuth) Login(context.Context, string, string) (*services.LoginResult, error) {
	return nil, errors.Join(common.ErrorPersistence, errors.New("dial tcp 10.0.0.1:5432: connection refused"))
}

type nopAccounts struct{}

func (nopAccounts) CreateAccount(context.Context, services.CreateAccountRequest) (*models.Account, error) {
	panic("boom")
}

func (nopAccounts) ListLogins(context.Context, string, string, string) (*services.LoginListing, error) {
	return nil, nil
}

func TestRouter_OutageIsInternalError(t *testing.T) {
	h := api.NewHandlers(failingAuth{}, nopAccounts{}, nopLogger{})
	srv := httptest.NewServer(NewRouter(h, Options{Logger: nopLogger{}}))
	defer srv.Close()

	resp := post(t, srv, "/api/v1/auth", `{"jsonrpc":"2.0","id":1,"method":"login","params":["a","b"]}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"code":-32603`)
	assert.NotContains(t, string(body), "connection refused")
}

func TestRouter_PanicIsRecovered(t *testing.T) {
	h := api.NewHandlers(failingAuth{}, nopAccounts{}, nopLogger{})
	srv := httptest.NewServer(NewRouter(h, Options{Logger: nopLogger{}}))
	defer srv.Close()

	resp := post(t, srv, "/api/v1/account", `{"jsonrpc":"2.0","id":1,"method":"create_account","params":{}}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "boom")
}

func TestRouter_RequestID(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := post(t, srv, "/api/v1/auth", `{"jsonrpc":"2.0","id":1,"method":"login","params":["a","b"]}`)
	assert.Len(t, resp.Header.Get(HeaderRequestID), 36)

	resp = post(t, srv, "/api/v1/auth", `{"jsonrpc":"2.0","id":1,"method":"login","params":["a","b"]}`, HeaderRequestID, "trace-me")
	assert.Equal(t, "trace-me", resp.Header.Get(HeaderRequestID))
}

func TestRouter_BodyLimit(t *testing.T) {
	srv := newTestServer(t, func(o *Options) { o.MaxBodyBytes = 64 })

	resp := post(t, srv, "/api/v1/auth", `{"jsonrpc":"2.0","id":1,"method":"login","params":["`+strings.Repeat("a", 200)+`","b"]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRouter_RateLimit(t *testing.T) {
	srv := newTestServer(t, func(o *Options) {
		o.RateLimitRPS = 0.001
		o.RateLimitBurst = 2
	})

	body := `{"jsonrpc":"2.0","id":1,"method":"login","params":["a","b"]}`
	assert.Equal(t, http.StatusOK, post(t, srv, "/api/v1/auth", body).StatusCode)
	assert.Equal(t, http.StatusOK, post(t, srv, "/api/v1/auth", body).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, post(t, srv, "/api/v1/auth", body).StatusCode)

	health, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

type downDB struct{}

func (downDB) PingContext(context.Context) error { return errors.New("down") }

func TestRouter_HealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := srv.Client().Get(srv.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	down := newTestServer(t, func(o *Options) { o.DB = downDB{} })
	resp, err := down.Client().Get(down.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRouter_MetricsCountRPCs(t *testing.T) {
	srv := newTestServer(t, nil)
	call(t, srv, "/api/v1/auth", `{"jsonrpc":"2.0","id":1,"method":"login","params":["a","b"]}`)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gophaccounts_rpc_requests_total{code="error",method="login",transport="http"} 1`)
	assert.Contains(t, string(body), `gophaccounts_logins_total{result="not_found"} 1`)
}
