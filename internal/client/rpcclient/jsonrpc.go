package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophaccounts/internal/envelope"
	"github.com/hashicorp/go-cleanhttp"
)

const (
	pathAuth    = "/api/v1/auth"
	pathAccount = "/api/v1/account"
)

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type response struct {
	Result *envelope.Response `json:"result"`
	Error  *RPCError          `json:"error"`
}

type JSONRPCClient struct {
	baseURL string
	http    *http.Client
	nextID  atomic.Int64

	mu     sync.RWMutex
	apiKey string
}

// NewJSONRPCClient returns a client for the server at baseURL, e.g.
// "http://127.0.0.1:8080". timeout bounds each call; zero disables it.
func NewJSONRPCClient(baseURL string, timeout time.Duration) *JSONRPCClient {
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = timeout
	return &JSONRPCClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *JSONRPCClient) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

func (c *JSONRPCClient) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
}

// Login calls login and, on an ok envelope, remembers the returned key.
func (c *JSONRPCClient) Login(ctx context.Context, loginCode, secret string) (*envelope.Response, error) {
	env, err := c.call(ctx, pathAuth, "login", map[string]string{"lc": loginCode, "ls": secret})
	if err != nil {
		return nil, err
	}
	if env.IsOK() {
		c.SetAPIKey(env.String("api_key"))
	}
	return env, nil
}

func (c *JSONRPCClient) CreateAccount(ctx context.Context, p CreateAccountParams) (*envelope.Response, error) {
	return c.call(ctx, pathAccount, "create_account", p)
}

func (c *JSONRPCClient) GetLoginsForAccount(ctx context.Context, accountCode, loginCode string) (*envelope.Response, error) {
	params := map[string]string{}
	if accountCode != "" {
		params["account_code"] = accountCode
	}
	if loginCode != "" {
		params["lc"] = loginCode
	}
	return c.call(ctx, pathAccount, "get_logins_for_account", params)
}

func (c *JSONRPCClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *JSONRPCClient) call(ctx context.Context, path, method string, params any) (*envelope.Response, error) {
	body, err := json.Marshal(request{JSONRPC: "2.0", Method: method, Params: params, ID: c.nextID.Add(1)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := c.APIKey(); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var out response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: unexpected response (HTTP %d)", ErrUnavailable, resp.StatusCode)
	}

	if out.Error != nil {
		if out.Error.Code == codeInternalError {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, out.Error.Message)
		}
		return nil, out.Error
	}
	if out.Result == nil {
		return nil, errors.New("empty result")
	}
	return out.Result, nil
}
