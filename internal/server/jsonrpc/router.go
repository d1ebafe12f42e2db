package jsonrpc

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophaccounts/internal/logging"
	"github.com/dmitrijs2005/gophaccounts/internal/server/api"
	"github.com/dmitrijs2005/gophaccounts/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Pinger reports database reachability for /readyz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configures the router.
type Options struct {
	Logger         logging.Logger
	Metrics        *metrics.Metrics
	DB             Pinger
	MaxBodyBytes   int64
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter mounts the JSON-RPC endpoints, health checks and /metrics:
//
//	POST /api/v1/auth     login
//	POST /api/v1/account  create_account, get_logins_for_account
//	GET  /healthz, /readyz, /metrics
func NewRouter(h *api.Handlers, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		RequestID(),
		Logging(opts.Logger),
		Recover(opts.Logger),
		opts.Metrics.Instrument,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", readyHandler(opts.DB))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	auth := NewDispatcher(opts.Logger, opts.Metrics).
		Register(api.MethodLogin, Bind(api.PositionalNames[api.MethodLogin], h.Login))
	account := NewDispatcher(opts.Logger, opts.Metrics).
		Register(api.MethodCreateAccount, Bind(api.PositionalNames[api.MethodCreateAccount], h.CreateAccount)).
		Register(api.MethodGetLoginsForAccount, Bind(api.PositionalNames[api.MethodGetLoginsForAccount], h.GetLoginsForAccount))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			RateLimit(opts.RateLimitRPS, opts.RateLimitBurst),
			MaxBodyBytes(opts.MaxBodyBytes),
			Bearer(),
		)
		r.Method(http.MethodPost, "/auth", auth)
		r.Method(http.MethodPost, "/account", account)
	})

	return r
}

func readyHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
