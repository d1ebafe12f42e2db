// Package server initializes and runs the account server: it opens
// storage, builds the services and serves them over JSON-RPC (HTTP) and
// gRPC until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophaccounts/internal/logging"
	"github.com/dmitrijs2005/gophaccounts/internal/server/api"
	"github.com/dmitrijs2005/gophaccounts/internal/server/config"
	"github.com/dmitrijs2005/gophaccounts/internal/server/jsonrpc"
	"github.com/dmitrijs2005/gophaccounts/internal/server/metrics"
	"github.com/dmitrijs2005/gophaccounts/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophaccounts/internal/server/services"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"

	gs "github.com/dmitrijs2005/gophaccounts/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	logCloser io.Closer
	db        *sql.DB
	metrics   *metrics.Metrics
	handlers  *api.Handlers
}

// NewApp builds the logger, connects to storage (running migrations) and
// wires the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, logCloser := logging.New(logging.Options{
		Level:            c.LogLevel,
		Format:           c.LogFormat,
		File:             c.LogFile,
		MaxMessageLength: c.LogMaxMessageLength,
		MaxSizeMB:        100,
		MaxBackups:       5,
		MaxAgeDays:       30,
	})

	db, rm, err := repomanager.Open(ctx, repomanager.Options{
		Driver:       c.StorageDriver,
		DSN:          c.DatabaseDSN,
		MaxOpenConns: c.DBMaxOpenConns,
		MaxIdleConns: c.DBMaxIdleConns,
	}, logger)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := metrics.New(prometheus.NewRegistry())

	tm := services.NewTokenManager(db, rm, c, logger.With("module", "tokens"), m)
	as := services.NewAuthService(db, rm, tm, logger.With("module", "auth"), m, services.WithRehashCost(c.BcryptCost))
	acs := services.NewAccountService(db, rm, tm, c, logger.With("module", "accounts"), m)

	return &App{
		config:    c,
		logger:    logger,
		logCloser: logCloser,
		db:        db,
		metrics:   m,
		handlers:  api.NewHandlers(as, acs, logger.With("module", "api")),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) httpHandler() http.Handler {
	return jsonrpc.NewRouter(app.handlers, jsonrpc.Options{
		Logger:         app.logger.With("module", "http"),
		Metrics:        app.metrics,
		DB:             app.db,
		MaxBodyBytes:   app.config.MaxBodyBytes,
		RateLimitRPS:   app.config.RateLimitRPS,
		RateLimitBurst: app.config.RateLimitBurst,
	})
}

func (app *App) serveHTTP(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           app.httpHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves JSON-RPC and gRPC until ctx is done or a signal arrives. If
// either server fails, the other is stopped and the first error returned.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(ctx, cancelFunc)

	httpLis, err := net.Listen("tcp", app.config.EndpointAddrHTTP)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	grpcLis, err := net.Listen("tcp", app.config.EndpointAddrGRPC)
	if err != nil {
		_ = httpLis.Close()
		return fmt.Errorf("grpc listen: %w", err)
	}

	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		runErr  error
	)
	fail := func(err error) {
		errOnce.Do(func() { runErr = err })
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := app.serveHTTP(ctx, httpLis); err != nil {
			fail(fmt.Errorf("http server: %w", err))
		}
	}()
	go func() {
		defer wg.Done()
		s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.handlers, app.metrics)
		if err := s.Serve(ctx, grpcLis); err != nil {
			fail(fmt.Errorf("grpc server: %w", err))
		}
	}()

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return runErr
}

// Close releases the database and the log file.
func (app *App) Close() error {
	var result *multierror.Error
	if err := app.db.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close db: %w", err))
	}
	if err := app.logCloser.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close log: %w", err))
	}
	return result.ErrorOrNil()
}
