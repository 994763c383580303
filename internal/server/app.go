// Package server wires handlers, middleware, sessions and storage into an
// HTTP server and runs it until the context is cancelled.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/snipkeeper/internal/identity"
	"github.com/iudanet/snipkeeper/internal/server/config"
	"github.com/iudanet/snipkeeper/internal/server/middleware"
	"github.com/iudanet/snipkeeper/internal/server/session"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

const readHeaderTimeout = 10 * time.Second

// App is the assembled server.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	sessions *session.Manager
	limiter  *middleware.RateLimiter
	server   *http.Server
}

// NewApp builds the router and the http.Server. The caller owns store and
// closes it after Run returns.
func NewApp(cfg *config.Config, logger *slog.Logger, store storage.Store, version string) *App {
	sessions := session.NewManager(session.Config{
		TTL:           cfg.SessionTTL,
		MaxPerUser:    cfg.MaxSessionsPerUser,
		SweepInterval: cfg.SessionSweepInterval,
	}, logger)
	limiter := middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow, logger)

	router := NewRouter(RouterDeps{
		Logger:       logger,
		Store:        store,
		Sessions:     sessions,
		Deriver:      identity.NewDeriver(cfg.ServerSecret, logger),
		LoginLimiter: limiter,
		MaxBodyBytes: cfg.MaxBodyBytes,
		DevMode:      cfg.DevMode,
		Version:      version,
	})

	return &App{
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		limiter:  limiter,
		server: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
		},
	}
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run listens on the configured address and serves until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln together with the session sweeper.
// Cancelling ctx triggers a graceful shutdown bounded by ShutdownTimeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfoContext(gctx, "HTTP server listening", slog.String("addr", ln.Addr().String()))
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.sessions.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.InfoContext(context.WithoutCancel(gctx), "shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		a.limiter.Stop()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
