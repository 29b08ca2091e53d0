// ABOUTME: Gateway orchestrator that serves the chat REST API and realtime sockets
// ABOUTME: Wires store, conversation service, broadcaster and auth into one HTTP server

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/2389/coven-chat/internal/auth"
	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/conversation"
	"github.com/2389/coven-chat/internal/store"
)

// Gateway serves the chat API.
type Gateway struct {
	store        store.Store
	conversation *conversation.Service
	broadcaster  *conversation.Broadcaster
	verifier     auth.TokenVerifier
	handler      http.Handler
	httpServer   *http.Server
	logger       *slog.Logger

	addr           string
	allowedOrigins []string
}

// Options configures NewWithStore.
type Options struct {
	Addr           string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// New creates a Gateway backed by a SQLite database from cfg.Dev.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if err := cfg.ValidateDev(); err != nil {
		return nil, err
	}

	s, err := store.Open(cfg.Dev.Store, cfg.Dev.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	verifier := auth.NewJWTVerifier([]byte(cfg.Dev.JWTSecret))
	return NewWithStore(s, verifier, Options{
		Addr:           cfg.Dev.Addr,
		AllowedOrigins: cfg.Dev.AllowedOrigins,
		Logger:         logger,
	}), nil
}

// NewWithStore creates a Gateway over an existing store. The gateway takes
// ownership of s and closes it on Shutdown.
func NewWithStore(s store.Store, verifier auth.TokenVerifier, opts Options) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	broadcaster := conversation.NewBroadcaster(logger)
	gw := &Gateway{
		store:          s,
		conversation:   conversation.New(s, broadcaster, logger),
		broadcaster:    broadcaster,
		verifier:       verifier,
		logger:         logger.With("component", "gateway"),
		addr:           opts.Addr,
		allowedOrigins: opts.AllowedOrigins,
	}
	gw.handler = gw.routes()
	gw.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           gw.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return gw
}

// Handler returns the root HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Run listens on the configured address until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.addr, err)
	}
	return g.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	g.logger.Info("starting gateway", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
		close(errCh)
	}()

	serverErr := g.waitForShutdownSignal(ctx, errCh)
	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		if err != nil {
			g.logger.Error("server error", "error", err)
		}
		return err
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server, closes live sockets and the store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	// Closing subscriber channels ends every socket's write loop.
	g.broadcaster.Close()

	errs = appendCloseError(errs, "store close", g.store.Close())

	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
