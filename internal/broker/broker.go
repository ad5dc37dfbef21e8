// Package broker serves the cached JWT to local processes over HTTP.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// MaxWait bounds the wait query parameter of GET /v1/token.
const MaxWait = 60 * time.Second

// TokenService is the token cache the broker exposes.
type TokenService interface {
	Retrieve(ctx context.Context, tokenID, accessToken string) error
	Wait(ctx context.Context) (string, error)
	HasToken() bool
	JWT() string
}

// RouteResolver resolves logical route keys to URLs.
type RouteResolver interface {
	LookupURL(key string) (string, error)
}

// Option configures a Broker.
type Option func(*Broker)

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		b.logger = logger
	}
}

// Broker is the local token HTTP server.
type Broker struct {
	tokens   TokenService
	resolver RouteResolver
	logger   *slog.Logger

	mux    *http.ServeMux
	server *http.Server
}

// Compile-time check that Broker implements http.Handler
var _ http.Handler = (*Broker)(nil)

// New creates a Broker over the given token service and resolver.
func New(tokens TokenService, resolver RouteResolver, opts ...Option) (*Broker, error) {
	if tokens == nil {
		return nil, fmt.Errorf("missing token service")
	}
	if resolver == nil {
		return nil, fmt.Errorf("missing route resolver")
	}

	b := &Broker{
		tokens:   tokens,
		resolver: resolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}

	middlewares := []func(http.Handler) http.Handler{
		Logging(b.logger),
		Recovery,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", applyMiddlewares(http.HandlerFunc(b.handleHealth), middlewares...))
	mux.Handle("GET /v1/token", applyMiddlewares(http.HandlerFunc(b.handleGetToken), middlewares...))
	mux.Handle("POST /v1/token", applyMiddlewares(http.HandlerFunc(b.handleRetrieveToken), middlewares...))
	mux.Handle("GET /v1/routes/{key}", applyMiddlewares(http.HandlerFunc(b.handleRoute), middlewares...))
	b.mux = mux

	return b, nil
}

// ServeHTTP implements http.Handler interface
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors are sent to the error channel, which is closed when the server stops.
//
// The caller is responsible for calling Shutdown() to stop the server.
func (b *Broker) Start(ctx context.Context, address string) (<-chan error, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	b.server = &http.Server{
		Handler:     b,
		ReadTimeout: 10 * time.Second,
		// Long enough for the longest token wait plus response write.
		WriteTimeout: MaxWait + 10*time.Second,
		IdleTimeout:  90 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := b.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Shutdown performs graceful shutdown of the HTTP server.
func (b *Broker) Shutdown(ctx context.Context) error {
	if b.server == nil {
		return nil
	}

	if err := b.server.Shutdown(ctx); err != nil {
		_ = b.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
