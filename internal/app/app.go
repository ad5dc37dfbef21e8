package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/florianilch/jwtgate/internal/broker"
	"github.com/florianilch/jwtgate/internal/credstore"
	"github.com/florianilch/jwtgate/internal/hostname"
	"github.com/florianilch/jwtgate/internal/jwttoken"
)

// maxFetchBody caps the response body returned by Fetch.
const maxFetchBody = 10 << 20

// App wires the resolver, token service, credential store and broker together.
type App struct {
	cfg      *Config
	resolver *hostname.Resolver
	tokens   *jwttoken.Service
	store    credstore.Store
	broker   *broker.Broker
}

// Option configures an App.
type Option func(*options)

type options struct {
	tokenOpts []jwttoken.Option
	store     credstore.Store
}

// WithTokenOptions passes additional options to the token service.
func WithTokenOptions(opts ...jwttoken.Option) Option {
	return func(o *options) {
		o.tokenOpts = append(o.tokenOpts, opts...)
	}
}

// WithCredentialStore overrides the store derived from the configuration.
func WithCredentialStore(store credstore.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// NewResolver builds the hostname resolver described by cfg.
func NewResolver(cfg *Config) (*hostname.Resolver, error) {
	env, err := cfg.Env()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve environment: %w", err)
	}
	return hostname.NewResolver(cfg.Table(), env), nil
}

// New creates a new App instance. No network I/O is performed.
func New(cfg *Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	resolver, err := NewResolver(cfg)
	if err != nil {
		return nil, err
	}

	host, ok := resolver.Host()
	if !ok {
		return nil, hostname.ErrNoHostname
	}

	oauthURL, err := cfg.Auth.OAuthURL(host)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve oauth endpoint: %w", err)
	}

	tokenOpts := append([]jwttoken.Option{
		jwttoken.WithPollInterval(cfg.Token.PollInterval),
		jwttoken.WithTimeout(cfg.Token.HTTPTimeout),
	}, o.tokenOpts...)

	tokens, err := jwttoken.New(oauthURL, tokenOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	store := o.store
	if store == nil {
		store, err = cfg.Credentials.NewStore()
		if err != nil {
			return nil, fmt.Errorf("failed to create credential store: %w", err)
		}
	}

	b, err := broker.New(tokens, resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to create broker: %w", err)
	}

	return &App{
		cfg:      cfg,
		resolver: resolver,
		tokens:   tokens,
		store:    store,
		broker:   b,
	}, nil
}

// Tokens returns the token service.
func (a *App) Tokens() *jwttoken.Service {
	return a.tokens
}

// Resolver returns the hostname resolver.
func (a *App) Resolver() *hostname.Resolver {
	return a.resolver
}

// Credentials returns the credential store.
func (a *App) Credentials() credstore.Store {
	return a.store
}

// Acquire exchanges credentials for a JWT, bounded by token.acquire_timeout.
// Stored credentials are used when creds is nil.
func (a *App) Acquire(ctx context.Context, creds *credstore.Credentials) (string, error) {
	if creds == nil {
		stored, err := a.store.Load(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to load credentials: %w", err)
		}
		creds = &stored
	}
	if err := creds.Validate(); err != nil {
		return "", fmt.Errorf("invalid credentials: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Token.AcquireTimeout)
	defer cancel()

	if err := a.tokens.Retrieve(ctx, creds.TokenID, creds.AccessToken); err != nil {
		return "", err
	}
	return a.tokens.JWT(), nil
}

// Fetch issues an authenticated GET to the URL of route key and returns the body.
// Fails with jwttoken.ErrNoToken if no JWT is cached.
func (a *App) Fetch(ctx context.Context, key string) ([]byte, error) {
	target, err := a.resolver.LookupURL(key)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	client := &http.Client{
		Timeout:   a.cfg.Token.HTTPTimeout,
		Transport: &oauth2.Transport{Source: a.tokens, Base: http.DefaultTransport},
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return body, fmt.Errorf("fetching %s: status %d", key, resp.StatusCode)
	}
	return body, nil
}

// Start starts the broker and blocks until ctx is cancelled or the broker fails.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	address := a.cfg.Server.Host + ":" + strconv.FormatUint(uint64(a.cfg.Server.Port), 10)
	var shutdownFuncs []func(context.Context) error

	slog.InfoContext(gCtx, "starting token broker", "address", address, "oauth_url", a.tokens.OAuthURL())
	brokerErrCh, err := a.broker.Start(gCtx, address)
	if err != nil {
		return fmt.Errorf("broker startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.broker.Shutdown)

	g.Go(func() error {
		select {
		case err := <-brokerErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "broker runtime error", "error", err)
				return fmt.Errorf("broker: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	a.tokens.PollForToken(gCtx, func() {
		a.logTokenAvailable(gCtx)
	})

	if a.cfg.Token.AcquireOnStart {
		// A failed exchange leaves the broker running Unauthenticated; clients can POST credentials later.
		g.Go(func() error {
			if _, err := a.Acquire(gCtx, nil); err != nil && gCtx.Err() == nil {
				slog.ErrorContext(gCtx, "startup token acquisition failed", "error", err)
			}
			return nil
		})
	}

	slog.InfoContext(gCtx, "application ready", "address", address)

	runtimeErr := g.Wait()

	slog.InfoContext(ctx, "shutting down services")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}

// logTokenAvailable logs non-secret facts about the cached JWT.
func (a *App) logTokenAvailable(ctx context.Context) {
	claims, err := a.tokens.Claims()
	if err != nil {
		slog.InfoContext(ctx, "token available", "format", "opaque")
		return
	}

	attrs := []any{"subject", claims.Subject}
	if claims.ExpiresAt != nil {
		attrs = append(attrs, "expires_at", claims.ExpiresAt.Time)
	}
	slog.InfoContext(ctx, "token available", attrs...)
}
