package jwttoken

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	// DefaultPollInterval is the delay between two checks of Poll.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultHTTPTimeout bounds a single token exchange.
	DefaultHTTPTimeout = 30 * time.Second

	// maxResponseSize caps how much of the endpoint response is read.
	maxResponseSize = 1 << 20

	// maxErrorBody caps the response excerpt kept in a StatusError.
	maxErrorBody = 512
)

var emptyJSONBody = []byte("{}")

// Option configures a Service.
type Option func(*serviceConfig)

type serviceConfig struct {
	httpClient    *http.Client
	baseTransport http.RoundTripper
	timeout       time.Duration
	pollInterval  time.Duration
	scheduler     Scheduler
	logger        *slog.Logger
}

// WithHTTPClient sets the HTTP client used for the exchange.
// Takes precedence over WithTransport and WithTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *serviceConfig) {
		c.httpClient = client
	}
}

// WithTransport sets a custom base transport for exchange requests.
// If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *serviceConfig) {
		c.baseTransport = transport
	}
}

// WithTimeout bounds each exchange request. Defaults to DefaultHTTPTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *serviceConfig) {
		c.timeout = timeout
	}
}

// WithPollInterval sets the delay between Poll checks. Defaults to DefaultPollInterval.
func WithPollInterval(interval time.Duration) Option {
	return func(c *serviceConfig) {
		c.pollInterval = interval
	}
}

// WithScheduler replaces the timer used by Poll to defer re-checks.
func WithScheduler(scheduler Scheduler) Option {
	return func(c *serviceConfig) {
		c.scheduler = scheduler
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

// Service holds the cached JWT and performs the credential exchange.
type Service struct {
	oauthURL     string
	client       *http.Client
	pollInterval time.Duration
	scheduler    Scheduler
	logger       *slog.Logger

	mu       sync.RWMutex
	hasToken bool
	token    string
	ready    chan struct{} // closed on first Set
}

// Compile-time check to ensure Service implements oauth2.TokenSource
var _ oauth2.TokenSource = (*Service)(nil)

// tokenResponse is the body returned by the OAuth endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// New creates an Unauthenticated Service that exchanges credentials at oauthURL.
func New(oauthURL string, opts ...Option) (*Service, error) {
	if oauthURL == "" {
		return nil, fmt.Errorf("oauth url cannot be empty")
	}
	if _, err := url.ParseRequestURI(oauthURL); err != nil {
		return nil, fmt.Errorf("invalid oauth url: %w", err)
	}

	cfg := &serviceConfig{
		baseTransport: http.DefaultTransport,
		timeout:       DefaultHTTPTimeout,
		pollInterval:  DefaultPollInterval,
		scheduler:     timeScheduler{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := cfg.httpClient
	if client == nil {
		client = &http.Client{
			Timeout:   cfg.timeout,
			Transport: cfg.baseTransport,
		}
	}

	return &Service{
		oauthURL:     oauthURL,
		client:       client,
		pollInterval: cfg.pollInterval,
		scheduler:    cfg.scheduler,
		logger:       cfg.logger,
		ready:        make(chan struct{}),
	}, nil
}

// OAuthURL returns the endpoint used by Retrieve.
func (s *Service) OAuthURL() string {
	return s.oauthURL
}

// Retrieve exchanges tokenID and accessToken for a JWT and caches it.
// Exactly one request is made. On any failure the Service state is unchanged.
func (s *Service) Retrieve(ctx context.Context, tokenID, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.oauthURL, bytes.NewReader(emptyJSONBody))
	if err != nil {
		return fmt.Errorf("creating token request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+tokenID+", Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	s.logger.DebugContext(ctx, "requesting jwt", "url", s.oauthURL, "request_id", requestID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		excerpt := string(body)
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		s.logger.WarnContext(ctx, "jwt exchange rejected", "status", resp.StatusCode, "request_id", requestID)
		return &StatusError{Code: resp.StatusCode, Body: excerpt}
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decoding token response: %w", err)
	}
	if payload.AccessToken == "" {
		return ErrMissingAccessToken
	}

	s.Set(payload.AccessToken)
	s.logger.InfoContext(ctx, "jwt acquired", "request_id", requestID)

	return nil
}

// Set caches token and marks the Service Authenticated. The token format is not checked.
func (s *Service) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	if !s.hasToken {
		s.hasToken = true
		close(s.ready)
	}
}

// JWT returns the cached token, or "" if none was set.
func (s *Service) JWT() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// HasToken reports whether the Service is Authenticated.
func (s *Service) HasToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasToken
}

// Token implements oauth2.TokenSource over the cached JWT.
// Expiry is taken from the exp claim when the token is a parseable JWT.
func (s *Service) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	token, ok := s.token, s.hasToken
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNoToken
	}

	tok := &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}
	if claims, err := parseClaims(token); err == nil && claims.ExpiresAt != nil {
		tok.Expiry = claims.ExpiresAt.Time
	}
	return tok, nil
}
