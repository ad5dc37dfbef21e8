package app

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/florianilch/jwtgate/internal/credstore"
	"github.com/florianilch/jwtgate/internal/hostname"
	"github.com/florianilch/jwtgate/internal/jwttoken"
)

// oauthServer responds with access_token "abc" when the expected credentials are presented.
func oauthServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Authorization") != "Bearer id1, Bearer tok1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"abc"}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestApp(t *testing.T, cfg *Config) *App {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestNewResolvesOAuthURLFromHostname(t *testing.T) {
	cfg := validConfig(t, "https://auth.example.com/oauth/token")
	a := newTestApp(t, cfg)

	if got := a.Tokens().OAuthURL(); got != "https://auth.example.com/oauth/token" {
		t.Errorf("OAuthURL() = %q", got)
	}
	if got := a.Resolver().URL("users"); got != "https://api.example.com//users" {
		t.Errorf("URL(users) = %q", got)
	}
}

func TestNewUnknownHost(t *testing.T) {
	cfg := validConfig(t, "https://auth.example.com/oauth/token")
	cfg.Environment.Origin = "https://elsewhere.example.com"

	if _, err := New(cfg); !errors.Is(err, hostname.ErrUnknownHost) {
		t.Fatalf("New() error = %v, want ErrUnknownHost", err)
	}
}

func TestAcquire(t *testing.T) {
	server := oauthServer(t)
	a := newTestApp(t, validConfig(t, server.URL))

	token, err := a.Acquire(context.Background(), &credstore.Credentials{TokenID: "id1", AccessToken: "tok1"})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if token != "abc" || a.Tokens().JWT() != "abc" {
		t.Errorf("Acquire() = %q, JWT() = %q, want abc", token, a.Tokens().JWT())
	}
}

func TestAcquireFromStore(t *testing.T) {
	server := oauthServer(t)
	cfg := validConfig(t, server.URL)
	a := newTestApp(t, cfg)

	ctx := context.Background()
	if _, err := a.Acquire(ctx, nil); err == nil {
		t.Fatal("Acquire() without stored credentials should fail")
	}

	if err := a.Credentials().Save(ctx, credstore.Credentials{TokenID: "id1", AccessToken: "tok1"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	token, err := a.Acquire(ctx, nil)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if token != "abc" {
		t.Errorf("Acquire() = %q, want abc", token)
	}
}

func TestAcquireRejected(t *testing.T) {
	server := oauthServer(t)
	a := newTestApp(t, validConfig(t, server.URL))

	_, err := a.Acquire(context.Background(), &credstore.Credentials{TokenID: "id1", AccessToken: "wrong"})
	var se *jwttoken.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("Acquire() error = %v, want 401 StatusError", err)
	}
	if a.Tokens().HasToken() {
		t.Error("rejected exchange must leave service unauthenticated")
	}
}

func TestFetch(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `[{"id":1}]`)
	}))
	defer api.Close()

	cfg := validConfig(t, "https://auth.example.com/oauth/token")
	cfg.Hostnames["api.example.com"] = api.URL
	a := newTestApp(t, cfg)

	if _, err := a.Fetch(context.Background(), "users"); !errors.Is(err, jwttoken.ErrNoToken) {
		t.Fatalf("Fetch() without token error = %v, want ErrNoToken", err)
	}

	a.Tokens().Set("abc")
	body, err := a.Fetch(context.Background(), "users")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(body) != `[{"id":1}]` {
		t.Errorf("body = %q", body)
	}

	if _, err := a.Fetch(context.Background(), "missing"); !errors.Is(err, hostname.ErrUnknownRoute) {
		t.Errorf("Fetch(missing) error = %v, want ErrUnknownRoute", err)
	}
}

// freePort returns a TCP port that was free a moment ago.
func freePort(t *testing.T) uint16 {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Close() }()
	return uint16(l.Addr().(*net.TCPAddr).Port)
}

func TestStartAcquiresOnStart(t *testing.T) {
	server := oauthServer(t)
	cfg := validConfig(t, server.URL)
	cfg.Server.Port = freePort(t)
	cfg.Token.AcquireOnStart = true

	store, err := credstore.NewFileStore(cfg.Credentials.File)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(context.Background(), credstore.Credentials{TokenID: "id1", AccessToken: "tok1"}); err != nil {
		t.Fatal(err)
	}

	a, err := New(cfg, WithCredentialStore(store))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if _, err := a.Tokens().Wait(waitCtx); err != nil {
		t.Fatalf("token not acquired on start: %v", err)
	}

	resp, err := http.Get("http://127.0.0.1:" + strconv.Itoa(int(cfg.Server.Port)) + "/v1/token")
	if err != nil {
		t.Fatalf("GET /v1/token: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /v1/token status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}
