package jwttoken

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// newTestService returns a Service pointed at the given endpoint.
func newTestService(t *testing.T, oauthURL string, opts ...Option) *Service {
	t.Helper()
	svc, err := New(oauthURL, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return svc
}

// signedJWT builds an HS256 JWT expiring at exp.
func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("signing jwt: %v", err)
	}
	return signed
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "valid url", url: "https://auth.example.com/oauth/token"},
		{name: "empty url", url: "", wantErr: true},
		{name: "relative url", url: "oauth/token", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := New(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if err == nil && svc.HasToken() {
				t.Error("new service should be unauthenticated")
			}
		})
	}
}

func TestSetAndJWT(t *testing.T) {
	svc := newTestService(t, "https://auth.example.com/token")

	if got := svc.JWT(); got != "" {
		t.Errorf("JWT() before Set = %q, want empty", got)
	}

	svc.Set("T")
	if got := svc.JWT(); got != "T" {
		t.Errorf("JWT() = %q, want T", got)
	}
	if !svc.HasToken() {
		t.Error("HasToken() = false after Set")
	}

	// Overwrite keeps the service authenticated and must not panic on the ready channel.
	svc.Set("T2")
	if got := svc.JWT(); got != "T2" {
		t.Errorf("JWT() after overwrite = %q, want T2", got)
	}
}

// capturedRequest holds what the test endpoint observed.
type capturedRequest struct {
	method      string
	path        string
	auth        string
	contentType string
	requestID   string
	body        string
}

func TestRetrieve(t *testing.T) {
	captured := make(chan capturedRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured <- capturedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			requestID:   r.Header.Get("X-Request-Id"),
			body:        string(body),
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"abc"}`)
	}))
	defer server.Close()

	svc := newTestService(t, server.URL+"/oauth/token")

	if err := svc.Retrieve(context.Background(), "id1", "tok1"); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	got := <-captured
	if got.method != http.MethodPost {
		t.Errorf("method = %s, want POST", got.method)
	}
	if got.path != "/oauth/token" {
		t.Errorf("path = %s, want /oauth/token", got.path)
	}
	if want := "Bearer id1, Bearer tok1"; got.auth != want {
		t.Errorf("Authorization = %q, want %q", got.auth, want)
	}
	if got.body != "{}" {
		t.Errorf("body = %q, want {}", got.body)
	}
	if got.contentType != "application/json" {
		t.Errorf("Content-Type = %q", got.contentType)
	}
	if got.requestID == "" {
		t.Error("X-Request-Id header missing")
	}
	if token := svc.JWT(); token != "abc" {
		t.Errorf("JWT() = %q, want abc", token)
	}
	if !svc.HasToken() {
		t.Error("HasToken() = false after successful Retrieve")
	}
}

func TestRetrieveFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(error) bool
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":"invalid_token"}`,
			wantErr: func(err error) bool {
				var se *StatusError
				return errors.As(err, &se) && se.Code == http.StatusUnauthorized
			},
		},
		{
			name:    "missing access_token",
			status:  http.StatusOK,
			body:    `{"token_type":"bearer"}`,
			wantErr: func(err error) bool { return errors.Is(err, ErrMissingAccessToken) },
		},
		{
			name:    "malformed json",
			status:  http.StatusOK,
			body:    `not json`,
			wantErr: func(err error) bool { return err != nil && !errors.Is(err, ErrMissingAccessToken) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			svc := newTestService(t, server.URL)
			err := svc.Retrieve(context.Background(), "id", "tok")
			if !tt.wantErr(err) {
				t.Fatalf("Retrieve() error = %v", err)
			}
			if svc.HasToken() {
				t.Error("failed Retrieve must leave service unauthenticated")
			}
		})
	}
}

func TestRetrieveTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	svc := newTestService(t, url)
	if err := svc.Retrieve(context.Background(), "id", "tok"); err == nil {
		t.Fatal("Retrieve() against closed server should fail")
	}
	if svc.HasToken() {
		t.Error("transport failure must leave service unauthenticated")
	}
}

func TestRetrieveIssuesOneRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)
	_ = svc.Retrieve(context.Background(), "id", "tok")

	if n := calls.Load(); n != 1 {
		t.Errorf("endpoint called %d times, want 1", n)
	}
}

func TestTokenSource(t *testing.T) {
	svc := newTestService(t, "https://auth.example.com/token")

	if _, err := svc.Token(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Token() before Set error = %v, want ErrNoToken", err)
	}

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	svc.Set(signedJWT(t, exp))

	tok, err := svc.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want Bearer", tok.TokenType)
	}
	if !tok.Expiry.Equal(exp) {
		t.Errorf("Expiry = %v, want %v", tok.Expiry, exp)
	}

	svc.Set("opaque-token")
	tok, err = svc.Token()
	if err != nil {
		t.Fatalf("Token() with opaque token error = %v", err)
	}
	if !tok.Expiry.IsZero() {
		t.Errorf("opaque token Expiry = %v, want zero", tok.Expiry)
	}
}

func TestClaims(t *testing.T) {
	svc := newTestService(t, "https://auth.example.com/token")

	if _, err := svc.Claims(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Claims() before Set error = %v, want ErrNoToken", err)
	}

	svc.Set(signedJWT(t, time.Now().Add(time.Hour)))
	claims, err := svc.Claims()
	if err != nil {
		t.Fatalf("Claims() error = %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("Subject = %q, want user-1", claims.Subject)
	}

	svc.Set("opaque-token")
	if _, err := svc.Claims(); !errors.Is(err, ErrNotJWT) {
		t.Errorf("Claims() with opaque token error = %v, want ErrNotJWT", err)
	}
}
