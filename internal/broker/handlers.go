package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// TokenResponse carries the cached JWT.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// RetrieveRequest is the body of POST /v1/token.
type RetrieveRequest struct {
	TokenID     string `json:"token_id"`
	AccessToken string `json:"access_token"`
}

// RouteResponse is the body of GET /v1/routes/{key}.
type RouteResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status        string `json:"status"`
	Authenticated bool   `json:"authenticated"`
}

const maxRequestBody = 64 << 10

func (b *Broker) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, HealthResponse{Status: "ok", Authenticated: b.tokens.HasToken()}, http.StatusOK)
}

// handleGetToken returns the cached JWT, waiting up to ?wait=<duration> for it.
func (b *Broker) handleGetToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	wait, err := parseWait(r.URL.Query().Get("wait"))
	if err != nil {
		writeJSONError(ctx, w, err.Error(), http.StatusBadRequest)
		return
	}

	if wait == 0 {
		if !b.tokens.HasToken() {
			writeJSONError(ctx, w, "token not available", http.StatusNotFound)
			return
		}
		writeJSON(ctx, w, TokenResponse{AccessToken: b.tokens.JWT()}, http.StatusOK)
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	token, err := b.tokens.Wait(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			writeJSONError(ctx, w, "token not available", http.StatusNotFound)
			return
		}
		// Client went away; nothing useful to write.
		return
	}

	writeJSON(ctx, w, TokenResponse{AccessToken: token}, http.StatusOK)
}

// handleRetrieveToken exchanges the posted credentials for a JWT.
func (b *Broker) handleRetrieveToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RetrieveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSONError(ctx, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TokenID == "" || req.AccessToken == "" {
		writeJSONError(ctx, w, "token_id and access_token are required", http.StatusBadRequest)
		return
	}

	if err := b.tokens.Retrieve(ctx, req.TokenID, req.AccessToken); err != nil {
		b.logger.WarnContext(ctx, "token exchange failed", "error", err)
		writeJSONError(ctx, w, "token exchange failed", http.StatusBadGateway)
		return
	}

	writeJSON(ctx, w, TokenResponse{AccessToken: b.tokens.JWT()}, http.StatusOK)
}

func (b *Broker) handleRoute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := r.PathValue("key")

	url, err := b.resolver.LookupURL(key)
	if err != nil {
		writeJSONError(ctx, w, err.Error(), http.StatusNotFound)
		return
	}

	writeJSON(ctx, w, RouteResponse{Key: key, URL: url}, http.StatusOK)
}

func parseWait(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	wait, err := time.ParseDuration(raw)
	if err != nil || wait < 0 {
		return 0, errors.New("invalid wait duration")
	}
	return min(wait, MaxWait), nil
}
