// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

package opensky

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/olneyjr/aerodash/internal/logging"
	"github.com/olneyjr/aerodash/internal/metrics"
)

// defaultExpiresIn applies when the token endpoint omits expires_in.
// The upstream issues 30-minute tokens.
const defaultExpiresIn = 1800 * time.Second

// Credentials holds the OAuth2 client id and secret. Immutable for the
// process lifetime; never logged.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Token is an issued bearer token. Replaced, never mutated in place.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenResponse mirrors the JSON from the client-credentials endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// TokenManager owns the bearer-token lifecycle: it exchanges the
// credentials via the client-credentials grant, caches the token, and
// refreshes proactively inside the safety margin.
//
// Concurrent callers observe at most one in-flight exchange: the
// refresh happens under the write lock with a double-check, so callers
// arriving during an exchange block on the lock and reuse its result.
type TokenManager struct {
	creds      Credentials
	tokenURL   string
	margin     time.Duration
	httpClient *http.Client

	mu    sync.RWMutex
	token *Token

	// now is injectable for tests.
	now func() time.Time
}

// NewTokenManager creates a token manager for the given endpoint.
func NewTokenManager(creds Credentials, tokenURL string, margin time.Duration) *TokenManager {
	if margin <= 0 {
		margin = 5 * time.Minute
	}
	return &TokenManager{
		creds:      creds,
		tokenURL:   tokenURL,
		margin:     margin,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
}

// WithHTTPClient replaces the exchange HTTP client. Useful for tests.
func (tm *TokenManager) WithHTTPClient(hc *http.Client) *TokenManager {
	tm.httpClient = hc
	return tm
}

// Token returns a valid bearer token, performing a client-credentials
// exchange if the cached token is missing or inside the safety margin
// of its expiry.
func (tm *TokenManager) Token(ctx context.Context) (Token, error) {
	tm.mu.RLock()
	if tok := tm.token; tok != nil && tm.usable(tok) {
		t := *tok
		tm.mu.RUnlock()
		return t, nil
	}
	tm.mu.RUnlock()

	return tm.refresh(ctx)
}

// usable reports whether the token is outside the safety margin.
func (tm *TokenManager) usable(tok *Token) bool {
	return tm.now().Before(tok.ExpiresAt.Add(-tm.margin))
}

// refresh performs the exchange under the write lock. A waiter that
// arrives while another caller holds the lock re-checks the cache and
// reuses the freshly issued token instead of issuing a duplicate
// exchange.
func (tm *TokenManager) refresh(ctx context.Context) (Token, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tok := tm.token; tok != nil && tm.usable(tok) {
		return *tok, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {tm.creds.ClientID},
		"client_secret": {tm.creds.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tm.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, &AuthError{Err: fmt.Errorf("creating token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tm.httpClient.Do(req)
	if err != nil {
		metrics.TokenExchangesTotal.WithLabelValues("failure").Inc()
		return Token{}, &AuthError{Err: fmt.Errorf("requesting token: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		metrics.TokenExchangesTotal.WithLabelValues("failure").Inc()
		// 4xx means the credentials themselves were rejected; nothing
		// will change on retry. Anything else is a transient endpoint
		// problem.
		terminal := resp.StatusCode >= 400 && resp.StatusCode < 500
		return Token{}, &AuthError{
			Terminal: terminal,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("token endpoint returned %d", resp.StatusCode),
		}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		metrics.TokenExchangesTotal.WithLabelValues("failure").Inc()
		return Token{}, &AuthError{Err: fmt.Errorf("decoding token response: %w", err)}
	}

	expiresIn := time.Duration(tr.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}

	issued := tm.now()
	tm.token = &Token{
		Value:     tr.AccessToken,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(expiresIn),
	}

	metrics.TokenExchangesTotal.WithLabelValues("success").Inc()
	logging.Info().Time("expires_at", tm.token.ExpiresAt).Msg("obtained access token")

	return *tm.token, nil
}
