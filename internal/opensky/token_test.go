// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

package opensky

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTokenServer(t *testing.T, exchanges *atomic.Int64, delay time.Duration) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q, want client_credentials", got)
		}
		n := exchanges.Add(1)
		if delay > 0 {
			time.Sleep(delay)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-` + string(rune('a'+n-1)) + `","expires_in":1800,"token_type":"Bearer"}`))
	}))
}

func TestTokenCachedUntilMargin(t *testing.T) {
	var exchanges atomic.Int64
	srv := newTokenServer(t, &exchanges, 0)
	defer srv.Close()

	tm := NewTokenManager(Credentials{ClientID: "id", ClientSecret: "secret"}, srv.URL, 5*time.Minute)

	first, err := tm.Token(context.Background())
	if err != nil {
		t.Fatalf("first Token() failed: %v", err)
	}
	second, err := tm.Token(context.Background())
	if err != nil {
		t.Fatalf("second Token() failed: %v", err)
	}

	if first.Value != second.Value {
		t.Errorf("expected cached token, got %q then %q", first.Value, second.Value)
	}
	if got := exchanges.Load(); got != 1 {
		t.Errorf("exchanges = %d, want 1", got)
	}
}

func TestTokenRefreshInsideMargin(t *testing.T) {
	var exchanges atomic.Int64
	srv := newTokenServer(t, &exchanges, 0)
	defer srv.Close()

	tm := NewTokenManager(Credentials{ClientID: "id", ClientSecret: "secret"}, srv.URL, 5*time.Minute)

	if _, err := tm.Token(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Move the clock to 2 minutes before expiry, inside the 5m margin.
	base := time.Now()
	tm.now = func() time.Time { return base.Add(1800*time.Second - 2*time.Minute) }

	if _, err := tm.Token(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := exchanges.Load(); got != 2 {
		t.Errorf("exchanges = %d, want 2 (refresh inside safety margin)", got)
	}
}

func TestConcurrentCallersCoalesceIntoOneExchange(t *testing.T) {
	var exchanges atomic.Int64
	// Slow exchange so all callers overlap with the in-flight request.
	srv := newTokenServer(t, &exchanges, 100*time.Millisecond)
	defer srv.Close()

	tm := NewTokenManager(Credentials{ClientID: "id", ClientSecret: "secret"}, srv.URL, 5*time.Minute)

	const callers = 25
	tokens := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := tm.Token(context.Background())
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			tokens[i] = tok.Value
		}(i)
	}
	wg.Wait()

	if got := exchanges.Load(); got != 1 {
		t.Errorf("exchanges = %d, want exactly 1 for concurrent callers", got)
	}
	for i, v := range tokens {
		if v != tokens[0] {
			t.Errorf("caller %d received %q, caller 0 received %q", i, v, tokens[0])
		}
	}
}

func TestRejectedCredentialsAreTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_client", http.StatusUnauthorized)
	}))
	defer srv.Close()

	tm := NewTokenManager(Credentials{ClientID: "bad", ClientSecret: "bad"}, srv.URL, time.Minute)

	_, err := tm.Token(context.Background())
	if err == nil {
		t.Fatal("expected error for rejected credentials")
	}
	if !IsTerminalAuth(err) {
		t.Errorf("expected terminal AuthError, got %v", err)
	}
}

func TestUnreachableEndpointIsRetryable(t *testing.T) {
	tm := NewTokenManager(Credentials{ClientID: "id", ClientSecret: "s"},
		"http://127.0.0.1:1", time.Minute)
	tm.httpClient.Timeout = 200 * time.Millisecond

	_, err := tm.Token(context.Background())
	if err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
	if IsTerminalAuth(err) {
		t.Errorf("transport failure must not be terminal: %v", err)
	}
}
