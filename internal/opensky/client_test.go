// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

package opensky

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olneyjr/aerodash/internal/config"
)

func testUpstreamConfig(baseURL, tokenURL string) config.UpstreamConfig {
	return config.UpstreamConfig{
		BaseURL:            baseURL,
		TokenURL:           tokenURL,
		ClientID:           "id",
		ClientSecret:       "secret",
		FetchTimeout:       5 * time.Second,
		MinRequestInterval: time.Millisecond,
		TokenSafetyMargin:  time.Minute,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	var exchanges atomic.Int64
	tokenSrv := newTokenServer(t, &exchanges, 0)
	t.Cleanup(tokenSrv.Close)

	apiSrv := httptest.NewServer(handler)
	t.Cleanup(apiSrv.Close)

	cfg := testUpstreamConfig(apiSrv.URL, tokenSrv.URL)
	tm := NewTokenManager(Credentials{ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret},
		cfg.TokenURL, cfg.TokenSafetyMargin)
	return NewClient(cfg, tm), apiSrv
}

var testRegion = config.Region{
	Name: "test",
	BBox: config.BoundingBox{LatMin: 45.0, LatMax: 50.0, LonMin: -10.0, LonMax: 0.0},
}

func TestStatesByBBoxDecodesExtendedRows(t *testing.T) {
	// One 18-column row with category, one with nulls in telemetry
	// cells, one short row that must be dropped.
	body := `{"time":1767225600,"states":[
		["abc123","KLM123  ","Netherlands",1767225590,1767225599,4.76,52.31,11277.6,false,245.3,87.5,2.6,null,11582.4,"1000",false,0,4],
		["def456","","Germany",null,1767225599,null,null,null,true,null,null,null,null,null,null,false,0,2],
		["short","row"]
	]}`

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("extended"); got != "1" {
			t.Errorf("extended = %q, want 1", got)
		}
		if got := r.URL.Query().Get("lamin"); got != "45" {
			t.Errorf("lamin = %q, want 45", got)
		}
		if got := r.Header.Get("Authorization"); got == "" {
			t.Error("missing Authorization header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})

	payload, err := client.StatesByBBox(context.Background(), testRegion)
	if err != nil {
		t.Fatalf("StatesByBBox failed: %v", err)
	}

	if payload.Time != 1767225600 {
		t.Errorf("Time = %d, want 1767225600", payload.Time)
	}
	if len(payload.States) != 2 {
		t.Fatalf("decoded %d states, want 2 (short row dropped)", len(payload.States))
	}

	full := payload.States[0]
	if full.ICAO24 != "abc123" {
		t.Errorf("ICAO24 = %q", full.ICAO24)
	}
	if full.BaroAltitude == nil || *full.BaroAltitude != 11277.6 {
		t.Errorf("BaroAltitude = %v, want 11277.6", full.BaroAltitude)
	}
	if full.Category == nil || *full.Category != 4 {
		t.Errorf("Category = %v, want 4", full.Category)
	}
	if full.Squawk == nil || *full.Squawk != "1000" {
		t.Errorf("Squawk = %v, want 1000", full.Squawk)
	}

	sparse := payload.States[1]
	if !sparse.OnGround {
		t.Error("expected OnGround true")
	}
	if sparse.Velocity != nil {
		t.Errorf("null velocity must stay nil, got %v", *sparse.Velocity)
	}
	if sparse.BaroAltitude != nil {
		t.Errorf("null altitude must stay nil, got %v", *sparse.BaroAltitude)
	}
	if sparse.Category == nil || *sparse.Category != 2 {
		t.Errorf("Category = %v, want 2", sparse.Category)
	}
}

func TestStatesByBBoxSeventeenColumnRows(t *testing.T) {
	// Without extended support the category column is absent.
	body := `{"time":100,"states":[
		["abc123","X","Y",null,99,1.0,2.0,300.0,false,50.0,180.0,0.0,null,310.0,null,false,0]
	]}`

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	payload, err := client.StatesByBBox(context.Background(), testRegion)
	if err != nil {
		t.Fatal(err)
	}
	if len(payload.States) != 1 {
		t.Fatalf("decoded %d states, want 1", len(payload.States))
	}
	if payload.States[0].Category != nil {
		t.Errorf("Category = %v, want nil for 17-column row", *payload.States[0].Category)
	}
}

func TestStatesByBBoxRateLimited(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Rate-Limit-Retry-After-Seconds", "90")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.StatesByBBox(context.Background(), testRegion)
	if err == nil {
		t.Fatal("expected error for 429 response")
	}

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T", err)
	}
	if te.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", te.Status)
	}
	if te.RetryAfter != 90*time.Second {
		t.Errorf("RetryAfter = %s, want 90s", te.RetryAfter)
	}
}

func TestStatesByBBoxUpstreamError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.StatesByBBox(context.Background(), testRegion)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", te.Status)
	}
}

func TestArrivalsDecoding(t *testing.T) {
	body := `[{"icao24":"abc123","firstSeen":100,"lastSeen":200,"estDepartureAirport":"EHAM","estArrivalAirport":"EGLL","callsign":"KLM123"}]`

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/flights/arrival" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("airport"); got != "EGLL" {
			t.Errorf("airport = %q, want EGLL", got)
		}
		_, _ = w.Write([]byte(body))
	})

	flights, err := client.Arrivals(context.Background(), "EGLL", 100, 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(flights) != 1 || flights[0].EstArrivalAirport != "EGLL" {
		t.Errorf("unexpected flights: %+v", flights)
	}
}
