// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/olneyjr/aerodash/internal/budget"
	"github.com/olneyjr/aerodash/internal/config"
	"github.com/olneyjr/aerodash/internal/models"
	"github.com/olneyjr/aerodash/internal/scheduler"
	"github.com/olneyjr/aerodash/internal/snapshot"
)

type fakeFlights struct {
	summaries []models.FlightSummary
	err       error
}

func (f *fakeFlights) Arrivals(ctx context.Context, airport string, begin, end int64) ([]models.FlightSummary, error) {
	return f.summaries, f.err
}

func (f *fakeFlights) Departures(ctx context.Context, airport string, begin, end int64) ([]models.FlightSummary, error) {
	return f.summaries, f.err
}

func (f *fakeFlights) FlightsInterval(ctx context.Context, begin, end int64) ([]models.FlightSummary, error) {
	return f.summaries, f.err
}

type fakeStatuses struct{ statuses []scheduler.Status }

func (f *fakeStatuses) Statuses() []scheduler.Status { return f.statuses }

type testServer struct {
	handler   http.Handler
	snapshots *snapshot.Store
	tracker   *budget.Tracker
	flights   *fakeFlights
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Budget: config.BudgetConfig{DailyLimit: 400, Window: 24 * time.Hour},
		Regions: []config.Region{
			{Name: "europe", BBox: config.BoundingBox{LatMin: 36, LatMax: 71, LonMin: -10, LonMax: 40}},
		},
		Server: config.ServerConfig{
			RateLimitReqs:   1000,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
	}

	ts := &testServer{
		snapshots: snapshot.NewStore(),
		tracker:   budget.NewTracker(400, 24*time.Hour),
		flights:   &fakeFlights{},
	}
	statuses := &fakeStatuses{statuses: []scheduler.Status{
		{Region: "europe", State: scheduler.StateIdle},
	}}
	h := NewHandler(cfg, ts.snapshots, ts.tracker, statuses, ts.flights)
	ts.handler = NewRouter(cfg.Server, h)
	return ts
}

func (ts *testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response envelope: %v", err)
	}
	return resp
}

func TestSnapshotNotYetAvailable(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/v1/snapshots/europe")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Success || resp.Error == nil || resp.Error.Code != ErrCodeNotYetAvailable {
		t.Errorf("envelope = %+v, want NOT_YET_AVAILABLE", resp)
	}
}

func TestSnapshotUnknownRegion(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/v1/snapshots/atlantis")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v, want NOT_FOUND", resp.Error)
	}
}

func TestSnapshotReturnsPublished(t *testing.T) {
	ts := newTestServer(t)
	ts.snapshots.Publish(&models.Snapshot{
		Region:     "europe",
		CapturedAt: time.Unix(1767225600, 0).UTC(),
		Records: []models.FlightRecord{{
			ICAO24:      "abc123",
			AltitudeM:   models.Float64(11277.6),
			WeightClass: models.WeightLarge,
			FlightPhase: models.PhaseLevel,
		}},
		Aggregates: models.AnalyticsResult{TotalCount: 1, LevelCount: 1},
	})

	rec := ts.get(t, "/api/v1/snapshots/europe")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp struct {
		Success bool            `json:"success"`
		Data    models.Snapshot `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || len(resp.Data.Records) != 1 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Data.Records[0].AltitudeM == nil || *resp.Data.Records[0].AltitudeM != 11277.6 {
		t.Error("altitude not round-tripped")
	}
	if resp.Data.Aggregates.TotalCount != 1 {
		t.Errorf("TotalCount = %d", resp.Data.Aggregates.TotalCount)
	}
}

func TestSnapshotCSVExport(t *testing.T) {
	ts := newTestServer(t)
	ts.snapshots.Publish(&models.Snapshot{
		Region:     "europe",
		CapturedAt: time.Now(),
		Records: []models.FlightRecord{{
			ICAO24:      "abc123",
			WeightClass: models.WeightLarge,
			FlightPhase: models.PhaseLevel,
		}},
	})

	rec := ts.get(t, "/api/v1/snapshots/europe/records.csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d CSV lines, want header + 1", len(lines))
	}
	if !strings.HasPrefix(lines[0], "icao24,callsign,country,lat,lon,altitude_m") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "abc123,") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestBudgetEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.tracker.Authorize(4)

	rec := ts.get(t, "/api/v1/budget")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Data budgetView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Limit != 400 || resp.Data.Consumed != 4 || resp.Data.Remaining != 396 {
		t.Errorf("budget = %+v", resp.Data)
	}
}

func TestRegionsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/v1/regions")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Data []regionView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("got %d regions, want 1", len(resp.Data))
	}
	region := resp.Data[0]
	if region.Name != "europe" {
		t.Errorf("Name = %q", region.Name)
	}
	// 35 x 50 deg box: 1750 deg², top billing tier.
	if region.CreditCost != 4 {
		t.Errorf("CreditCost = %d, want 4", region.CreditCost)
	}
	if region.Status == nil || region.Status.State != scheduler.StateIdle {
		t.Errorf("Status = %+v", region.Status)
	}
	if region.Snapshot != nil {
		t.Error("Snapshot meta must be absent before first publish")
	}
}

func TestArrivalsProxy(t *testing.T) {
	ts := newTestServer(t)
	ts.flights.summaries = []models.FlightSummary{{ICAO24: "abc123", EstArrivalAirport: "EGLL"}}

	rec := ts.get(t, "/api/v1/flights/arrival?airport=EGLL&begin=100&end=200")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data []models.FlightSummary `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 1 || resp.Data[0].EstArrivalAirport != "EGLL" {
		t.Errorf("data = %+v", resp.Data)
	}
}

func TestArrivalsValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		path string
	}{
		{"missing airport", "/api/v1/flights/arrival?begin=100&end=200"},
		{"missing begin", "/api/v1/flights/arrival?airport=EGLL&end=200"},
		{"end before begin", "/api/v1/flights/arrival?airport=EGLL&begin=200&end=100"},
		{"non-numeric begin", "/api/v1/flights/arrival?airport=EGLL&begin=x&end=200"},
	}
	for _, tt := range tests {
		rec := ts.get(t, tt.path)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.name, rec.Code)
		}
	}
}

func TestFlightsUpstreamFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.flights.err = errors.New("upstream down")

	rec := ts.get(t, "/api/v1/flights/all?begin=100&end=200")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeExternalServiceFail {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/metrics")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected Prometheus default collectors in output")
	}
}

func TestRequestIDPropagated(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/v1/budget")
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Meta == nil || resp.Meta.RequestID == "" {
		t.Error("request ID missing from response meta")
	}
}
