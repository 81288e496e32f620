// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olneyjr/aerodash/internal/budget"
	"github.com/olneyjr/aerodash/internal/config"
	"github.com/olneyjr/aerodash/internal/logging"
	"github.com/olneyjr/aerodash/internal/models"
	"github.com/olneyjr/aerodash/internal/opensky"
	"github.com/olneyjr/aerodash/internal/scheduler"
	"github.com/olneyjr/aerodash/internal/snapshot"
)

// FlightsClient is the historical flights surface consumed by the API.
type FlightsClient interface {
	Arrivals(ctx context.Context, airport string, begin, end int64) ([]models.FlightSummary, error)
	Departures(ctx context.Context, airport string, begin, end int64) ([]models.FlightSummary, error)
	FlightsInterval(ctx context.Context, begin, end int64) ([]models.FlightSummary, error)
}

// StatusSource exposes per-region poller status.
type StatusSource interface {
	Statuses() []scheduler.Status
}

// Handler serves the read surface.
type Handler struct {
	cfg       *config.Config
	snapshots *snapshot.Store
	tracker   *budget.Tracker
	statuses  StatusSource
	flights   FlightsClient
}

// NewHandler wires the handler's collaborators. flights and statuses
// may be nil; the corresponding endpoints then report unavailable.
func NewHandler(cfg *config.Config, snapshots *snapshot.Store, tracker *budget.Tracker, statuses StatusSource, flights FlightsClient) *Handler {
	return &Handler{
		cfg:       cfg,
		snapshots: snapshots,
		tracker:   tracker,
		statuses:  statuses,
		flights:   flights,
	}
}

// regionView is one entry of the regions listing.
type regionView struct {
	Name       string             `json:"name"`
	BBox       config.BoundingBox `json:"bbox"`
	CreditCost int                `json:"credit_cost"`
	Status     *scheduler.Status  `json:"status,omitempty"`
	Snapshot   *snapshotMetaView  `json:"snapshot,omitempty"`
}

type snapshotMetaView struct {
	CapturedAt  string `json:"captured_at"`
	RecordCount int    `json:"record_count"`
}

// Regions lists the configured regions with their refresh status.
func (h *Handler) Regions(w http.ResponseWriter, r *http.Request) {
	statusByRegion := make(map[string]scheduler.Status)
	if h.statuses != nil {
		for _, st := range h.statuses.Statuses() {
			statusByRegion[st.Region] = st
		}
	}

	views := make([]regionView, 0, len(h.cfg.Regions))
	for _, region := range h.cfg.Regions {
		view := regionView{
			Name:       region.Name,
			BBox:       region.BBox,
			CreditCost: region.CreditCost(),
		}
		if st, ok := statusByRegion[region.Name]; ok {
			view.Status = &st
		}
		if snap, ok := h.snapshots.Current(region.Name); ok {
			view.Snapshot = &snapshotMetaView{
				CapturedAt:  snap.CapturedAt.Format("2006-01-02T15:04:05Z07:00"),
				RecordCount: len(snap.Records),
			}
		}
		views = append(views, view)
	}

	writeSuccess(w, r, views)
}

// Snapshot returns the region's current snapshot. 404 with
// NOT_YET_AVAILABLE until the region's first successful refresh.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")
	if _, ok := h.cfg.RegionByName(region); !ok {
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound,
			fmt.Sprintf("unknown region %q", region))
		return
	}

	snap, ok := h.snapshots.Current(region)
	if !ok {
		writeError(w, r, http.StatusNotFound, ErrCodeNotYetAvailable,
			fmt.Sprintf("no snapshot published yet for region %q", region))
		return
	}

	writeSuccess(w, r, snap)
}

// SnapshotCSV exports the region's current records as CSV.
func (h *Handler) SnapshotCSV(w http.ResponseWriter, r *http.Request) {
	region := chi.URLParam(r, "region")
	if _, ok := h.cfg.RegionByName(region); !ok {
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound,
			fmt.Sprintf("unknown region %q", region))
		return
	}

	snap, ok := h.snapshots.Current(region)
	if !ok {
		writeError(w, r, http.StatusNotFound, ErrCodeNotYetAvailable,
			fmt.Sprintf("no snapshot published yet for region %q", region))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", region+"-records.csv"))
	if err := snapshot.WriteCSV(w, snap.Records); err != nil {
		logging.Error().Err(err).Str("region", region).Msg("writing CSV export")
	}
}

// budgetView is the credit budget status payload.
type budgetView struct {
	Limit         int     `json:"limit"`
	Consumed      int     `json:"consumed"`
	Remaining     int     `json:"remaining"`
	WindowSeconds float64 `json:"window_seconds"`
}

// Budget reports the rolling-window credit status.
func (h *Handler) Budget(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, budgetView{
		Limit:         h.tracker.Limit(),
		Consumed:      h.tracker.Consumed(),
		Remaining:     h.tracker.Remaining(),
		WindowSeconds: h.cfg.Budget.Window.Seconds(),
	})
}

// Arrivals proxies the upstream arrivals query for an airport.
func (h *Handler) Arrivals(w http.ResponseWriter, r *http.Request) {
	h.flightsQuery(w, r, true, func(ctx context.Context, airport string, begin, end int64) ([]models.FlightSummary, error) {
		return h.flights.Arrivals(ctx, airport, begin, end)
	})
}

// Departures proxies the upstream departures query for an airport.
func (h *Handler) Departures(w http.ResponseWriter, r *http.Request) {
	h.flightsQuery(w, r, true, func(ctx context.Context, airport string, begin, end int64) ([]models.FlightSummary, error) {
		return h.flights.Departures(ctx, airport, begin, end)
	})
}

// FlightsInterval proxies the upstream all-flights interval query.
func (h *Handler) FlightsInterval(w http.ResponseWriter, r *http.Request) {
	h.flightsQuery(w, r, false, func(ctx context.Context, _ string, begin, end int64) ([]models.FlightSummary, error) {
		return h.flights.FlightsInterval(ctx, begin, end)
	})
}

func (h *Handler) flightsQuery(w http.ResponseWriter, r *http.Request, needAirport bool,
	query func(ctx context.Context, airport string, begin, end int64) ([]models.FlightSummary, error)) {
	if h.flights == nil {
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeExternalServiceFail,
			"historical flights surface not configured")
		return
	}

	airport := r.URL.Query().Get("airport")
	if needAirport && airport == "" {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "airport parameter is required")
		return
	}

	begin, err := strconv.ParseInt(r.URL.Query().Get("begin"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "begin must be a unix timestamp")
		return
	}
	end, err := strconv.ParseInt(r.URL.Query().Get("end"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "end must be a unix timestamp")
		return
	}
	if end <= begin {
		writeError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "end must be after begin")
		return
	}

	flights, err := query(r.Context(), airport, begin, end)
	if err != nil {
		if opensky.IsTerminalAuth(err) {
			logging.Error().Err(err).Msg("upstream rejected credentials for flights query")
			writeError(w, r, http.StatusBadGateway, ErrCodeExternalServiceFail,
				"upstream authentication failed")
			return
		}
		logging.Error().Err(err).Msg("flights query failed")
		writeError(w, r, http.StatusBadGateway, ErrCodeExternalServiceFail,
			"upstream query failed")
		return
	}

	writeSuccess(w, r, flights)
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, map[string]string{"status": "ok"})
}
