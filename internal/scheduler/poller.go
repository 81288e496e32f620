// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

// Package scheduler drives the refresh loop: one poller goroutine per
// configured region, each ticking through authorize, fetch, transform,
// analyze and publish. Regions are independent; one region's failed or
// denied tick never affects another, and a failed tick leaves the
// previous snapshot in place.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/olneyjr/aerodash/internal/analytics"
	"github.com/olneyjr/aerodash/internal/budget"
	"github.com/olneyjr/aerodash/internal/config"
	"github.com/olneyjr/aerodash/internal/logging"
	"github.com/olneyjr/aerodash/internal/metrics"
	"github.com/olneyjr/aerodash/internal/models"
	"github.com/olneyjr/aerodash/internal/opensky"
	"github.com/olneyjr/aerodash/internal/rawcache"
	"github.com/olneyjr/aerodash/internal/snapshot"
	"github.com/olneyjr/aerodash/internal/transform"
)

// State is the observable phase of a region's refresh cycle.
type State string

const (
	StateIdle        State = "IDLE"
	StateAuthorizing State = "AUTHORIZING"
	StateFetching    State = "FETCHING"
	StateSucceeded   State = "SUCCEEDED"
	StateFailed      State = "FAILED"
)

// Status is a point-in-time view of one region's poller.
type Status struct {
	Region      string    `json:"region"`
	State       State     `json:"state"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	TickCount   int64     `json:"tick_count"`
}

// Poller refreshes one region on a fixed interval.
type Poller struct {
	region       config.Region
	interval     time.Duration
	fetchTimeout time.Duration

	tracker      *budget.Tracker
	fetcher      opensky.StatesFetcher
	raw          *rawcache.Cache
	snapshots    *snapshot.Store
	transformOpt transform.Options
	analyticsCfg config.AnalyticsConfig

	mu          sync.Mutex
	state       State
	lastSuccess time.Time
	lastError   error
	tickCount   int64

	now func() time.Time
}

// PollerDeps bundles the shared collaborators a poller needs.
type PollerDeps struct {
	Tracker   *budget.Tracker
	Fetcher   opensky.StatesFetcher
	RawCache  *rawcache.Cache
	Snapshots *snapshot.Store
}

// NewPoller creates a poller for one region.
func NewPoller(region config.Region, cfg *config.Config, deps PollerDeps) *Poller {
	return &Poller{
		region:       region,
		interval:     cfg.Scheduler.Interval,
		fetchTimeout: cfg.Upstream.FetchTimeout,
		tracker:      deps.Tracker,
		fetcher:      deps.Fetcher,
		raw:          deps.RawCache,
		snapshots:    deps.Snapshots,
		transformOpt: transform.Options{ClimbThresholdMPS: cfg.Transform.ClimbThresholdMPS},
		analyticsCfg: cfg.Analytics,
		state:        StateIdle,
		now:          time.Now,
	}
}

// Run ticks immediately, then on every interval until ctx is canceled.
// Tick failures are absorbed here; nothing propagates to the caller.
func (p *Poller) Run(ctx context.Context) {
	logging.Info().
		Str("region", p.region.Name).
		Dur("interval", p.interval).
		Int("credit_cost", p.region.CreditCost()).
		Msg("region poller starting")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("region", p.region.Name).Msg("region poller stopping")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs one refresh cycle. On denial or failure the previous
// snapshot stays current and consumed credits are not refunded.
func (p *Poller) tick(ctx context.Context) {
	p.setState(StateAuthorizing)

	decision := p.tracker.Authorize(p.region.CreditCost())
	if !decision.Granted {
		metrics.FetchesTotal.WithLabelValues(p.region.Name, "denied").Inc()
		metrics.AuthorizationsDenied.WithLabelValues(p.region.Name).Inc()
		logging.Warn().
			Str("region", p.region.Name).
			Int("remaining", decision.Remaining).
			Int("cost", p.region.CreditCost()).
			Msg("refresh denied by credit budget, serving previous snapshot")
		p.republishFromCache()
		p.finish(StateFailed, errBudgetDenied)
		return
	}

	p.setState(StateFetching)
	started := p.now()

	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	payload, err := p.fetcher.StatesByBBox(fetchCtx, p.region)
	cancel()

	metrics.FetchDuration.WithLabelValues(p.region.Name).Observe(p.now().Sub(started).Seconds())

	if err != nil {
		metrics.FetchesTotal.WithLabelValues(p.region.Name, "error").Inc()
		logging.Error().
			Err(err).
			Str("region", p.region.Name).
			Msg("upstream fetch failed, previous snapshot remains current")
		p.republishFromCache()
		p.finish(StateFailed, err)
		return
	}

	metrics.FetchesTotal.WithLabelValues(p.region.Name, "success").Inc()
	metrics.StateVectorsFetched.WithLabelValues(p.region.Name).Add(float64(len(payload.States)))

	p.raw.Put(payload)
	p.publish(payload)
	p.finish(StateSucceeded, nil)
}

// republishFromCache rebuilds a snapshot from the last good raw payload
// when none has been published yet, so a denied or failed first tick
// still serves data if an earlier payload survives in the cache.
func (p *Poller) republishFromCache() {
	if _, ok := p.snapshots.Current(p.region.Name); ok {
		return
	}
	payload, ok := p.raw.Get(p.region.Name)
	if !ok {
		return
	}
	logging.Info().
		Str("region", p.region.Name).
		Time("fetched_at", payload.FetchedAt).
		Msg("rebuilding snapshot from cached raw payload")
	p.publish(payload)
}

// publish runs transform and analytics over the payload and atomically
// replaces the region's snapshot.
func (p *Poller) publish(payload *models.RawPayload) {
	records := transform.Transform(payload.States, p.transformOpt)
	metrics.RecordsTransformed.WithLabelValues(p.region.Name, "kept").Add(float64(len(records)))
	if dropped := len(payload.States) - len(records); dropped > 0 {
		metrics.RecordsTransformed.WithLabelValues(p.region.Name, "dropped").Add(float64(dropped))
	}

	aggregates := analytics.Analyze(records, p.analyticsCfg)
	metrics.AnomaliesFlagged.WithLabelValues(p.region.Name).Add(float64(len(aggregates.Anomalies)))

	p.snapshots.Publish(&models.Snapshot{
		CapturedAt: payload.FetchedAt,
		Region:     p.region.Name,
		Records:    records,
		Aggregates: aggregates,
	})

	logging.Info().
		Str("region", p.region.Name).
		Int("records", len(records)).
		Int("anomalies", len(aggregates.Anomalies)).
		Msg("snapshot published")
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Poller) finish(s State, err error) {
	p.mu.Lock()
	p.state = s
	p.lastError = err
	p.tickCount++
	if s == StateSucceeded {
		p.lastSuccess = p.now()
	}
	last := p.lastSuccess
	p.mu.Unlock()

	if !last.IsZero() {
		metrics.SnapshotAge.WithLabelValues(p.region.Name).Set(p.now().Sub(last).Seconds())
	}
}

// Status returns the poller's current observable state.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Status{
		Region:      p.region.Name,
		State:       p.state,
		LastSuccess: p.lastSuccess,
		TickCount:   p.tickCount,
	}
	if p.lastError != nil {
		st.LastError = p.lastError.Error()
	}
	return st
}
