// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

// Package budget tracks API credit consumption over a rolling 24h
// window and authorizes planned queries against the daily limit.
//
// The ledger is exact: every grant is recorded with its timestamp, and
// authorization prunes entries older than the window before summing.
// Consumption is recorded at grant time, before any network I/O, so a
// tick canceled mid-flight can never leave the ledger inconsistent and
// a spent credit is never refunded.
package budget

import (
	"sync"
	"time"

	"github.com/olneyjr/aerodash/internal/metrics"
)

// Decision is the outcome of an authorization request.
type Decision struct {
	// Granted reports whether the query may be issued.
	Granted bool
	// Remaining is the credit headroom after this decision.
	Remaining int
}

type entry struct {
	at   time.Time
	cost int
}

// Tracker is the shared credit ledger. All authorization decisions
// serialize against its mutex; budget correctness is the system's key
// invariant and a critical section is the point, not a bottleneck.
type Tracker struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries []entry

	// now is injectable for tests.
	now func() time.Time
}

// NewTracker creates a Tracker with the given rolling window and limit.
func NewTracker(limit int, window time.Duration) *Tracker {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Tracker{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// NewTrackerWithClock creates a Tracker with an injected clock.
func NewTrackerWithClock(limit int, window time.Duration, now func() time.Time) *Tracker {
	t := NewTracker(limit, window)
	t.now = now
	return t
}

// Authorize grants or denies a planned query of the given cost. On
// grant the consumption entry is recorded immediately. Denial is a
// normal outcome, not an error; callers serve stale data instead.
func (t *Tracker) Authorize(cost int) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.prune(now)

	consumed := t.consumedLocked()
	if consumed+cost > t.limit {
		return Decision{Granted: false, Remaining: t.limit - consumed}
	}

	t.entries = append(t.entries, entry{at: now, cost: cost})
	consumed += cost
	metrics.CreditsGranted.Add(float64(cost))
	metrics.WindowConsumption.Set(float64(consumed))

	return Decision{Granted: true, Remaining: t.limit - consumed}
}

// Consumed returns the credits consumed within the current window.
func (t *Tracker) Consumed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(t.now())
	return t.consumedLocked()
}

// Remaining returns the credit headroom within the current window.
func (t *Tracker) Remaining() int {
	return t.limit - t.Consumed()
}

// Limit returns the configured rolling-window credit limit.
func (t *Tracker) Limit() int {
	return t.limit
}

// prune discards ledger entries older than the window. Must be called
// with the mutex held. Entries are appended in time order, so the
// retained suffix starts at the first still-live entry.
func (t *Tracker) prune(now time.Time) {
	cutoff := now.Add(-t.window)
	i := 0
	for i < len(t.entries) && !t.entries[i].at.After(cutoff) {
		i++
	}
	if i > 0 {
		t.entries = append(t.entries[:0], t.entries[i:]...)
	}
}

func (t *Tracker) consumedLocked() int {
	sum := 0
	for _, e := range t.entries {
		sum += e.cost
	}
	return sum
}
