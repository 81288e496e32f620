// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

// Package snapshot holds the published per-region snapshots. A publish
// atomically replaces the region's previous snapshot; readers always
// see a complete snapshot or none at all, never partial state.
package snapshot

import (
	"sync"

	"github.com/olneyjr/aerodash/internal/metrics"
	"github.com/olneyjr/aerodash/internal/models"
)

// Store is the atomic snapshot registry. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	current map[string]*models.Snapshot
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{current: make(map[string]*models.Snapshot)}
}

// Publish replaces the region's current snapshot. The snapshot must not
// be mutated after publication; consumers read it without copying.
// Republishing an identical snapshot is harmless.
func (s *Store) Publish(snap *models.Snapshot) {
	if snap == nil || snap.Region == "" {
		return
	}
	s.mu.Lock()
	s.current[snap.Region] = snap
	s.mu.Unlock()

	metrics.SnapshotsPublished.WithLabelValues(snap.Region).Inc()
}

// Current returns the region's latest snapshot. The bool is false until
// the region's first successful refresh has published.
func (s *Store) Current(region string) (*models.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.current[region]
	return snap, ok
}

// Regions returns the names of all regions with a published snapshot.
func (s *Store) Regions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.current))
	for name := range s.current {
		names = append(names, name)
	}
	return names
}
