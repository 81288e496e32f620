// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

// Package rawcache keeps the latest successful raw upstream payload per
// region. When a refresh is denied or fails, the transform stage can
// re-run against last-good data even before the first snapshot exists.
package rawcache

import (
	"sync"
	"time"

	"github.com/olneyjr/aerodash/internal/models"
)

// Cache stores the most recent raw payload for each region. Safe for
// concurrent use; Put fully replaces the region's entry.
type Cache struct {
	mu       sync.RWMutex
	payloads map[string]*models.RawPayload
	now      func() time.Time
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		payloads: make(map[string]*models.RawPayload),
		now:      time.Now,
	}
}

// Put stores the payload as the latest for its region.
func (c *Cache) Put(payload *models.RawPayload) {
	if payload == nil || payload.Region == "" {
		return
	}
	c.mu.Lock()
	c.payloads[payload.Region] = payload
	c.mu.Unlock()
}

// Get returns the latest payload for the region, or false if none has
// been stored yet.
func (c *Cache) Get(region string) (*models.RawPayload, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.payloads[region]
	return p, ok
}

// IsStale reports whether the region has no payload, or its payload was
// fetched longer than ttl ago.
func (c *Cache) IsStale(region string, ttl time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.payloads[region]
	if !ok {
		return true
	}
	return c.now().Sub(p.FetchedAt) > ttl
}

// Age returns how long ago the region's payload was fetched, or false
// if the region has no payload.
func (c *Cache) Age(region string) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.payloads[region]
	if !ok {
		return 0, false
	}
	return c.now().Sub(p.FetchedAt), true
}

// Regions returns the names of all regions with a cached payload.
func (c *Cache) Regions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.payloads))
	for name := range c.payloads {
		names = append(names, name)
	}
	return names
}
