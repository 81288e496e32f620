// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/olneyjr/aerodash/internal/config"
	"github.com/olneyjr/aerodash/internal/logging"
)

// errBudgetDenied marks a tick skipped by the credit budget. A denial
// is an expected operating condition, not an upstream failure.
var errBudgetDenied = errors.New("refresh denied by credit budget")

// Manager owns one poller per configured region, in config order.
type Manager struct {
	pollers []*Poller

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager builds pollers for every configured region. Region order
// follows the configuration, which keeps authorization order within a
// process deterministic.
func NewManager(cfg *config.Config, deps PollerDeps) *Manager {
	pollers := make([]*Poller, 0, len(cfg.Regions))
	for _, region := range cfg.Regions {
		pollers = append(pollers, NewPoller(region, cfg, deps))
	}
	return &Manager{pollers: pollers}
}

// Start launches all region pollers. Returns an error if already
// started.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return errors.New("scheduler already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	var wg sync.WaitGroup
	for _, p := range m.pollers {
		wg.Add(1)
		go func(p *Poller) {
			defer wg.Done()
			p.Run(runCtx)
		}(p)
	}

	go func(done chan struct{}) {
		wg.Wait()
		close(done)
	}(m.done)

	logging.Info().Int("regions", len(m.pollers)).Msg("fetch scheduler started")
	return nil
}

// Stop cancels all pollers and waits for them to exit.
func (m *Manager) Stop() error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	logging.Info().Msg("fetch scheduler stopped")
	return nil
}

// Statuses returns the current status of every region poller, in
// config order.
func (m *Manager) Statuses() []Status {
	out := make([]Status, 0, len(m.pollers))
	for _, p := range m.pollers {
		out = append(out, p.Status())
	}
	return out
}
