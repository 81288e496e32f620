// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

package services

import (
	"context"
	"fmt"
)

// StartStopManager matches components with a Start/Stop lifecycle, like
// the fetch scheduler's region manager.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService runs the fetch scheduler under supervision. Start
// launches the region pollers; on context cancellation Stop waits for
// them to drain before the service returns.
type SchedulerService struct {
	manager StartStopManager
}

// NewSchedulerService wraps manager for supervision.
func NewSchedulerService(manager StartStopManager) *SchedulerService {
	return &SchedulerService{manager: manager}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("starting fetch scheduler: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("stopping fetch scheduler: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (s *SchedulerService) String() string {
	return "fetch-scheduler"
}
