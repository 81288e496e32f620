// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

package opensky

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/olneyjr/aerodash/internal/config"
	"github.com/olneyjr/aerodash/internal/logging"
	"github.com/olneyjr/aerodash/internal/metrics"
	"github.com/olneyjr/aerodash/internal/models"
)

// StatesFetcher is the query surface the scheduler consumes.
type StatesFetcher interface {
	StatesByBBox(ctx context.Context, region config.Region) (*models.RawPayload, error)
}

// BreakerClient wraps the upstream client with a circuit breaker so a
// failing or slow upstream sheds load quickly instead of burning every
// tick's budget on doomed requests.
//
// The breaker uses real time for its interval and timeout; tests should
// exercise the wrapped client directly.
type BreakerClient struct {
	client StatesFetcher
	cb     *gobreaker.CircuitBreaker[*models.RawPayload]
	name   string
}

// NewBreakerClient wraps client with breaker settings tuned for a
// 60-second tick cadence: open after 60% failures over at least 5
// requests, probe again after two minutes.
func NewBreakerClient(client StatesFetcher) *BreakerClient {
	cbName := "opensky-states"
	metrics.BreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[*models.RawPayload](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("from", breakerStateString(from)).
				Str("to", breakerStateString(to)).
				Msg("upstream circuit breaker state transition")
			metrics.BreakerState.WithLabelValues(name).Set(breakerStateFloat(to))
		},

		// A terminal credential rejection is a configuration problem,
		// not upstream health; don't let it trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || IsTerminalAuth(err)
		},
	})

	return &BreakerClient{client: client, cb: cb, name: cbName}
}

// StatesByBBox executes the query with breaker protection.
func (b *BreakerClient) StatesByBBox(ctx context.Context, region config.Region) (*models.RawPayload, error) {
	payload, err := b.cb.Execute(func() (*models.RawPayload, error) {
		return b.client.StatesByBBox(ctx, region)
	})

	switch {
	case err == nil:
		metrics.BreakerRequests.WithLabelValues(b.name, "success").Inc()
	case err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests:
		metrics.BreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return nil, &TransportError{Err: err}
	default:
		metrics.BreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}

	return payload, err
}

func breakerStateFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
