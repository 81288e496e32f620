// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

package opensky

import (
	"errors"
	"fmt"
	"time"
)

// AuthError reports a failed token acquisition. Terminal means the
// credentials were rejected and retrying is pointless; otherwise the
// exchange endpoint was unreachable and the caller may retry with
// backoff on a later tick.
type AuthError struct {
	Terminal bool
	Status   int
	Err      error
}

func (e *AuthError) Error() string {
	if e.Terminal {
		return fmt.Sprintf("auth: credentials rejected (status %d)", e.Status)
	}
	return fmt.Sprintf("auth: token exchange failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError reports an upstream query failure. The next tick may
// retry; no budget is refunded for the failed attempt.
type TransportError struct {
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("upstream: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTerminalAuth reports whether err is a credential rejection that no
// amount of retrying will fix.
func IsTerminalAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Terminal
}
