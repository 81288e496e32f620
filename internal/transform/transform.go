// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

// Package transform normalizes raw upstream state vectors into the
// canonical flight record set: type coercion, null handling, weight
// classification and derived flight phase.
//
// The stage is pure and deterministic: identical raw input always
// yields identical output, which is what makes golden-file testing of
// the pipeline possible. Upstream null stays "unknown" (nil), never
// zero; zero is a legitimate altitude, speed and vertical rate.
package transform

import (
	"strings"

	"github.com/olneyjr/aerodash/internal/models"
)

// Options parameterizes the transform.
type Options struct {
	// ClimbThresholdMPS separates CLIMBING/DESCENDING from LEVEL.
	ClimbThresholdMPS float64
}

// DefaultOptions returns the standard transform parameters.
func DefaultOptions() Options {
	return Options{ClimbThresholdMPS: 1.0}
}

// Transform converts raw state vectors into canonical flight records,
// preserving input order. Records missing both identity (icao24) and
// position are skipped; everything else is kept, including records
// with unresolved weight class or unknown telemetry.
func Transform(raw []models.RawStateVector, opts Options) []models.FlightRecord {
	if opts.ClimbThresholdMPS <= 0 {
		opts.ClimbThresholdMPS = 1.0
	}

	records := make([]models.FlightRecord, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, sv := range raw {
		hasPosition := sv.Latitude != nil && sv.Longitude != nil
		if sv.ICAO24 == "" && !hasPosition {
			continue
		}

		// icao24 is the unique key within a snapshot; a duplicate is
		// upstream noise and the first occurrence wins.
		if sv.ICAO24 != "" {
			if _, dup := seen[sv.ICAO24]; dup {
				continue
			}
			seen[sv.ICAO24] = struct{}{}
		}

		rec := models.FlightRecord{
			ICAO24:          sv.ICAO24,
			Callsign:        strings.TrimSpace(sv.Callsign),
			Country:         sv.OriginCountry,
			AltitudeM:       copyFloat(sv.BaroAltitude),
			SpeedMPS:        copyFloat(sv.Velocity),
			HeadingDeg:      copyFloat(sv.TrueTrack),
			VerticalRateMPS: copyFloat(sv.VerticalRate),
			WeightClass:     classify(sv.Category),
			FlightPhase:     derivePhase(sv, opts.ClimbThresholdMPS),
		}

		if hasPosition {
			rec.Position = &models.Position{Lat: *sv.Latitude, Lon: *sv.Longitude}
		}

		records = append(records, rec)
	}

	return records
}

// derivePhase computes the flight phase: GROUND wins outright, then the
// vertical rate decides against the threshold. Unknown vertical rate
// for an airborne aircraft reads as LEVEL.
func derivePhase(sv models.RawStateVector, threshold float64) models.FlightPhase {
	if sv.OnGround {
		return models.PhaseGround
	}
	if sv.VerticalRate == nil {
		return models.PhaseLevel
	}
	switch {
	case *sv.VerticalRate > threshold:
		return models.PhaseClimbing
	case *sv.VerticalRate < -threshold:
		return models.PhaseDescending
	default:
		return models.PhaseLevel
	}
}

// copyFloat clones a nullable value so records never alias raw payload
// memory; snapshots must stay immutable after publication.
func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
