// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

// Package analytics computes the aggregate view over one snapshot's
// flight records: phase counts, averages over known telemetry,
// country/weight-class distributions, compass traffic flow and anomaly
// flagging.
//
// Analyze runs between transform and snapshot publication, so it is
// allowed to mutate the records it is handed (anomaly flags); once the
// snapshot is published the records are immutable. Every aggregate is
// order-independent with respect to the input.
package analytics

import (
	"math"
	"sort"

	"github.com/olneyjr/aerodash/internal/config"
	"github.com/olneyjr/aerodash/internal/models"
)

// Anomaly reason codes. Sorted lexically on each record so flagged
// output is deterministic regardless of rule evaluation order.
const (
	ReasonSpeedAboveClassMax = "speed_above_class_max"
	ReasonAltitudeOutlier    = "altitude_sigma_outlier"
	ReasonSpeedOutlier       = "speed_sigma_outlier"
)

// compassSectors in clockwise order from north. Sector i spans 45
// degrees centered on i*45: N covers [337.5, 22.5).
var compassSectors = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// classStats accumulates per-weight-class telemetry for the sigma rule.
type classStats struct {
	altitudes []float64
	speeds    []float64
}

// Analyze aggregates records into an AnalyticsResult and flags anomalous
// records in place. Anomalies appear in the result in input order.
func Analyze(records []models.FlightRecord, cfg config.AnalyticsConfig) models.AnalyticsResult {
	result := models.AnalyticsResult{
		TotalCount:              len(records),
		CountryDistribution:     make(map[string]int),
		WeightClassDistribution: make(map[models.WeightClass]int),
		TrafficFlow:             make(map[string]int),
	}

	var altSum, speedSum float64
	var altN, speedN int
	byClass := make(map[models.WeightClass]*classStats)

	for i := range records {
		rec := &records[i]

		switch rec.FlightPhase {
		case models.PhaseClimbing:
			result.ClimbingCount++
		case models.PhaseDescending:
			result.DescendingCount++
		case models.PhaseGround:
			result.GroundCount++
		default:
			result.LevelCount++
		}

		if rec.Country != "" {
			result.CountryDistribution[rec.Country]++
		}
		result.WeightClassDistribution[rec.WeightClass]++

		if rec.HeadingDeg != nil {
			if sector, ok := compassSector(*rec.HeadingDeg); ok {
				result.TrafficFlow[sector]++
			}
		}

		stats := byClass[rec.WeightClass]
		if stats == nil {
			stats = &classStats{}
			byClass[rec.WeightClass] = stats
		}
		if rec.AltitudeM != nil {
			altSum += *rec.AltitudeM
			altN++
			stats.altitudes = append(stats.altitudes, *rec.AltitudeM)
		}
		if rec.SpeedMPS != nil {
			speedSum += *rec.SpeedMPS
			speedN++
			stats.speeds = append(stats.speeds, *rec.SpeedMPS)
		}
	}

	if altN > 0 {
		result.AvgAltitudeM = models.Float64(altSum / float64(altN))
	}
	if speedN > 0 {
		result.AvgSpeedMPS = models.Float64(speedSum / float64(speedN))
	}

	flagAnomalies(records, byClass, cfg)
	for _, rec := range records {
		if rec.IsAnomalous {
			result.Anomalies = append(result.Anomalies, rec)
		}
	}

	return result
}

// compassSector maps a true-track heading in degrees to one of the 8
// compass sectors. Headings are normalized into [0, 360); NaN and Inf
// report no sector.
func compassSector(heading float64) (string, bool) {
	if math.IsNaN(heading) || math.IsInf(heading, 0) {
		return "", false
	}
	h := math.Mod(heading, 360)
	if h < 0 {
		h += 360
	}
	idx := int(math.Floor((h+22.5)/45)) % 8
	return compassSectors[idx], true
}

// flagAnomalies applies the anomaly rules to every record:
//
//  1. Reported speed above the configured per-class maximum.
//  2. Altitude or speed beyond cfg.SigmaThreshold standard deviations
//     from the per-class mean of this snapshot, applied only when the
//     class has at least cfg.MinClassSamples known values.
//
// Reasons are sorted so the flagged output is deterministic.
func flagAnomalies(records []models.FlightRecord, byClass map[models.WeightClass]*classStats, cfg config.AnalyticsConfig) {
	type bounds struct {
		altOK, speedOK       bool
		altMean, altStddev   float64
		speedMean, speedStdd float64
	}
	classBounds := make(map[models.WeightClass]bounds, len(byClass))
	for wc, stats := range byClass {
		var b bounds
		if len(stats.altitudes) >= cfg.MinClassSamples {
			b.altMean, b.altStddev = meanStddev(stats.altitudes)
			b.altOK = b.altStddev > 0
		}
		if len(stats.speeds) >= cfg.MinClassSamples {
			b.speedMean, b.speedStdd = meanStddev(stats.speeds)
			b.speedOK = b.speedStdd > 0
		}
		classBounds[wc] = b
	}

	for i := range records {
		rec := &records[i]
		var reasons []string

		if rec.SpeedMPS != nil {
			if max, ok := cfg.MaxSpeedMPS[string(rec.WeightClass)]; ok && *rec.SpeedMPS > max {
				reasons = append(reasons, ReasonSpeedAboveClassMax)
			}
		}

		b := classBounds[rec.WeightClass]
		if b.altOK && rec.AltitudeM != nil {
			if math.Abs(*rec.AltitudeM-b.altMean) > cfg.SigmaThreshold*b.altStddev {
				reasons = append(reasons, ReasonAltitudeOutlier)
			}
		}
		if b.speedOK && rec.SpeedMPS != nil {
			if math.Abs(*rec.SpeedMPS-b.speedMean) > cfg.SigmaThreshold*b.speedStdd {
				reasons = append(reasons, ReasonSpeedOutlier)
			}
		}

		if len(reasons) > 0 {
			sort.Strings(reasons)
			rec.IsAnomalous = true
			rec.AnomalyReasons = reasons
		}
	}
}

// meanStddev returns the mean and population standard deviation.
func meanStddev(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}
