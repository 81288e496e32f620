// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

// Package models defines the canonical data types shared across the
// ingestion pipeline: raw upstream state vectors, normalized flight
// records, per-region snapshots and their analytics aggregates.
//
// Nullable upstream telemetry is represented with pointer fields so that
// "unknown" is distinct from zero. Zero is a valid altitude, speed and
// vertical rate; nil means the upstream feed did not report the value.
package models

import "time"

// RawStateVector is one aircraft record as reported by the upstream
// /states/all endpoint. Any telemetry field may be absent.
type RawStateVector struct {
	ICAO24        string   `json:"icao24"`
	Callsign      string   `json:"callsign"`
	OriginCountry string   `json:"origin_country"`
	TimePosition  *int64   `json:"time_position"`
	LastContact   int64    `json:"last_contact"`
	Longitude     *float64 `json:"longitude"`
	Latitude      *float64 `json:"latitude"`
	BaroAltitude  *float64 `json:"baro_altitude"`
	OnGround      bool     `json:"on_ground"`
	Velocity      *float64 `json:"velocity"`
	TrueTrack     *float64 `json:"true_track"`
	VerticalRate  *float64 `json:"vertical_rate"`
	GeoAltitude   *float64 `json:"geo_altitude"`
	Squawk        *string  `json:"squawk"`
	Category      *int     `json:"category"`
}

// RawPayload is the latest successful upstream response for a region.
// It is the unit stored by the raw response cache.
type RawPayload struct {
	// Time is the upstream server timestamp (unix seconds) of the batch.
	Time int64 `json:"time"`
	// States holds the decoded state vectors.
	States []RawStateVector `json:"states"`
	// FetchedAt is when this payload was received locally.
	FetchedAt time.Time `json:"fetched_at"`
	// Region is the region name the payload was fetched for.
	Region string `json:"region"`
}

// WeightClass buckets aircraft by the ADS-B emitter category.
type WeightClass string

const (
	WeightLight      WeightClass = "LIGHT"
	WeightSmall      WeightClass = "SMALL"
	WeightLarge      WeightClass = "LARGE"
	WeightHeavy      WeightClass = "HEAVY"
	WeightHighPerf   WeightClass = "HIGH_PERF"
	WeightRotorcraft WeightClass = "ROTORCRAFT"
	WeightUnknown    WeightClass = "UNKNOWN"
)

// FlightPhase is the derived climb/descent state of a record.
type FlightPhase string

const (
	PhaseClimbing   FlightPhase = "CLIMBING"
	PhaseDescending FlightPhase = "DESCENDING"
	PhaseLevel      FlightPhase = "LEVEL"
	PhaseGround     FlightPhase = "GROUND"
)

// Position is a WGS84 coordinate pair.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FlightRecord is the canonical normalized record derived from one
// RawStateVector. ICAO24 uniquely identifies a record within a snapshot.
//
// A nil Position means the record is excluded from map-bound analytics
// but still counted in totals. Nil telemetry pointers mean "unknown".
type FlightRecord struct {
	ICAO24          string      `json:"icao24"`
	Callsign        string      `json:"callsign"`
	Country         string      `json:"country"`
	Position        *Position   `json:"position,omitempty"`
	AltitudeM       *float64    `json:"altitude_m,omitempty"`
	SpeedMPS        *float64    `json:"speed_mps,omitempty"`
	HeadingDeg      *float64    `json:"heading_deg,omitempty"`
	VerticalRateMPS *float64    `json:"vertical_rate_mps,omitempty"`
	WeightClass     WeightClass `json:"weight_class"`
	FlightPhase     FlightPhase `json:"flight_phase"`
	IsAnomalous     bool        `json:"is_anomalous"`
	AnomalyReasons  []string    `json:"anomaly_reasons,omitempty"`
}

// AnalyticsResult holds the aggregate view over one snapshot's records.
// All aggregates are order-independent with respect to the input records.
type AnalyticsResult struct {
	TotalCount      int `json:"total_count"`
	ClimbingCount   int `json:"climbing_count"`
	DescendingCount int `json:"descending_count"`
	LevelCount      int `json:"level_count"`
	GroundCount     int `json:"ground_count"`

	// Averages are computed over records with known values only.
	// Nil when no record reported the quantity.
	AvgAltitudeM *float64 `json:"avg_altitude_m,omitempty"`
	AvgSpeedMPS  *float64 `json:"avg_speed_mps,omitempty"`

	CountryDistribution     map[string]int      `json:"country_distribution"`
	WeightClassDistribution map[WeightClass]int `json:"weight_class_distribution"`

	// TrafficFlow maps compass sector (N, NE, ... NW) to record count.
	// Records with unknown heading contribute to no sector.
	TrafficFlow map[string]int `json:"traffic_flow"`

	// Anomalies lists flagged records in input order.
	Anomalies []FlightRecord `json:"anomalies"`
}

// Snapshot is the complete normalized dataset plus analytics for one
// region at one point in time. It is immutable once published; a new
// Snapshot fully replaces the previous one for its region.
type Snapshot struct {
	CapturedAt time.Time       `json:"captured_at"`
	Region     string          `json:"region"`
	Records    []FlightRecord  `json:"records"`
	Aggregates AnalyticsResult `json:"aggregates"`
}

// FlightSummary is one entry from the historical flights endpoints
// (arrivals, departures, interval queries). Out of the core refresh
// path; issued on demand through the same authenticated client.
type FlightSummary struct {
	ICAO24              string `json:"icao24"`
	FirstSeen           int64  `json:"firstSeen"`
	LastSeen            int64  `json:"lastSeen"`
	EstDepartureAirport string `json:"estDepartureAirport"`
	EstArrivalAirport   string `json:"estArrivalAirport"`
	Callsign            string `json:"callsign"`
}

// Float64 returns a pointer to v. Convenience for building records and
// fixtures with nullable telemetry.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
