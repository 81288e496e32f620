// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

// Package config defines the Aerodash configuration surface and its
// layered loading: built-in defaults, then an optional YAML file, then
// environment variables. A config that fails validation is fatal at
// startup; nothing else in the system re-validates it.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Aerodash server.
type Config struct {
	Upstream  UpstreamConfig  `koanf:"upstream" validate:"required"`
	Budget    BudgetConfig    `koanf:"budget"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Transform TransformConfig `koanf:"transform"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Regions   []Region        `koanf:"regions" validate:"min=1,dive"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// UpstreamConfig holds the OpenSky API endpoints and credentials.
// Credentials are immutable for the process lifetime and never logged.
type UpstreamConfig struct {
	BaseURL      string `koanf:"base_url" validate:"required,url"`
	TokenURL     string `koanf:"token_url" validate:"required,url"`
	ClientID     string `koanf:"client_id" validate:"required"`
	ClientSecret string `koanf:"client_secret" validate:"required"`

	// FetchTimeout bounds a single upstream query. Must be shorter than
	// the scheduler interval so a hung query cannot stall a tick.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`

	// MinRequestInterval paces upstream calls across all regions.
	MinRequestInterval time.Duration `koanf:"min_request_interval"`

	// TokenSafetyMargin refreshes the bearer token this long before its
	// reported expiry.
	TokenSafetyMargin time.Duration `koanf:"token_safety_margin"`
}

// BudgetConfig bounds API credit consumption.
type BudgetConfig struct {
	// DailyLimit is the credit budget over any rolling 24h window.
	DailyLimit int `koanf:"daily_limit" validate:"gt=0"`

	// Window is the rolling accounting span. Defaults to 24h; exposed
	// for tests, not expected to change in production.
	Window time.Duration `koanf:"window"`
}

// SchedulerConfig controls the per-region refresh loop.
type SchedulerConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// TransformConfig parameterizes the normalization stage.
type TransformConfig struct {
	// ClimbThresholdMPS is the vertical-rate magnitude separating
	// CLIMBING/DESCENDING from LEVEL, in m/s.
	ClimbThresholdMPS float64 `koanf:"climb_threshold_mps" validate:"gt=0"`
}

// AnalyticsConfig parameterizes anomaly detection.
type AnalyticsConfig struct {
	// SigmaThreshold flags altitude/speed beyond this many standard
	// deviations from the per-weight-class snapshot mean.
	SigmaThreshold float64 `koanf:"sigma_threshold" validate:"gt=0"`

	// MinClassSamples is the minimum per-class group size before the
	// sigma rule applies.
	MinClassSamples int `koanf:"min_class_samples" validate:"gt=0"`

	// MaxSpeedMPS maps weight class name to the maximum plausible
	// ground speed in m/s. Classes absent from the map are not checked.
	MaxSpeedMPS map[string]float64 `koanf:"max_speed_mps"`
}

// Region is one configured query area. Credit cost derives from the
// bounding-box area, matching upstream billing tiers.
type Region struct {
	Name string      `koanf:"name" validate:"required"`
	BBox BoundingBox `koanf:"bbox"`
}

// BoundingBox is a lat/lon query rectangle in the upstream parameter
// naming (lamin/lamax/lomin/lomax).
type BoundingBox struct {
	LatMin float64 `koanf:"lamin" validate:"gte=-90,lte=90"`
	LatMax float64 `koanf:"lamax" validate:"gte=-90,lte=90"`
	LonMin float64 `koanf:"lomin" validate:"gte=-180,lte=180"`
	LonMax float64 `koanf:"lomax" validate:"gte=-180,lte=180"`
}

// AreaDeg2 returns the box area in square degrees.
func (b BoundingBox) AreaDeg2() float64 {
	return (b.LatMax - b.LatMin) * (b.LonMax - b.LonMin)
}

// CreditCost returns the upstream credit cost for querying this region,
// tiered by bounding-box area: <25 deg² costs 1, <100 costs 2, <400
// costs 3, anything larger costs 4.
func (r Region) CreditCost() int {
	area := r.BBox.AreaDeg2()
	switch {
	case area < 25:
		return 1
	case area < 100:
		return 2
	case area < 400:
		return 3
	default:
		return 4
	}
}

// ServerConfig holds the HTTP read surface settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gt=0,lte=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors internal/logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. Region
// bounding boxes match the upstream operator's published continental
// areas.
func defaultConfig() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL:            "https://opensky-network.org/api",
			TokenURL:           "https://auth.opensky-network.org/auth/realms/opensky-network/protocol/openid-connect/token",
			FetchTimeout:       30 * time.Second,
			MinRequestInterval: 5 * time.Second,
			TokenSafetyMargin:  5 * time.Minute,
		},
		Budget: BudgetConfig{
			DailyLimit: 4000,
			Window:     24 * time.Hour,
		},
		Scheduler: SchedulerConfig{
			Interval: 60 * time.Second,
		},
		Transform: TransformConfig{
			ClimbThresholdMPS: 1.0,
		},
		Analytics: AnalyticsConfig{
			SigmaThreshold:  3.0,
			MinClassSamples: 8,
			MaxSpeedMPS: map[string]float64{
				"LIGHT":      130,
				"SMALL":      180,
				"LARGE":      310,
				"HEAVY":      320,
				"HIGH_PERF":  620,
				"ROTORCRAFT": 110,
				"UNKNOWN":    350,
			},
		},
		Regions: []Region{
			{Name: "north_america", BBox: BoundingBox{LatMin: 24.0, LatMax: 71.0, LonMin: -170.0, LonMax: -50.0}},
			{Name: "europe", BBox: BoundingBox{LatMin: 36.0, LatMax: 71.0, LonMin: -10.0, LonMax: 40.0}},
			{Name: "asia", BBox: BoundingBox{LatMin: -10.0, LatMax: 55.0, LonMin: 60.0, LonMax: 150.0}},
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8420,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks struct tags plus the cross-field invariants the tags
// cannot express. Any error here is a startup-fatal ConfigurationError.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Regions))
	for _, r := range c.Regions {
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("duplicate region name %q", r.Name)
		}
		seen[r.Name] = struct{}{}

		if r.BBox.LatMin >= r.BBox.LatMax {
			return fmt.Errorf("region %q: lamin must be < lamax", r.Name)
		}
		if r.BBox.LonMin >= r.BBox.LonMax {
			return fmt.Errorf("region %q: lomin must be < lomax", r.Name)
		}
	}

	if c.Upstream.FetchTimeout >= c.Scheduler.Interval {
		return fmt.Errorf("upstream fetch_timeout (%s) must be shorter than scheduler interval (%s)",
			c.Upstream.FetchTimeout, c.Scheduler.Interval)
	}

	// The cheapest possible tick must fit the budget, or the scheduler
	// can never succeed.
	minCost := c.Regions[0].CreditCost()
	for _, r := range c.Regions[1:] {
		if cost := r.CreditCost(); cost < minCost {
			minCost = cost
		}
	}
	if minCost > c.Budget.DailyLimit {
		return fmt.Errorf("budget daily_limit (%d) below cheapest region cost (%d)",
			c.Budget.DailyLimit, minCost)
	}

	return nil
}

// RegionByName returns the configured region with the given name.
func (c *Config) RegionByName(name string) (Region, bool) {
	for _, r := range c.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}
