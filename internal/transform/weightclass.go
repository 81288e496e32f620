// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

package transform

import "github.com/olneyjr/aerodash/internal/models"

// weightClassByCategory maps the ADS-B emitter category reported in the
// extended state-vector column onto the analytics weight classes.
// Categories without a mass-based bucket (gliders, balloons, UAVs,
// surface vehicles, obstacles) classify as UNKNOWN rather than being
// dropped.
var weightClassByCategory = map[int]models.WeightClass{
	2: models.WeightLight,      // < 15 500 lbs
	3: models.WeightSmall,      // 15 500 - 75 000 lbs
	4: models.WeightLarge,      // 75 000 - 300 000 lbs
	5: models.WeightLarge,      // high vortex large (B-757)
	6: models.WeightHeavy,      // > 300 000 lbs
	7: models.WeightHighPerf,   // > 5g and > 400 kts
	8: models.WeightRotorcraft, // rotorcraft
}

// classify resolves the weight class for a raw category code. A nil
// code (17-column feed) or an unmapped code yields UNKNOWN.
func classify(category *int) models.WeightClass {
	if category == nil {
		return models.WeightUnknown
	}
	if wc, ok := weightClassByCategory[*category]; ok {
		return wc
	}
	return models.WeightUnknown
}
