// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

package snapshot

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/olneyjr/aerodash/internal/models"
)

// csvHeader is the stable export column order. Consumers key on it;
// never reorder.
var csvHeader = []string{
	"icao24", "callsign", "country", "lat", "lon",
	"altitude_m", "speed_mps", "heading_deg", "vertical_rate_mps",
	"weight_class", "flight_phase", "is_anomalous",
}

// WriteCSV writes records to w with the stable header row. Unknown
// telemetry renders as an empty cell, distinguishing it from zero.
func WriteCSV(w io.Writer, records []models.FlightRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	row := make([]string, len(csvHeader))
	for _, rec := range records {
		row[0] = rec.ICAO24
		row[1] = rec.Callsign
		row[2] = rec.Country
		if rec.Position != nil {
			row[3] = formatFloat(rec.Position.Lat)
			row[4] = formatFloat(rec.Position.Lon)
		} else {
			row[3], row[4] = "", ""
		}
		row[5] = formatNullable(rec.AltitudeM)
		row[6] = formatNullable(rec.SpeedMPS)
		row[7] = formatNullable(rec.HeadingDeg)
		row[8] = formatNullable(rec.VerticalRateMPS)
		row[9] = string(rec.WeightClass)
		row[10] = string(rec.FlightPhase)
		row[11] = strconv.FormatBool(rec.IsAnomalous)

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNullable(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
