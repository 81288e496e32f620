// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

// Package opensky implements the authenticated upstream client: OAuth2
// client-credentials token lifecycle, bounding-box state-vector queries
// and the historical flights endpoints.
//
// The /states/all endpoint returns state vectors as positional JSON
// arrays (17 columns, or 18 with extended=1 which appends the aircraft
// category). Any cell may be null; decoding tolerates nulls and short
// rows rather than rejecting the payload.
package opensky

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/olneyjr/aerodash/internal/config"
	"github.com/olneyjr/aerodash/internal/models"
)

// State vector column indices for /states/all responses.
const (
	colICAO24 = iota
	colCallsign
	colOriginCountry
	colTimePosition
	colLastContact
	colLongitude
	colLatitude
	colBaroAltitude
	colOnGround
	colVelocity
	colTrueTrack
	colVerticalRate
	colSensors
	colGeoAltitude
	colSquawk
	colSPI
	colPositionSource
	colCategory

	minColumns = 17
)

// Client queries the upstream API with bearer authentication. Requests
// across all regions share one pacing limiter so the process respects
// the upstream's minimum call spacing independently of the credit
// budget.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenManager
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the API base URL. Useful for tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// NewClient creates an upstream client from the configuration.
func NewClient(cfg config.UpstreamConfig, tokens *TokenManager, opts ...ClientOption) *Client {
	interval := cfg.MinRequestInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxConnsPerHost:     5,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// statesResponse mirrors the JSON shape of /states/all.
type statesResponse struct {
	Time   int64           `json:"time"`
	States [][]interface{} `json:"states"`
}

// StatesByBBox fetches current state vectors for the region's bounding
// box with extended=1 so the aircraft category column is included.
func (c *Client) StatesByBBox(ctx context.Context, region config.Region) (*models.RawPayload, error) {
	params := url.Values{
		"extended": {"1"},
		"lamin":    {formatCoord(region.BBox.LatMin)},
		"lamax":    {formatCoord(region.BBox.LatMax)},
		"lomin":    {formatCoord(region.BBox.LonMin)},
		"lomax":    {formatCoord(region.BBox.LonMax)},
	}

	body, err := c.get(ctx, "/states/all", params)
	if err != nil {
		return nil, err
	}

	var raw statesResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("parsing states response: %w", err)}
	}

	return &models.RawPayload{
		Time:      raw.Time,
		States:    decodeStates(raw.States),
		FetchedAt: time.Now(),
		Region:    region.Name,
	}, nil
}

// Arrivals fetches arrivals for an airport within [begin, end] unix
// seconds. Historical surface; not part of the refresh loop.
func (c *Client) Arrivals(ctx context.Context, airport string, begin, end int64) ([]models.FlightSummary, error) {
	return c.flights(ctx, "/flights/arrival", url.Values{
		"airport": {airport},
		"begin":   {strconv.FormatInt(begin, 10)},
		"end":     {strconv.FormatInt(end, 10)},
	})
}

// Departures fetches departures for an airport within [begin, end].
func (c *Client) Departures(ctx context.Context, airport string, begin, end int64) ([]models.FlightSummary, error) {
	return c.flights(ctx, "/flights/departure", url.Values{
		"airport": {airport},
		"begin":   {strconv.FormatInt(begin, 10)},
		"end":     {strconv.FormatInt(end, 10)},
	})
}

// FlightsInterval fetches all flights within [begin, end].
func (c *Client) FlightsInterval(ctx context.Context, begin, end int64) ([]models.FlightSummary, error) {
	return c.flights(ctx, "/flights/all", url.Values{
		"begin": {strconv.FormatInt(begin, 10)},
		"end":   {strconv.FormatInt(end, 10)},
	})
}

func (c *Client) flights(ctx context.Context, endpoint string, params url.Values) ([]models.FlightSummary, error) {
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var out []models.FlightSummary
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("parsing flights response: %w", err)}
	}
	return out, nil
}

// get issues one authenticated GET, honoring the pacing limiter.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Err: err}
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+tok.Value)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, &TransportError{
			Status:     resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header),
			Err:        fmt.Errorf("rate limited by upstream"),
		}
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("reading body: %w", err)}
	}
	return body, nil
}

// parseRetryAfter reads the upstream's rate-limit header, defaulting to
// one minute when absent or malformed.
func parseRetryAfter(h http.Header) time.Duration {
	if v := h.Get("X-Rate-Limit-Retry-After-Seconds"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Minute
}

// decodeStates converts positional rows into RawStateVector records.
// Rows shorter than the 17-column baseline are dropped; the category
// column is only present when the server honors extended=1.
func decodeStates(rows [][]interface{}) []models.RawStateVector {
	out := make([]models.RawStateVector, 0, len(rows))
	for _, row := range rows {
		if len(row) < minColumns {
			continue
		}

		sv := models.RawStateVector{
			ICAO24:        stringCell(row[colICAO24]),
			Callsign:      stringCell(row[colCallsign]),
			OriginCountry: stringCell(row[colOriginCountry]),
			TimePosition:  int64Cell(row[colTimePosition]),
			Longitude:     floatCell(row[colLongitude]),
			Latitude:      floatCell(row[colLatitude]),
			BaroAltitude:  floatCell(row[colBaroAltitude]),
			OnGround:      boolCell(row[colOnGround]),
			Velocity:      floatCell(row[colVelocity]),
			TrueTrack:     floatCell(row[colTrueTrack]),
			VerticalRate:  floatCell(row[colVerticalRate]),
			GeoAltitude:   floatCell(row[colGeoAltitude]),
			Squawk:        stringPtrCell(row[colSquawk]),
		}
		if lc := int64Cell(row[colLastContact]); lc != nil {
			sv.LastContact = *lc
		}
		if len(row) > colCategory {
			sv.Category = intCell(row[colCategory])
		}

		out = append(out, sv)
	}
	return out
}

func stringCell(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func stringPtrCell(v interface{}) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func floatCell(v interface{}) *float64 {
	if f, ok := v.(float64); ok {
		return &f
	}
	return nil
}

func int64Cell(v interface{}) *int64 {
	if f, ok := v.(float64); ok {
		i := int64(f)
		return &i
	}
	return nil
}

func intCell(v interface{}) *int {
	if f, ok := v.(float64); ok {
		i := int(f)
		return &i
	}
	return nil
}

func boolCell(v interface{}) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
