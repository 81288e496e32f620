// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

// Package api serves the read surface over published snapshots, the
// credit budget and the historical flights proxy. All responses use one
// envelope so clients handle success and error uniformly.
package api

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/olneyjr/aerodash/internal/logging"
)

// APIResponse is the envelope for all JSON endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError carries a machine-readable code plus a human message.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// APIMeta is per-response metadata.
type APIMeta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error codes used by the read surface.
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeNotYetAvailable     = "NOT_YET_AVAILABLE"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeExternalServiceFail = "EXTERNAL_SERVICE_FAILED"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error().Err(err).Msg("encoding JSON response")
	}
}

// writeSuccess writes a 200 envelope with data.
func writeSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			RequestID: chimiddleware.GetReqID(r.Context()),
			Timestamp: time.Now(),
		},
	})
}

// writeError writes an error envelope with the given status.
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	requestID := chimiddleware.GetReqID(r.Context())
	writeJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message, RequestID: requestID},
		Meta:    &APIMeta{RequestID: requestID, Timestamp: time.Now()},
	})
}
