// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandlerEnabled(t *testing.T) {
	tests := []struct {
		name         string
		zerologLevel zerolog.Level
		slogLevel    slog.Level
		want         bool
	}{
		{"debug logger enables debug", zerolog.DebugLevel, slog.LevelDebug, true},
		{"info logger disables debug", zerolog.InfoLevel, slog.LevelDebug, false},
		{"info logger enables warn", zerolog.InfoLevel, slog.LevelWarn, true},
		{"error logger disables warn", zerolog.ErrorLevel, slog.LevelWarn, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zerolog.New(nil).Level(tt.zerologLevel)
			handler := NewSlogHandlerWithLogger(logger)

			if got := handler.Enabled(context.Background(), tt.slogLevel); got != tt.want {
				t.Errorf("Enabled(%v) = %v, want %v", tt.slogLevel, got, tt.want)
			}
		})
	}
}

func TestSlogHandlerHandleLevels(t *testing.T) {
	tests := []struct {
		level     slog.Level
		wantLevel string
	}{
		{slog.LevelDebug, "debug"},
		{slog.LevelInfo, "info"},
		{slog.LevelWarn, "warn"},
		{slog.LevelError, "error"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		logger := zerolog.New(&buf).Level(zerolog.TraceLevel)
		handler := NewSlogHandlerWithLogger(logger)

		record := slog.NewRecord(time.Now(), tt.level, "msg", 0)
		if err := handler.Handle(context.Background(), record); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		if !strings.Contains(buf.String(), tt.wantLevel) {
			t.Errorf("output missing level %q: %s", tt.wantLevel, buf.String())
		}
	}
}

func TestSlogHandlerAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.TraceLevel)
	handler := NewSlogHandlerWithLogger(logger)

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "with attrs", 0)
	record.AddAttrs(
		slog.String("region", "europe"),
		slog.Int("records", 42),
		slog.Bool("stale", false),
	)

	if err := handler.Handle(context.Background(), record); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"region", "europe", "records", "42", "stale"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q: %s", want, output)
		}
	}
}

func TestSlogHandlerWithAttrsDoesNotMutate(t *testing.T) {
	handler := NewSlogHandler()

	h1 := handler.WithAttrs([]slog.Attr{slog.String("a", "1")}).(*SlogHandler)
	h2 := h1.WithAttrs([]slog.Attr{slog.String("b", "2"), slog.Int("c", 3)}).(*SlogHandler)

	if len(h1.attrs) != 1 || len(h2.attrs) != 3 {
		t.Errorf("attrs lengths = %d, %d; want 1, 3", len(h1.attrs), len(h2.attrs))
	}
	if len(handler.attrs) != 0 {
		t.Error("WithAttrs must not modify the original handler")
	}
}

func TestSlogHandlerGroupPrefixesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.TraceLevel)
	handler := NewSlogHandlerWithLogger(logger)

	slogger := slog.New(handler.WithGroup("upstream"))
	slogger.Info("grouped", "status", 429)

	if !strings.Contains(buf.String(), "upstream.status") {
		t.Errorf("group name not prefixed onto key: %s", buf.String())
	}
}

func TestSlogHandlerEmptyGroupReturnsSameHandler(t *testing.T) {
	handler := NewSlogHandler()
	if got := handler.WithGroup(""); got != handler {
		t.Error("WithGroup(\"\") should return the handler unchanged")
	}
}

func TestNewSlogLoggerWritesThroughGlobal(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf).Level(zerolog.TraceLevel))

	slogger := NewSlogLogger()
	slogger.Info("supervisor event")

	if !strings.Contains(buf.String(), "supervisor event") {
		t.Errorf("slog logger did not write through global logger: %s", buf.String())
	}
}
