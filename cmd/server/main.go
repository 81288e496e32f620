// Aerodash - Live Flight State Ingestion and Analytics
// Copyright 2026 James Olney (olneyjr)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/olneyjr/aerodash

// Package main is the entry point for the Aerodash server.
//
// Aerodash ingests periodic snapshots of live aircraft state vectors
// from the OpenSky Network API, normalizes and classifies them, derives
// rolling analytics, and serves immutable per-region snapshots over a
// small REST surface.
//
// # Startup Order
//
//  1. Configuration: layered loading via Koanf v2 (defaults, YAML
//     file, environment variables); validation failures are fatal.
//  2. Logging: zerolog, JSON or console format.
//  3. Upstream client: OAuth2 client-credentials token manager, paced
//     HTTP client, circuit breaker.
//  4. Budget tracker: rolling 24h credit ledger shared by all regions.
//  5. Fetch scheduler: one poller per configured region.
//  6. HTTP server: snapshot, budget and flights endpoints plus
//     /healthz and /metrics.
//
// The scheduler and HTTP server run under a suture supervision tree;
// SIGINT/SIGTERM trigger graceful shutdown.
//
// # Configuration
//
// Credentials come from OPENSKY_CLIENT_ID / OPENSKY_CLIENT_SECRET (or
// the upstream section of config.yaml) and are never logged. See
// internal/config for the full surface.
//
//	export OPENSKY_CLIENT_ID=your-client-id
//	export OPENSKY_CLIENT_SECRET=your-client-secret
//	./aerodash
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/olneyjr/aerodash/internal/api"
	"github.com/olneyjr/aerodash/internal/budget"
	"github.com/olneyjr/aerodash/internal/config"
	"github.com/olneyjr/aerodash/internal/logging"
	"github.com/olneyjr/aerodash/internal/opensky"
	"github.com/olneyjr/aerodash/internal/rawcache"
	"github.com/olneyjr/aerodash/internal/scheduler"
	"github.com/olneyjr/aerodash/internal/snapshot"
	"github.com/olneyjr/aerodash/internal/supervisor"
	"github.com/olneyjr/aerodash/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger may not be configured yet; stderr plus the default
		// logger covers both cases.
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		logging.Fatal().Err(err).Msg("loading configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Int("regions", len(cfg.Regions)).
		Int("daily_credit_limit", cfg.Budget.DailyLimit).
		Dur("refresh_interval", cfg.Scheduler.Interval).
		Msg("starting aerodash")

	// Upstream client stack: token manager, paced client, breaker.
	tokens := opensky.NewTokenManager(
		opensky.Credentials{
			ClientID:     cfg.Upstream.ClientID,
			ClientSecret: cfg.Upstream.ClientSecret,
		},
		cfg.Upstream.TokenURL,
		cfg.Upstream.TokenSafetyMargin,
	)
	client := opensky.NewClient(cfg.Upstream, tokens)
	fetcher := opensky.NewBreakerClient(client)

	tracker := budget.NewTracker(cfg.Budget.DailyLimit, cfg.Budget.Window)
	rawCache := rawcache.New()
	snapshots := snapshot.NewStore()

	manager := scheduler.NewManager(cfg, scheduler.PollerDeps{
		Tracker:   tracker,
		Fetcher:   fetcher,
		RawCache:  rawCache,
		Snapshots: snapshots,
	})

	handler := api.NewHandler(cfg, snapshots, tracker, manager, client)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(cfg.Server, handler),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddDataService(services.NewSchedulerService(manager))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
		}
	}

	logging.Info().Msg("aerodash stopped")
}
