// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/trailatlas/internal/api"
	"github.com/tomtom215/trailatlas/internal/app"
	"github.com/tomtom215/trailatlas/internal/catalog"
	"github.com/tomtom215/trailatlas/internal/config"
	"github.com/tomtom215/trailatlas/internal/events"
	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/supervisor"
	"github.com/tomtom215/trailatlas/internal/supervisor/services"
	syncer "github.com/tomtom215/trailatlas/internal/sync"
	ws "github.com/tomtom215/trailatlas/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("reference_path", cfg.Database.ReferencePath).
		Str("credentials_backend", cfg.Credentials.Backend).
		Bool("pipeline", cfg.Sync.Pipeline).
		Msg("Starting Trailatlas with supervisor tree")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Trailatlas stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // Sequential component setup
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	// The reference catalog must be complete before anything can be
	// attributed; a broken dataset is fatal.
	start := time.Now()
	if err := a.LoadCatalog(ctx, false); err != nil {
		if errors.Is(err, catalog.ErrReferenceData) {
			logging.Error().Err(err).Msg("Reference data is missing or malformed")
		}
		return fmt.Errorf("load region catalog: %w", err)
	}
	logging.Info().Dur("duration", time.Since(start)).Msg("Region catalog ready")

	if !a.Strava.OAuthConfigured() {
		logging.Warn().Msg("Strava client credentials not configured; OAuth endpoints are disabled")
	} else if !a.Strava.Connected(ctx) {
		logging.Info().Msg("No Strava account connected yet; visit /oauth/authorize")
	}

	bus, err := events.NewBus(events.DefaultConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing event bus")
		}
	}()
	if a.Maps.Enabled() {
		bus.Handle("map-export", events.TopicSyncCompleted, a.Maps.HandleSyncCompleted)
	}

	orch := a.Orchestrator(ctx, bus)
	scheduler := syncer.NewScheduler(orch, cfg.Sync.Interval, cfg.Sync.SyncOnStartup)

	hub := ws.NewHub()
	bridge := ws.NewEventBridge(hub, bus)

	handler := api.NewHandler(api.Deps{
		Sync:           orch,
		Ledger:         a.Ledger,
		Catalog:        a.Catalog,
		Maps:           a.Maps,
		OAuth:          a.Strava,
		Hub:            hub,
		AllowedOrigins: cfg.Server.CORSOrigins,
		PublicURL:      cfg.Server.PublicURL,
	})
	bus.Handle("map-cache-sync", events.TopicSyncCompleted, handler.InvalidateMaps)
	bus.Handle("map-cache-reset", events.TopicDataReset, handler.InvalidateMaps)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFromServer(cfg.Server)))

	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  shutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddEventService(bus)
	tree.AddMessagingService(hub)
	tree.AddMessagingService(bridge)
	tree.AddSyncService(services.NewSchedulerService(scheduler))
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	// Background sync runs observe ctx; let them unwind before the stores close.
	orch.Wait()
	return nil
}
