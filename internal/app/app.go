// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

// Package app assembles the stores, the Strava client and the sync
// orchestrator shared by the server and the admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/trailatlas/internal/attribution"
	"github.com/tomtom215/trailatlas/internal/catalog"
	"github.com/tomtom215/trailatlas/internal/config"
	"github.com/tomtom215/trailatlas/internal/credentials"
	"github.com/tomtom215/trailatlas/internal/ledger"
	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/mapexport"
	"github.com/tomtom215/trailatlas/internal/refdata"
	"github.com/tomtom215/trailatlas/internal/strava"
	syncer "github.com/tomtom215/trailatlas/internal/sync"
)

// App holds the long lived components. Close releases them in reverse
// order of creation.
type App struct {
	Config      *config.Config
	Catalog     *catalog.Catalog
	Ledger      *ledger.Store
	Credentials credentials.Store
	Strava      *strava.Client
	Maps        *mapexport.Exporter
	Status      *syncer.Status

	source catalog.Source
}

// Option customizes Open.
type Option func(*options)

type options struct {
	source  catalog.Source
	catalog *catalog.Catalog
	ledger  *ledger.Store
	strava  []strava.Option
}

// WithReferenceSource replaces the downloading reference loader.
func WithReferenceSource(src catalog.Source) Option {
	return func(o *options) { o.source = src }
}

// WithStores uses already open stores instead of opening the DuckDB files
// named in the configuration. The caller keeps ownership of both.
func WithStores(c *catalog.Catalog, l *ledger.Store) Option {
	return func(o *options) {
		o.catalog = c
		o.ledger = l
	}
}

// WithStravaOptions passes options through to strava.New.
func WithStravaOptions(opts ...strava.Option) Option {
	return func(o *options) { o.strava = append(o.strava, opts...) }
}

// Open opens both stores, the credential store and the Strava client. The
// catalog is not loaded; call LoadCatalog.
func Open(cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.source == nil {
		o.source = refdata.NewLoader(cfg.Reference)
	}

	a := &App{Config: cfg, Status: syncer.NewStatus(), source: o.source}

	var owned []func() error
	fail := func(err error) (*App, error) {
		for i := len(owned) - 1; i >= 0; i-- {
			_ = owned[i]()
		}
		return nil, err
	}

	a.Catalog = o.catalog
	if a.Catalog == nil {
		c, err := catalog.Open(cfg)
		if err != nil {
			return fail(err)
		}
		a.Catalog = c
		owned = append(owned, c.Close)
	}

	a.Ledger = o.ledger
	if a.Ledger == nil {
		l, err := ledger.Open(cfg, a.Catalog)
		if err != nil {
			return fail(err)
		}
		a.Ledger = l
		owned = append(owned, l.Close)
	}

	creds, err := credentials.Open(cfg.Credentials, a.Ledger)
	if err != nil {
		return fail(fmt.Errorf("open credential store: %w", err))
	}
	a.Credentials = creds

	a.Strava = strava.New(cfg.Strava, creds, o.strava...)

	exportDir := ""
	if cfg.Export.Enabled {
		exportDir = cfg.Export.Dir
	}
	a.Maps = mapexport.New(exportDir, a.Ledger, a.Catalog)

	return a, nil
}

// LoadCatalog makes the catalog ready. force re-parses the reference data
// even when the store is already complete.
func (a *App) LoadCatalog(ctx context.Context, force bool) error {
	if force {
		return a.Catalog.ForceReload(ctx, a.source)
	}
	return a.Catalog.Load(ctx, a.source)
}

// ClearCatalog drops the reference regions and every derived visit that
// pointed at them.
func (a *App) ClearCatalog(ctx context.Context) error {
	if err := a.Catalog.Clear(ctx); err != nil {
		return err
	}
	return a.Ledger.Reset(ctx, ledger.ResetScopeDerived)
}

// Orchestrator builds a sync orchestrator bound to ctx. publisher may be nil.
func (a *App) Orchestrator(ctx context.Context, publisher syncer.Publisher) *syncer.Orchestrator {
	engine := attribution.NewEngine(a.Catalog)
	return syncer.NewOrchestrator(ctx, a.Config.Sync, a.Strava, a.Ledger, engine, publisher, a.Status)
}

// Close releases the credential store and the stores Open created.
func (a *App) Close() error {
	var errs []error
	if a.Credentials != nil {
		if err := a.Credentials.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close credential store: %w", err))
		}
	}
	if a.Ledger != nil {
		if err := a.Ledger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Catalog != nil {
		if err := a.Catalog.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		logging.Error().Err(err).Msg("Error closing application stores")
	}
	return err
}
