// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/paulmach/orb/geojson"

	"github.com/tomtom215/trailatlas/internal/cache"
	"github.com/tomtom215/trailatlas/internal/ledger"
	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/models"
	"github.com/tomtom215/trailatlas/internal/strava"
	syncer "github.com/tomtom215/trailatlas/internal/sync"
	"github.com/tomtom215/trailatlas/internal/websocket"
)

// Syncer starts background runs. *sync.Orchestrator satisfies it.
type Syncer interface {
	TriggerSync(fetchAll bool) error
	TriggerReset(scope ledger.ResetScope) error
	Status() *syncer.Status
}

// Ledger answers visitation queries. *ledger.Store satisfies it.
type Ledger interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (models.ActivityStats, error)
	VisitedRegions(ctx context.Context, class models.Classification, country string) ([]models.VisitedRegion, error)
	VisitedCountries(ctx context.Context) ([]models.Country, error)
	AllTotals(ctx context.Context, country string) (map[string]models.Totals, error)
	GetMeta(ctx context.Context, key string) (string, error)
}

// Catalog reports reference data state. *catalog.Catalog satisfies it.
type Catalog interface {
	Ready() bool
	Counts(ctx context.Context) (map[string]int, error)
}

// Maps serves visited region GeoJSON. *mapexport.Exporter satisfies it.
type Maps interface {
	Read(class models.Classification) ([]byte, error)
	Build(ctx context.Context, class models.Classification, country string) (*geojson.FeatureCollection, error)
}

// OAuth drives the Strava authorization flow. *strava.Client satisfies it.
type OAuth interface {
	OAuthConfigured() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (strava.Athlete, error)
	Connected(ctx context.Context) bool
	Athlete(ctx context.Context) (strava.Athlete, error)
}

// Deps are the collaborators of Handler. Hub and OAuth may be nil.
type Deps struct {
	Sync    Syncer
	Ledger  Ledger
	Catalog Catalog
	Maps    Maps
	OAuth   OAuth
	Hub     *websocket.Hub

	// AllowedOrigins are accepted for websocket upgrades besides same-origin.
	AllowedOrigins []string
	// PublicURL is where the OAuth callback redirects; defaults to /api/status.
	PublicURL string
	// MapCacheSize and MapCacheTTL bound the live map cache; zero selects
	// the cache defaults.
	MapCacheSize int
	MapCacheTTL  time.Duration
}

// Handler implements the HTTP endpoints.
type Handler struct {
	sync      Syncer
	ledger    Ledger
	catalog   Catalog
	maps      Maps
	oauth     OAuth
	hub       *websocket.Hub
	upgrader  gws.Upgrader
	publicURL string
	startTime time.Time

	// mapCache holds encoded live map builds until the next sync or reset.
	mapCache *cache.LRU[[]byte]
}

// NewHandler wires a Handler.
func NewHandler(d Deps) *Handler {
	publicURL := d.PublicURL
	if publicURL == "" {
		publicURL = "/api/status"
	}
	return &Handler{
		sync:      d.Sync,
		ledger:    d.Ledger,
		catalog:   d.Catalog,
		maps:      d.Maps,
		oauth:     d.OAuth,
		hub:       d.Hub,
		publicURL: publicURL,
		startTime: time.Now(),
		mapCache:  cache.NewLRU[[]byte](d.MapCacheSize, d.MapCacheTTL),
		upgrader: gws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(d.AllowedOrigins),
		},
	}
}

// InvalidateMaps drops cached live maps. It is registered on the event bus
// for completed syncs and data resets.
func (h *Handler) InvalidateMaps(ctx context.Context, _ []byte) error {
	if n := h.mapCache.Clear(); n > 0 {
		logging.Ctx(ctx).Debug().Int("entries", n).Msg("Live map cache cleared")
	}
	return nil
}

// originChecker accepts requests without Origin, same-host origins and
// the configured list. A "*" entry accepts everything.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] || set[origin] {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
