// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/trailatlas/internal/config"
	"github.com/tomtom215/trailatlas/internal/database"
	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/models"
	"github.com/tomtom215/trailatlas/internal/spatial"
)

// ErrReferenceData marks a missing, incomplete or malformed reference dataset.
var ErrReferenceData = errors.New("reference data unavailable")

// ErrNotWarm is returned by in-memory accessors before Load or Warm ran.
var ErrNotWarm = errors.New("catalog not loaded into memory")

// Source supplies the three raw reference datasets.
type Source interface {
	LocalUnits(ctx context.Context) ([]models.Region, error)
	StatisticalRegions(ctx context.Context) ([]models.Region, error)
	HierarchyMapping(ctx context.Context) (map[string]models.HierarchyParents, error)
}

// Catalog is the region reference store plus its in-memory views.
type Catalog struct {
	db       *database.DB
	ownsDB   bool
	cellSize float64

	// loadMu serializes Load, ForceReload, Warm and Clear.
	loadMu sync.Mutex

	mu        sync.RWMutex
	byClass   map[models.Classification]map[string]*models.Region
	byCountry map[models.Classification]map[string]int
	mapping   map[string]models.HierarchyParents
	index     *spatial.Index
	warm      bool
}

// Open opens the reference DuckDB file named in cfg and migrates it.
func Open(cfg *config.Config) (*Catalog, error) {
	db, err := database.Open(database.Options{
		Path:                   cfg.Database.ReferencePath,
		Threads:                cfg.Database.Threads,
		MaxMemory:              cfg.Database.MaxMemory,
		PreserveInsertionOrder: cfg.Database.PreserveInsertionOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("open reference store: %w", err)
	}
	c, err := New(db, cfg.Reference.IndexCellSize)
	if err != nil {
		database.CloseWithLog(db, "reference store")
		return nil, err
	}
	c.ownsDB = true
	return c, nil
}

// New wraps an already open database. The caller keeps ownership of db.
func New(db *database.DB, cellSize float64) (*Catalog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := db.Migrate(ctx, "catalog", migrations); err != nil {
		return nil, fmt.Errorf("migrate reference store: %w", err)
	}
	return &Catalog{
		db:       db,
		cellSize: cellSize,
		index:    spatial.NewIndex(cellSize),
	}, nil
}

// Close closes the reference store if Open created it.
func (c *Catalog) Close() error {
	if c.ownsDB {
		return c.db.Close()
	}
	return nil
}

// IsInitialized reports whether every classification has at least one
// region and the mapping is non-empty. It reads counts only.
func (c *Catalog) IsInitialized(ctx context.Context) (bool, error) {
	counts, err := c.Counts(ctx)
	if err != nil {
		return false, err
	}
	for _, class := range models.Classifications {
		if counts[class.Key()] == 0 {
			return false, nil
		}
	}
	return counts["mapping"] > 0, nil
}

// Counts returns persisted row counts keyed lau, nuts0..nuts3 and mapping.
func (c *Catalog) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(models.Classifications)+1)
	for _, class := range models.Classifications {
		counts[class.Key()] = 0
	}

	rows, err := c.db.Conn().QueryContext(ctx,
		`SELECT classification, COUNT(*) FROM regions GROUP BY classification`)
	if err != nil {
		return nil, fmt.Errorf("count regions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scan region count: %w", err)
		}
		counts[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var mappingRows int
	if err := c.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM hierarchy_mapping`).Scan(&mappingRows); err != nil {
		return nil, fmt.Errorf("count mapping rows: %w", err)
	}
	counts["mapping"] = mappingRows
	return counts, nil
}

// Load populates the catalog from src unless it is already complete, then
// builds the in-memory views.
func (c *Catalog) Load(ctx context.Context, src Source) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	ok, err := c.IsInitialized(ctx)
	if err != nil {
		return err
	}
	if ok {
		logging.Info().Msg("Region catalog already initialized, skipping reference data parse")
		return c.warmLocked(ctx)
	}
	return c.reloadLocked(ctx, src)
}

// ForceReload clears the persisted catalog and re-parses src.
func (c *Catalog) ForceReload(ctx context.Context, src Source) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	return c.reloadLocked(ctx, src)
}

func (c *Catalog) reloadLocked(ctx context.Context, src Source) error {
	start := time.Now()
	log := logging.Component("catalog")

	log.Info().Msg("Loading local units")
	locals, err := src.LocalUnits(ctx)
	if err != nil {
		return wrapReference("local units", err)
	}
	log.Info().Msg("Loading statistical regions")
	stats, err := src.StatisticalRegions(ctx)
	if err != nil {
		return wrapReference("statistical regions", err)
	}
	log.Info().Msg("Loading hierarchy mapping")
	mapping, err := src.HierarchyMapping(ctx)
	if err != nil {
		return wrapReference("hierarchy mapping", err)
	}

	if err := validateDatasets(locals, stats, mapping); err != nil {
		return err
	}

	if err := c.persist(ctx, append(locals, stats...), mapping); err != nil {
		return err
	}

	log.Info().
		Int("local_units", len(locals)).
		Int("statistical_regions", len(stats)).
		Int("mapping_rows", len(mapping)).
		Dur("duration", time.Since(start)).
		Msg("Region catalog persisted")

	return c.warmLocked(ctx)
}

func wrapReference(dataset string, err error) error {
	if errors.Is(err, ErrReferenceData) {
		return fmt.Errorf("%s: %w", dataset, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrReferenceData, dataset, err)
}

func validateDatasets(locals, stats []models.Region, mapping map[string]models.HierarchyParents) error {
	if len(locals) == 0 {
		return fmt.Errorf("%w: no local units", ErrReferenceData)
	}
	perLevel := make(map[models.Classification]int)
	for i := range stats {
		perLevel[stats[i].Classification]++
	}
	for _, class := range models.StatisticalLevels {
		if perLevel[class] == 0 {
			return fmt.Errorf("%w: no regions at %s", ErrReferenceData, class)
		}
	}
	if len(mapping) == 0 {
		return fmt.Errorf("%w: empty hierarchy mapping", ErrReferenceData)
	}
	return nil
}

// Warm loads the persisted catalog into memory.
func (c *Catalog) Warm(ctx context.Context) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	return c.warmLocked(ctx)
}

func (c *Catalog) warmLocked(ctx context.Context) error {
	start := time.Now()

	regions, err := c.readRegions(ctx)
	if err != nil {
		return err
	}
	mapping, err := c.readMapping(ctx)
	if err != nil {
		return err
	}

	byClass := make(map[models.Classification]map[string]*models.Region, len(models.Classifications))
	byCountry := make(map[models.Classification]map[string]int, len(models.Classifications))
	for _, class := range models.Classifications {
		byClass[class] = make(map[string]*models.Region)
		byCountry[class] = make(map[string]int)
	}

	index := spatial.NewIndex(c.cellSize)
	for _, r := range regions {
		byClass[r.Classification][r.ID] = r
		byCountry[r.Classification][r.CountryCode]++
		if r.Classification == models.LocalUnit {
			index.Insert(spatial.Entry{ID: r.ID, Bound: r.Bound(), Geometry: r.Geometry})
		}
	}

	c.mu.Lock()
	c.byClass = byClass
	c.byCountry = byCountry
	c.mapping = mapping
	c.index = index
	c.warm = true
	c.mu.Unlock()

	logging.Info().
		Int("regions", len(regions)).
		Int("indexed", index.Size()).
		Int("grid_cells", index.NumCells()).
		Int("mapping_rows", len(mapping)).
		Dur("duration", time.Since(start)).
		Msg("Region catalog warmed")
	return nil
}

// Clear removes every reference row and drops the in-memory views.
func (c *Catalog) Clear(ctx context.Context) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	err := c.db.WithTx(ctx, func(tx database.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM regions`,
			`DELETE FROM hierarchy_mapping`,
			`DELETE FROM catalog_meta`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("clear catalog: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.byClass = nil
	c.byCountry = nil
	c.mapping = nil
	c.index = spatial.NewIndex(c.cellSize)
	c.warm = false
	c.mu.Unlock()

	logging.Info().Msg("Region catalog cleared")
	return nil
}

// Ready reports whether the in-memory views are built.
func (c *Catalog) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.warm
}

// Region looks up a region by id in any classification.
func (c *Catalog) Region(id string) (*models.Region, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, class := range models.Classifications {
		if r, ok := c.byClass[class][id]; ok {
			return r, true
		}
	}
	return nil, false
}

// Lookup returns the region with id at class.
func (c *Catalog) Lookup(class models.Classification, id string) (*models.Region, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byClass[class][id]
	return r, ok
}

// Regions returns every region at class ordered by id.
func (c *Catalog) Regions(class models.Classification) []*models.Region {
	c.mu.RLock()
	src := c.byClass[class]
	out := make([]*models.Region, 0, len(src))
	for _, r := range src {
		out = append(out, r)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Mapping returns the NUTS parent chain of a local unit.
func (c *Catalog) Mapping(lauID string) (models.HierarchyParents, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.mapping[lauID]
	return p, ok
}

// Index returns the LocalUnit spatial index.
func (c *Catalog) Index() *spatial.Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index
}

// Count returns the number of regions at class, optionally within country.
func (c *Catalog) Count(class models.Classification, country string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if country == "" {
		return len(c.byClass[class])
	}
	return c.byCountry[class][country]
}
