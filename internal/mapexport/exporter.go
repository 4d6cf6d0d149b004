// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package mapexport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/metrics"
	"github.com/tomtom215/trailatlas/internal/models"
)

// ErrNotExported is returned by Read when no export exists for a level.
var ErrNotExported = errors.New("map not exported")

// Visits lists visited regions. *ledger.Store satisfies it.
type Visits interface {
	VisitedRegions(ctx context.Context, class models.Classification, country string) ([]models.VisitedRegion, error)
}

// Regions resolves region geometry. *catalog.Catalog satisfies it.
type Regions interface {
	Lookup(class models.Classification, id string) (*models.Region, bool)
}

// Exporter writes visited_<level>.geojson files into dir.
type Exporter struct {
	dir     string
	visits  Visits
	regions Regions

	mu sync.Mutex
}

// New creates an exporter. An empty dir disables file output; Build still
// works.
func New(dir string, visits Visits, regions Regions) *Exporter {
	return &Exporter{dir: dir, visits: visits, regions: regions}
}

// Enabled reports whether exports are written to disk.
func (e *Exporter) Enabled() bool {
	return e.dir != ""
}

// Path returns the export file for class.
func (e *Exporter) Path(class models.Classification) string {
	return filepath.Join(e.dir, "visited_"+class.Key()+".geojson")
}

// Build assembles the visited regions of class, optionally within country.
// Regions without geometry in the catalog are left out.
func (e *Exporter) Build(ctx context.Context, class models.Classification, country string) (*geojson.FeatureCollection, error) {
	visited, err := e.visits.VisitedRegions(ctx, class, country)
	if err != nil {
		return nil, fmt.Errorf("list visited %s regions: %w", class.Key(), err)
	}

	fc := geojson.NewFeatureCollection()
	for _, v := range visited {
		r, ok := e.regions.Lookup(class, v.ID)
		if !ok || r.Geometry == nil {
			continue
		}
		f := geojson.NewFeature(r.Geometry)
		f.ID = v.ID
		f.Properties["code"] = v.ID
		f.Properties["name"] = v.Name
		f.Properties["country_code"] = v.CountryCode
		f.Properties["level"] = v.Level
		f.Properties["first_visited"] = v.FirstVisited.UTC().Format(time.DateOnly)
		f.Properties["activity_count"] = v.ActivityCount
		fc.Append(f)
	}
	return fc, nil
}

// Export writes one file per classification and returns the paths written.
func (e *Exporter) Export(ctx context.Context) (paths []string, err error) {
	if !e.Enabled() {
		return nil, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	defer func() {
		result := "success"
		if err != nil {
			result = "error"
		}
		metrics.MapExports.WithLabelValues(result).Inc()
	}()

	if err := os.MkdirAll(e.dir, 0o750); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	for _, class := range models.Classifications {
		fc, err := e.Build(ctx, class, "")
		if err != nil {
			return paths, err
		}
		data, err := fc.MarshalJSON()
		if err != nil {
			return paths, fmt.Errorf("encode %s map: %w", class.Key(), err)
		}
		path := e.Path(class)
		if err := writeAtomic(path, data); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	logging.Info().Int("files", len(paths)).Str("dir", e.dir).Dur("duration", time.Since(start)).Msg("Map export written")
	return paths, nil
}

// Read returns the last exported file for class.
func (e *Exporter) Read(class models.Classification) ([]byte, error) {
	if !e.Enabled() {
		return nil, ErrNotExported
	}
	data, err := os.ReadFile(e.Path(class))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExported
	}
	if err != nil {
		return nil, fmt.Errorf("read %s map: %w", class.Key(), err)
	}
	return data, nil
}

// HandleSyncCompleted is an events.HandlerFunc that refreshes the export.
// Failures are logged and swallowed so the bus does not redeliver.
func (e *Exporter) HandleSyncCompleted(ctx context.Context, _ []byte) error {
	if _, err := e.Export(ctx); err != nil {
		logging.Warn().Err(err).Msg("Map export failed")
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
