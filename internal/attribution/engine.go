// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package attribution

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync/atomic"

	"github.com/paulmach/orb"

	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/models"
	"github.com/tomtom215/trailatlas/internal/spatial"
)

// ErrGeometry wraps failures raised while testing a track against regions.
var ErrGeometry = errors.New("geometry failure")

// Lookup supplies the LocalUnit index and the hierarchy mapping.
// *catalog.Catalog satisfies it.
type Lookup interface {
	Index() *spatial.Index
	Mapping(lauID string) (models.HierarchyParents, bool)
}

// Item is one activity to attribute.
type Item struct {
	ActivityID int64
	Track      models.Track
}

// Failure records an activity whose attribution was abandoned.
type Failure struct {
	ActivityID int64
	Err        error
}

// Stats are cumulative engine counters.
type Stats struct {
	Attributed int64
	Failed     int64
	Degenerate int64
	Unmapped   int64
}

// Engine attributes tracks against a Lookup. It is safe for concurrent use.
type Engine struct {
	lookup Lookup

	attributed atomic.Int64
	failed     atomic.Int64
	degenerate atomic.Int64
	unmapped   atomic.Int64
}

// NewEngine creates an engine over lookup.
func NewEngine(lookup Lookup) *Engine {
	return &Engine{lookup: lookup}
}

// Attribute computes the links of one track.
func (e *Engine) Attribute(activityID int64, track models.Track) (LinkSet, error) {
	if len(track) < 2 {
		e.degenerate.Add(1)
		return NewLinkSet(), nil
	}
	line := track.LineString()
	return e.attributeWith(activityID, line, func() []spatial.Entry {
		return e.lookup.Index().Candidates(line.Bound())
	})
}

// AttributeBatch attributes every item, sharing one candidate query across
// the union of their bounding boxes.
func (e *Engine) AttributeBatch(items []Item) (map[int64]LinkSet, []Failure) {
	results := make(map[int64]LinkSet, len(items))
	var failures []Failure

	var union orb.Bound
	haveBound := false
	for _, it := range items {
		if len(it.Track) < 2 || it.Track.Validate() != nil {
			continue
		}
		b := it.Track.LineString().Bound()
		if !haveBound {
			union, haveBound = b, true
		} else {
			union = union.Union(b)
		}
	}

	var shared []spatial.Entry
	if haveBound {
		shared = e.lookup.Index().Candidates(union)
	}

	for _, it := range items {
		if len(it.Track) < 2 {
			e.degenerate.Add(1)
			results[it.ActivityID] = NewLinkSet()
			continue
		}
		line := it.Track.LineString()
		tb := line.Bound()
		links, err := e.attributeWith(it.ActivityID, line, func() []spatial.Entry {
			return refine(shared, tb)
		})
		if err != nil {
			failures = append(failures, Failure{ActivityID: it.ActivityID, Err: err})
			continue
		}
		results[it.ActivityID] = links
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].ActivityID < failures[j].ActivityID })
	return results, failures
}

// refine narrows the shared candidate list to those overlapping b.
func refine(shared []spatial.Entry, b orb.Bound) []spatial.Entry {
	out := make([]spatial.Entry, 0, len(shared))
	for _, c := range shared {
		if c.Bound.Intersects(b) {
			out = append(out, c)
		}
	}
	return out
}

func (e *Engine) attributeWith(activityID int64, line orb.LineString, candidates func() []spatial.Entry) (links LinkSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Int64("activity_id", activityID).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Panic during track attribution")
			e.failed.Add(1)
			links = LinkSet{}
			err = fmt.Errorf("%w: activity %d: panic: %v", ErrGeometry, activityID, r)
		}
	}()

	if verr := models.Track(line).Validate(); verr != nil {
		e.failed.Add(1)
		return LinkSet{}, fmt.Errorf("%w: activity %d: %v", ErrGeometry, activityID, verr)
	}

	hits := spatial.Intersects(line, candidates())

	links = NewLinkSet()
	var unmapped []string
	for _, hit := range hits {
		links.Add(models.LocalUnit, hit.ID)
		parents, ok := e.lookup.Mapping(hit.ID)
		if !ok {
			unmapped = append(unmapped, hit.ID)
			continue
		}
		for _, class := range models.StatisticalLevels {
			links.Add(class, parents.At(class))
		}
	}

	if len(unmapped) > 0 {
		e.unmapped.Add(int64(len(unmapped)))
		logging.Warn().
			Int64("activity_id", activityID).
			Strs("lau_ids", unmapped).
			Msg("Local units without NUTS mapping")
	}

	e.attributed.Add(1)
	return links, nil
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Attributed: e.attributed.Load(),
		Failed:     e.failed.Load(),
		Degenerate: e.degenerate.Load(),
		Unmapped:   e.unmapped.Load(),
	}
}
