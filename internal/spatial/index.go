// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package spatial

import (
	"math"
	"sort"
	"sync"

	"github.com/paulmach/orb"
)

// DefaultCellSize is the grid cell edge in degrees (roughly 28km of latitude).
const DefaultCellSize = 0.25

// maxCellsPerEntry caps how many cells one entry may occupy. Entries with
// larger boxes go to a side list that every query scans.
const maxCellsPerEntry = 4096

// Entry is one indexed region.
type Entry struct {
	ID       string
	Bound    orb.Bound
	Geometry orb.Geometry
}

// cellKey represents a grid cell coordinate.
type cellKey struct {
	X, Y int
}

// Index buckets region bounding boxes into a uniform lon/lat grid.
type Index struct {
	mu       sync.RWMutex
	cellSize float64
	cells    map[cellKey][]int // Grid cells holding entry positions
	large    []int             // Entries too big for the grid
	entries  []Entry
	byID     map[string]int
}

// NewIndex creates an empty index. cellSizeDeg <= 0 selects DefaultCellSize.
func NewIndex(cellSizeDeg float64) *Index {
	if cellSizeDeg <= 0 || math.IsNaN(cellSizeDeg) {
		cellSizeDeg = DefaultCellSize
	}
	return &Index{
		cellSize: cellSizeDeg,
		cells:    make(map[cellKey][]int),
		byID:     make(map[string]int),
	}
}

func (ix *Index) cellOf(lon, lat float64) cellKey {
	return cellKey{
		X: int(math.Floor(lon / ix.cellSize)),
		Y: int(math.Floor(lat / ix.cellSize)),
	}
}

// cellRange returns the inclusive cell span of b.
func (ix *Index) cellRange(b orb.Bound) (lo, hi cellKey) {
	return ix.cellOf(b.Min.Lon(), b.Min.Lat()), ix.cellOf(b.Max.Lon(), b.Max.Lat())
}

// Insert adds an entry. A zero Bound is derived from the geometry. Inserting
// an id twice replaces the earlier entry.
func (ix *Index) Insert(e Entry) {
	if e.Geometry != nil && e.Bound == (orb.Bound{}) {
		e.Bound = e.Geometry.Bound()
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if pos, ok := ix.byID[e.ID]; ok {
		ix.removeUnlocked(pos)
	}

	pos := len(ix.entries)
	ix.entries = append(ix.entries, e)
	ix.byID[e.ID] = pos

	lo, hi := ix.cellRange(e.Bound)
	span := (hi.X - lo.X + 1) * (hi.Y - lo.Y + 1)
	if span > maxCellsPerEntry || span <= 0 {
		ix.large = append(ix.large, pos)
		return
	}
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			k := cellKey{X: x, Y: y}
			ix.cells[k] = append(ix.cells[k], pos)
		}
	}
}

// removeUnlocked detaches the entry at pos from cells and the large list
// (caller must hold lock). The slot in entries is kept so positions stay valid.
func (ix *Index) removeUnlocked(pos int) {
	lo, hi := ix.cellRange(ix.entries[pos].Bound)
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			k := cellKey{X: x, Y: y}
			ix.cells[k] = removePos(ix.cells[k], pos)
			if len(ix.cells[k]) == 0 {
				delete(ix.cells, k)
			}
		}
	}
	ix.large = removePos(ix.large, pos)
	ix.entries[pos] = Entry{}
}

func removePos(list []int, pos int) []int {
	for i, p := range list {
		if p == pos {
			list[i] = list[len(list)-1]
			return list[:len(list)-1]
		}
	}
	return list
}

// Candidates returns every entry whose bounding box overlaps b, de-duplicated
// and ordered by id. The result may include regions the query never touches.
func (ix *Index) Candidates(b orb.Bound) []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	seen := make(map[int]struct{})
	visit := func(pos int) {
		if _, ok := seen[pos]; ok {
			return
		}
		seen[pos] = struct{}{}
	}

	lo, hi := ix.cellRange(b)
	span := (hi.X - lo.X + 1) * (hi.Y - lo.Y + 1)
	if span > len(ix.cells) || span <= 0 {
		for _, list := range ix.cells {
			for _, pos := range list {
				visit(pos)
			}
		}
	} else {
		for x := lo.X; x <= hi.X; x++ {
			for y := lo.Y; y <= hi.Y; y++ {
				for _, pos := range ix.cells[cellKey{X: x, Y: y}] {
					visit(pos)
				}
			}
		}
	}
	for _, pos := range ix.large {
		visit(pos)
	}

	out := make([]Entry, 0, len(seen))
	for pos := range seen {
		e := ix.entries[pos]
		if e.ID == "" || !e.Bound.Intersects(b) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns an entry by id.
func (ix *Index) Get(id string) (Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	pos, ok := ix.byID[id]
	if !ok {
		return Entry{}, false
	}
	return ix.entries[pos], true
}

// Size returns the number of indexed entries.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byID)
}

// NumCells returns the number of non-empty cells.
func (ix *Index) NumCells() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.cells)
}

// CellSize returns the grid cell edge in degrees.
func (ix *Index) CellSize() float64 {
	return ix.cellSize
}
