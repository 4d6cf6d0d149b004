// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package spatial

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestGeometryIntersects(t *testing.T) {
	t.Parallel()

	donut := orb.Polygon{
		orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		orb.Ring{{3, 3}, {7, 3}, {7, 7}, {3, 7}, {3, 3}},
	}

	tests := []struct {
		name  string
		track orb.LineString
		geom  orb.Geometry
		want  bool
	}{
		{"vertex inside", orb.LineString{{1, 1}, {2, 2}}, square(0, 0, 5), true},
		{"crosses without vertex inside", orb.LineString{{-1, 2}, {6, 2}}, square(0, 0, 5), true},
		{"passes beside", orb.LineString{{6, 0}, {6, 5}}, square(0, 0, 5), false},
		{"touches corner", orb.LineString{{5, 5}, {6, 6}}, square(0, 0, 5), true},
		{"inside hole only", orb.LineString{{4, 4}, {6, 6}}, donut, false},
		{"leaves hole into ring", orb.LineString{{5, 5}, {5, 9}}, donut, true},
		{"diagonal clips corner", orb.LineString{{-1, 4}, {1, 6}}, square(0, 0, 5), true},
		{"multipolygon second part", orb.LineString{{21, 21}, {22, 22}}, orb.MultiPolygon{square(0, 0, 1), square(20, 20, 5)}, true},
		{"point geometry never matches", orb.LineString{{1, 1}, {2, 2}}, orb.Point{1, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GeometryIntersects(tt.track, tt.geom); got != tt.want {
				t.Errorf("GeometryIntersects() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntersectsFiltersCandidates(t *testing.T) {
	t.Parallel()

	ix := NewIndex(1)
	ix.Insert(entryFor("M1", square(0, 0, 1)))
	ix.Insert(entryFor("M2", square(1, 0, 1)))
	ix.Insert(entryFor("M3", square(0, 1.5, 1)))

	track := orb.LineString{{0.5, 0.5}, {1.5, 0.5}}
	cands := ix.Candidates(track.Bound())
	got := ids(Intersects(track, cands))
	if len(got) != 2 || got[0] != "M1" || got[1] != "M2" {
		t.Errorf("Intersects() = %v, want [M1 M2]", got)
	}

	if got := Intersects(nil, cands); got != nil {
		t.Errorf("empty track matched %v", ids(got))
	}
}

func TestSegmentsIntersectCollinear(t *testing.T) {
	t.Parallel()

	if !segmentsIntersect(orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{1, 0}, orb.Point{3, 0}) {
		t.Error("overlapping collinear segments should intersect")
	}
	if segmentsIntersect(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{2, 0}, orb.Point{3, 0}) {
		t.Error("disjoint collinear segments should not intersect")
	}
}
