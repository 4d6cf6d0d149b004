// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package spatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Intersects returns the candidates whose geometry the track touches, in
// candidate order. A track touches a polygon when any vertex lies inside it
// (holes excluded) or any segment crosses one of its ring edges.
func Intersects(track orb.LineString, candidates []Entry) []Entry {
	if len(track) == 0 {
		return nil
	}
	tb := track.Bound()

	var out []Entry
	for _, c := range candidates {
		if !c.Bound.Intersects(tb) {
			continue
		}
		if GeometryIntersects(track, c.Geometry) {
			out = append(out, c)
		}
	}
	return out
}

// GeometryIntersects reports whether the track touches g. Non-areal
// geometries never match.
func GeometryIntersects(track orb.LineString, g orb.Geometry) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return polygonIntersects(track, geom)
	case orb.MultiPolygon:
		for _, p := range geom {
			if polygonIntersects(track, p) {
				return true
			}
		}
	case orb.Ring:
		return polygonIntersects(track, orb.Polygon{geom})
	case orb.Bound:
		return polygonIntersects(track, geom.ToPolygon())
	case orb.Collection:
		for _, sub := range geom {
			if GeometryIntersects(track, sub) {
				return true
			}
		}
	}
	return false
}

func polygonIntersects(track orb.LineString, poly orb.Polygon) bool {
	if len(poly) == 0 {
		return false
	}
	pb := poly.Bound()
	if !pb.Intersects(track.Bound()) {
		return false
	}

	for _, p := range track {
		if pb.Contains(p) && planar.PolygonContains(poly, p) {
			return true
		}
	}

	for _, ring := range poly {
		if ringCrossed(track, ring) {
			return true
		}
	}
	return false
}

// ringCrossed reports whether any track segment touches any ring edge.
func ringCrossed(track orb.LineString, ring orb.Ring) bool {
	rb := ring.Bound()
	for i := 1; i < len(track); i++ {
		a, b := track[i-1], track[i]
		if !segmentBound(a, b).Intersects(rb) {
			continue
		}
		for j := 1; j < len(ring); j++ {
			if segmentsIntersect(a, b, ring[j-1], ring[j]) {
				return true
			}
		}
	}
	return false
}

func segmentBound(a, b orb.Point) orb.Bound {
	return orb.Bound{Min: a, Max: a}.Extend(b)
}

// orientation returns >0 for counter-clockwise, <0 for clockwise and 0 for
// collinear triples.
func orientation(p, q, r orb.Point) float64 {
	return (q[0]-p[0])*(r[1]-p[1]) - (q[1]-p[1])*(r[0]-p[0])
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// onSegment reports whether collinear point q lies within the box of pr.
func onSegment(p, q, r orb.Point) bool {
	return q[0] <= max(p[0], r[0]) && q[0] >= min(p[0], r[0]) &&
		q[1] <= max(p[1], r[1]) && q[1] >= min(p[1], r[1])
}

// segmentsIntersect reports whether segments p1q1 and p2q2 share a point.
func segmentsIntersect(p1, q1, p2, q2 orb.Point) bool {
	o1 := sign(orientation(p1, q1, p2))
	o2 := sign(orientation(p1, q1, q2))
	o3 := sign(orientation(p2, q2, p1))
	o4 := sign(orientation(p2, q2, q1))

	if o1 != o2 && o3 != o4 {
		return true
	}

	switch {
	case o1 == 0 && onSegment(p1, p2, q1):
		return true
	case o2 == 0 && onSegment(p1, q2, q1):
		return true
	case o3 == 0 && onSegment(p2, p1, q2):
		return true
	case o4 == 0 && onSegment(p2, q1, q2):
		return true
	}
	return false
}
