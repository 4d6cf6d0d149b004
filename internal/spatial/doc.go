// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

// Package spatial provides the two-phase region lookup used by attribution:
// a uniform grid over region bounding boxes for fast candidate pruning, and
// an exact line/polygon intersection test run only against those candidates.
//
// All coordinates are EPSG:4326 longitude/latitude. Only topological yes/no
// questions are asked, so no projection is needed.
//
// Time Complexity:
//   - Insert: O(c) where c = grid cells covered by the region bounding box
//   - Candidates: O(q + k log k) where q = cells covered by the query and
//     k = matching entries
//   - Intersects: O(s * e) per candidate in the worst case, where s = track
//     segments and e = ring edges; ring bounding boxes prune most pairs
//
// The index is built once and read concurrently afterwards.
package spatial
