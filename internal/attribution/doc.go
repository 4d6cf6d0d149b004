// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

// Package attribution turns GPS tracks into region links.
//
// For one track the engine:
//
//  1. returns an empty LinkSet for fewer than two points
//  2. queries the LocalUnit spatial index with the track bounding box
//  3. keeps the candidates the track actually crosses
//  4. resolves each local unit to its NUTS0..NUTS3 parents through the
//     hierarchy mapping, de-duplicated per level
//
// Local units without a mapping row still produce a LocalUnit link but no
// statistical links; they are counted in Stats and logged.
//
// AttributeBatch queries the index once with the union of all track bounding
// boxes and refines per track. The result is identical to attributing each
// activity on its own. A geometry failure, including a panic raised inside
// geometry code, becomes a Failure for that activity and the batch goes on.
package attribution
