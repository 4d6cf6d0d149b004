// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/trailatlas/internal/attribution"
	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/metrics"
	"github.com/tomtom215/trailatlas/internal/models"
)

// attribute links stored tracks to regions in batches and recomputes first
// visited dates. With onlyUnattributed, activities attributed by an earlier
// run are skipped. An activity whose geometry test fails stays unattributed
// and is picked up again by the next run.
func (o *Orchestrator) attribute(ctx context.Context, onlyUnattributed bool, res *Result) error {
	log := logging.Ctx(ctx)
	activities, err := o.ledger.ActivitiesWithTrack(ctx, onlyUnattributed)
	if err != nil {
		return fmt.Errorf("list tracks to attribute: %w", err)
	}
	o.status.SetStage(StageAttribution, len(activities))

	start := time.Now()
	before := o.engine.Stats()
	linkCounts := make(map[string]int, len(models.Classifications))

	for lo := 0; lo < len(activities); lo += attributionBatchSize {
		chunk := activities[lo:min(lo+attributionBatchSize, len(activities))]
		items := make([]attribution.Item, len(chunk))
		for i, a := range chunk {
			items[i] = attribution.Item{ActivityID: a.ID, Track: a.Track}
		}

		results, failures := o.engine.AttributeBatch(items)
		for _, f := range failures {
			res.Failed++
			metrics.RecordItemFailure("attribution")
			log.Warn().Err(f.Err).Int64("activity_id", f.ActivityID).Msg("Attribution failed")
		}

		for _, a := range chunk {
			links, ok := results[a.ID]
			if !ok {
				continue
			}
			if err := o.ledger.ApplyLinks(ctx, a.ID, links); err != nil {
				return fmt.Errorf("write links for activity %d: %w", a.ID, err)
			}
			res.Attributed++
			for _, class := range models.Classifications {
				linkCounts[class.Key()] += len(links.ByClass(class))
			}
		}
		done := lo + len(chunk)
		o.progress(ctx, done, len(activities), fmt.Sprintf("Attributed %d of %d activities", done, len(activities)))
	}

	if err := o.ledger.RecomputeAllFirstVisited(ctx); err != nil {
		return fmt.Errorf("recompute first visited: %w", err)
	}

	after := o.engine.Stats()
	unmapped := int(after.Unmapped - before.Unmapped)
	metrics.RecordAttribution(time.Since(start), linkCounts, unmapped)
	if unmapped > 0 {
		log.Warn().Int("unmapped", unmapped).Msg("Local units without hierarchy mapping were skipped")
	}
	return nil
}
