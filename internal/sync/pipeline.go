// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/trailatlas/internal/models"
)

// writeReq is one store write handed to the writer goroutine. Exactly one
// of page and outcome is set. done, when non-nil, receives the write error.
type writeReq struct {
	page    []models.Activity
	outcome *trackOutcome
	done    chan error
}

// fetchPipelined overlaps paging with track downloads. The producer pages
// activities and enqueues every not fetched activity once; a single
// consumer downloads tracks; a single writer applies all store writes in
// arrival order. A page is stored before any of its activities is enqueued.
func (o *Orchestrator) fetchPipelined(ctx context.Context, after time.Time, res *Result) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan int64, o.cfg.QueueSize)
	writes := make(chan writeReq)

	var (
		enqueued  atomic.Int64
		pageRes   Result
		trackRes  Result
		writerErr error
		prodErr   error
	)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		tracks := 0
		for req := range writes {
			if writerErr != nil {
				if req.done != nil {
					req.done <- writerErr
				}
				continue
			}
			var err error
			if req.page != nil {
				err = o.ledger.SaveActivities(runCtx, req.page)
			} else {
				err = o.recordOutcome(runCtx, *req.outcome, &trackRes)
				tracks++
				total := int(enqueued.Load())
				o.progress(runCtx, tracks, total, fmt.Sprintf("Downloaded GPS data for %d of %d activities", tracks, total))
			}
			if err != nil {
				writerErr = err
				cancel()
			}
			if req.done != nil {
				req.done <- err
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer close(queue)

		seen := make(map[int64]struct{})
		enqueuePending := func() error {
			pending, err := o.ledger.ActivitiesNeedingTrack(runCtx)
			if err != nil {
				return fmt.Errorf("list activities needing tracks: %w", err)
			}
			for _, a := range pending {
				if _, ok := seen[a.ID]; ok {
					continue
				}
				seen[a.ID] = struct{}{}
				enqueued.Add(1)
				select {
				case queue <- a.ID:
				case <-runCtx.Done():
					return runCtx.Err()
				}
			}
			return nil
		}

		if err := enqueuePending(); err != nil {
			prodErr = err
			return
		}
		prodErr = o.listActivities(runCtx, after, &pageRes, func(page []models.Activity) error {
			done := make(chan error, 1)
			select {
			case writes <- writeReq{page: page, done: done}:
			case <-runCtx.Done():
				return runCtx.Err()
			}
			if err := <-done; err != nil {
				return err
			}
			return enqueuePending()
		})
		if prodErr == nil {
			o.status.SetStage(StageTracks, int(enqueued.Load()))
		}
	}()

	go func() {
		defer wg.Done()
		for id := range queue {
			if runCtx.Err() != nil {
				continue
			}
			track, err := o.fetchTrack(runCtx, id)
			writes <- writeReq{outcome: &trackOutcome{id: id, track: track, err: err}}
		}
	}()

	wg.Wait()
	close(writes)
	<-writerDone

	res.ActivitiesFetched += pageRes.ActivitiesFetched
	res.TracksFetched += trackRes.TracksFetched
	res.NoTrack += trackRes.NoTrack
	res.Failed += pageRes.Failed + trackRes.Failed

	switch {
	case writerErr != nil:
		return writerErr
	case prodErr != nil && !errors.Is(prodErr, context.Canceled):
		return prodErr
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return prodErr
}
