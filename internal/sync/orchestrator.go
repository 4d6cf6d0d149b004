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

	"github.com/google/uuid"

	"github.com/tomtom215/trailatlas/internal/attribution"
	"github.com/tomtom215/trailatlas/internal/config"
	"github.com/tomtom215/trailatlas/internal/events"
	"github.com/tomtom215/trailatlas/internal/ledger"
	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/metrics"
	"github.com/tomtom215/trailatlas/internal/models"
	"github.com/tomtom215/trailatlas/internal/strava"
)

// ErrSyncInProgress is returned when a sync or reset is already running.
var ErrSyncInProgress = errors.New("sync already in progress")

// Run modes.
const (
	ModeIncremental = "incremental"
	ModeFull        = "full"
	ModeReattribute = "reattribute"
)

const (
	attributionBatchSize = 200
	progressEvery        = 25
)

// Source is the activity source. *strava.Client satisfies it.
type Source interface {
	ListActivities(ctx context.Context, after time.Time, fn strava.PageFunc) (int, error)
	GetTrack(ctx context.Context, activityID int64) (models.Track, error)
}

// Ledger is the subset of the user store the orchestrator writes to.
// *ledger.Store satisfies it.
type Ledger interface {
	LatestStartDate(ctx context.Context) (time.Time, bool, error)
	SaveActivities(ctx context.Context, activities []models.Activity) error
	ActivitiesNeedingTrack(ctx context.Context) ([]models.Activity, error)
	SetTrack(ctx context.Context, activityID int64, track models.Track) error
	MarkNoTrack(ctx context.Context, activityID int64) error
	ActivitiesWithTrack(ctx context.Context, onlyUnattributed bool) ([]models.Activity, error)
	ApplyLinks(ctx context.Context, activityID int64, links attribution.LinkSet) error
	RecomputeAllFirstVisited(ctx context.Context) error
	Reset(ctx context.Context, scope ledger.ResetScope) error
	SetMeta(ctx context.Context, key, value string) error
}

// Attributor computes region links. *attribution.Engine satisfies it.
type Attributor interface {
	AttributeBatch(items []attribution.Item) (map[int64]attribution.LinkSet, []attribution.Failure)
	Stats() attribution.Stats
}

// Publisher receives lifecycle events. *events.Bus satisfies it.
type Publisher interface {
	Publish(topic string, v any) error
}

// Result summarizes one run.
type Result struct {
	RunID             string        `json:"run_id"`
	Mode              string        `json:"mode"`
	ActivitiesFetched int           `json:"activities_fetched"`
	TracksFetched     int           `json:"tracks_fetched"`
	NoTrack           int           `json:"no_track"`
	Attributed        int           `json:"attributed"`
	Failed            int           `json:"failed"`
	Duration          time.Duration `json:"duration"`
}

// Orchestrator drives fetch, track download and attribution. Only one run
// executes at a time.
type Orchestrator struct {
	source    Source
	ledger    Ledger
	engine    Attributor
	publisher Publisher
	status    *Status
	cfg       config.SyncConfig

	busy atomic.Bool
	wg   sync.WaitGroup

	// baseCtx bounds background runs started by the Trigger methods.
	baseCtx context.Context
}

// NewOrchestrator wires an orchestrator. publisher may be nil.
func NewOrchestrator(ctx context.Context, cfg config.SyncConfig, source Source, store Ledger, engine Attributor, publisher Publisher, status *Status) *Orchestrator {
	if status == nil {
		status = NewStatus()
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	return &Orchestrator{
		source:    source,
		ledger:    store,
		engine:    engine,
		publisher: publisher,
		status:    status,
		cfg:       cfg,
		baseCtx:   ctx,
	}
}

// Status returns the shared status record.
func (o *Orchestrator) Status() *Status {
	return o.status
}

func (o *Orchestrator) acquire() bool {
	return o.busy.CompareAndSwap(false, true)
}

func (o *Orchestrator) release() {
	o.busy.Store(false)
}

// Sync runs synchronously. Without fetchAll only activities newer than the
// latest stored start date are listed and only unattributed tracks are
// attributed.
func (o *Orchestrator) Sync(ctx context.Context, fetchAll bool) (Result, error) {
	if !o.acquire() {
		return Result{}, ErrSyncInProgress
	}
	defer o.release()
	return o.run(ctx, modeFor(fetchAll), func(ctx context.Context, res *Result) error {
		return o.syncSteps(ctx, fetchAll, res)
	})
}

// Reset clears user data for scope and rebuilds it: derived resets are
// re-attributed from stored tracks, other scopes are followed by a full sync.
func (o *Orchestrator) Reset(ctx context.Context, scope ledger.ResetScope) (Result, error) {
	if !o.acquire() {
		return Result{}, ErrSyncInProgress
	}
	defer o.release()
	return o.reset(ctx, scope)
}

// TriggerSync starts Sync in the background and returns at once.
func (o *Orchestrator) TriggerSync(fetchAll bool) error {
	if !o.acquire() {
		return ErrSyncInProgress
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.release()
		_, _ = o.run(o.baseCtx, modeFor(fetchAll), func(ctx context.Context, res *Result) error {
			return o.syncSteps(ctx, fetchAll, res)
		})
	}()
	return nil
}

// TriggerReset starts Reset in the background and returns at once.
func (o *Orchestrator) TriggerReset(scope ledger.ResetScope) error {
	if !o.acquire() {
		return ErrSyncInProgress
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.release()
		_, _ = o.reset(o.baseCtx, scope)
	}()
	return nil
}

// Wait blocks until background runs finish.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Busy reports whether a run holds the orchestrator.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

func modeFor(fetchAll bool) string {
	if fetchAll {
		return ModeFull
	}
	return ModeIncremental
}

func (o *Orchestrator) reset(ctx context.Context, scope ledger.ResetScope) (Result, error) {
	mode := ModeFull
	if scope == ledger.ResetScopeDerived {
		mode = ModeReattribute
	}
	return o.run(ctx, mode, func(ctx context.Context, res *Result) error {
		o.status.SetStage(StageResetting, 0)
		o.status.SetMessage("Clearing " + scope.String() + " data")
		if err := o.ledger.Reset(ctx, scope); err != nil {
			return err
		}
		o.publish(events.TopicDataReset, events.ResetEvent{Scope: scope.String(), Timestamp: time.Now().UTC()})
		if scope == ledger.ResetScopeDerived {
			return o.attribute(ctx, true, res)
		}
		return o.syncSteps(ctx, true, res)
	})
}

// run wraps one run with status, events, metrics and metadata.
func (o *Orchestrator) run(ctx context.Context, mode string, steps func(context.Context, *Result) error) (Result, error) {
	res := Result{RunID: uuid.New().String(), Mode: mode}
	ctx = logging.ContextWithSyncRunID(ctx, res.RunID)
	log := logging.Ctx(ctx)
	start := time.Now()

	o.status.begin(res.RunID, mode)
	o.publish(events.TopicSyncStarted, events.SyncEvent{RunID: res.RunID, Mode: mode, Timestamp: start.UTC()})
	log.Info().Str("mode", mode).Bool("pipeline", o.cfg.Pipeline).Msg("Sync started")

	err := steps(ctx, &res)
	res.Duration = time.Since(start)
	metrics.RecordSyncOperation(mode, res.Duration, err)

	done := o.event(res)
	if err != nil {
		done.Error = err.Error()
		o.status.finish(StageFailed, err.Error(), err)
		o.publish(events.TopicSyncFailed, done)
		log.Error().Err(err).Str("mode", mode).Dur("duration", res.Duration).Msg("Sync failed")
		return res, err
	}

	now := time.Now().UTC()
	if err := o.ledger.SetMeta(ctx, ledger.MetaLastSync, now.Format(time.RFC3339)); err != nil {
		log.Warn().Err(err).Msg("Failed to record last sync time")
	}
	if err := o.ledger.SetMeta(ctx, ledger.MetaLastSyncMode, mode); err != nil {
		log.Warn().Err(err).Msg("Failed to record last sync mode")
	}

	o.status.finish(StageComplete, summary(res), nil)
	o.publish(events.TopicSyncCompleted, done)
	log.Info().
		Str("mode", mode).
		Int("activities", res.ActivitiesFetched).
		Int("tracks", res.TracksFetched).
		Int("no_track", res.NoTrack).
		Int("attributed", res.Attributed).
		Int("failed", res.Failed).
		Dur("duration", res.Duration).
		Msg("Sync completed")
	return res, nil
}

func summary(res Result) string {
	return fmt.Sprintf("%d activities, %d tracks, %d attributed, %d failed",
		res.ActivitiesFetched, res.TracksFetched, res.Attributed, res.Failed)
}

func (o *Orchestrator) event(res Result) events.SyncEvent {
	return events.SyncEvent{
		RunID:             res.RunID,
		Mode:              res.Mode,
		Stage:             load(&o.status.stage),
		Timestamp:         time.Now().UTC(),
		ActivitiesFetched: res.ActivitiesFetched,
		TracksFetched:     res.TracksFetched,
		NoTrack:           res.NoTrack,
		Attributed:        res.Attributed,
		Failed:            res.Failed,
		DurationSeconds:   res.Duration.Seconds(),
	}
}

func (o *Orchestrator) publish(topic string, v any) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(topic, v); err != nil {
		logging.Warn().Err(err).Str("topic", topic).Msg("Failed to publish sync event")
	}
}

// progress updates the status and emits a throttled progress event.
func (o *Orchestrator) progress(ctx context.Context, n, total int, message string) {
	o.status.SetProgress(n, message)
	if n != total && n%progressEvery != 0 {
		return
	}
	snap := o.status.Snapshot()
	o.publish(events.TopicSyncProgress, events.SyncEvent{
		RunID:     snap.RunID,
		Mode:      snap.Mode,
		Stage:     snap.Stage,
		Message:   message,
		Progress:  n,
		Total:     total,
		Timestamp: time.Now().UTC(),
	})
	logging.Ctx(ctx).Debug().Str("stage", snap.Stage).Int("progress", n).Int("total", total).Msg("Sync progress")
}

func (o *Orchestrator) syncSteps(ctx context.Context, fetchAll bool, res *Result) error {
	var after time.Time
	if !fetchAll {
		latest, ok, err := o.ledger.LatestStartDate(ctx)
		if err != nil {
			return fmt.Errorf("read sync cutoff: %w", err)
		}
		if ok {
			after = latest
		}
	}

	var err error
	if o.cfg.Pipeline {
		err = o.fetchPipelined(ctx, after, res)
	} else {
		err = o.fetchSequential(ctx, after, res)
	}
	if err != nil {
		return err
	}
	return o.attribute(ctx, !fetchAll, res)
}

// fatal reports errors that abort a run instead of counting as item failures.
func fatal(err error) bool {
	return errors.Is(err, strava.ErrNotConnected) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// listActivities pages the source, handing each page to store. A page
// failure ends paging and is counted; pages already stored remain.
func (o *Orchestrator) listActivities(ctx context.Context, after time.Time, res *Result, store func([]models.Activity) error) error {
	o.status.SetStage(StageActivities, 0)
	o.status.SetMessage("Listing activities")

	var storeErr error
	n, err := o.source.ListActivities(ctx, after, func(page []models.Activity) error {
		if err := store(page); err != nil {
			storeErr = err
			return err
		}
		res.ActivitiesFetched += len(page)
		metrics.SyncActivitiesFetched.Add(float64(len(page)))
		o.progress(ctx, res.ActivitiesFetched, res.ActivitiesFetched, fmt.Sprintf("Stored %d activities", res.ActivitiesFetched))
		return nil
	})
	if storeErr != nil {
		return fmt.Errorf("store activities: %w", storeErr)
	}
	if err != nil {
		if fatal(err) {
			return fmt.Errorf("list activities: %w", err)
		}
		res.Failed++
		metrics.RecordItemFailure("page")
		logging.Ctx(ctx).Warn().Err(err).Int("stored", n).Msg("Activity listing stopped early")
	}
	return nil
}

// fetchTrack requests one track, retrying transient failures. The outcome
// is one of the track status values or an error leaving the activity
// not fetched.
func (o *Orchestrator) fetchTrack(ctx context.Context, id int64) (models.Track, error) {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.RetryAttempts; attempt++ {
		track, err := o.source.GetTrack(ctx, id)
		if err == nil {
			return track, nil
		}
		lastErr = err
		if fatal(err) || errors.Is(err, strava.ErrUnauthorized) || attempt == o.cfg.RetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(o.cfg.RetryDelay * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

type trackOutcome struct {
	id    int64
	track models.Track
	err   error
}

// recordOutcome persists a track result and updates counters. The returned
// error is non-nil only when the run must abort.
func (o *Orchestrator) recordOutcome(ctx context.Context, out trackOutcome, res *Result) error {
	log := logging.Ctx(ctx)
	switch {
	case out.err != nil:
		if fatal(out.err) {
			return out.err
		}
		res.Failed++
		metrics.RecordTrackFetch("failed")
		metrics.RecordItemFailure("track")
		log.Warn().Err(out.err).Int64("activity_id", out.id).Msg("Track fetch failed, will retry next sync")
		return nil
	case out.track == nil:
		if err := o.ledger.MarkNoTrack(ctx, out.id); err != nil {
			return fmt.Errorf("mark activity %d without track: %w", out.id, err)
		}
		res.NoTrack++
		metrics.RecordTrackFetch("no_track")
		return nil
	default:
		if err := o.ledger.SetTrack(ctx, out.id, out.track); err != nil {
			return fmt.Errorf("store track for activity %d: %w", out.id, err)
		}
		res.TracksFetched++
		metrics.RecordTrackFetch("track")
		return nil
	}
}

func (o *Orchestrator) fetchSequential(ctx context.Context, after time.Time, res *Result) error {
	if err := o.listActivities(ctx, after, res, func(page []models.Activity) error {
		return o.ledger.SaveActivities(ctx, page)
	}); err != nil {
		return err
	}

	pending, err := o.ledger.ActivitiesNeedingTrack(ctx)
	if err != nil {
		return fmt.Errorf("list activities needing tracks: %w", err)
	}
	o.status.SetStage(StageTracks, len(pending))
	for i, a := range pending {
		track, err := o.fetchTrack(ctx, a.ID)
		if err := o.recordOutcome(ctx, trackOutcome{id: a.ID, track: track, err: err}, res); err != nil {
			return err
		}
		o.progress(ctx, i+1, len(pending), fmt.Sprintf("Downloaded GPS data for %d of %d activities", i+1, len(pending)))
	}
	return nil
}
