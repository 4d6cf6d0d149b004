// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package sync

import (
	"sync/atomic"
	"time"
)

// Stage names reported in Status.
const (
	StageIdle        = "Idle"
	StageActivities  = "Fetching and storing activities"
	StageTracks      = "Downloading GPS data"
	StageAttribution = "Attributing regions"
	StageResetting   = "Resetting data"
	StageComplete    = "Complete"
	StageFailed      = "Failed"
)

// Status is the shared progress record of the current or last run. All
// fields are updated atomically; readers take a Snapshot.
type Status struct {
	running  atomic.Bool
	stage    atomic.Pointer[string]
	message  atomic.Pointer[string]
	runID    atomic.Pointer[string]
	mode     atomic.Pointer[string]
	lastErr  atomic.Pointer[string]
	progress atomic.Int64
	total    atomic.Int64
	started  atomic.Int64
	finished atomic.Int64
}

// StatusSnapshot is a point-in-time copy of Status.
type StatusSnapshot struct {
	Running    bool       `json:"running"`
	Stage      string     `json:"stage"`
	Message    string     `json:"message"`
	Progress   int64      `json:"progress"`
	Total      int64      `json:"total"`
	RunID      string     `json:"run_id,omitempty"`
	Mode       string     `json:"mode,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewStatus returns an idle status.
func NewStatus() *Status {
	s := &Status{}
	s.stage.Store(ptr(StageIdle))
	s.message.Store(ptr(""))
	return s
}

func ptr(s string) *string { return &s }

func load(p *atomic.Pointer[string]) string {
	if v := p.Load(); v != nil {
		return *v
	}
	return ""
}

func (s *Status) begin(runID, mode string) {
	s.running.Store(true)
	s.runID.Store(ptr(runID))
	s.mode.Store(ptr(mode))
	s.lastErr.Store(ptr(""))
	s.started.Store(time.Now().UnixNano())
	s.finished.Store(0)
	s.progress.Store(0)
	s.total.Store(0)
}

func (s *Status) finish(stage, message string, err error) {
	s.stage.Store(ptr(stage))
	s.message.Store(ptr(message))
	if err != nil {
		s.lastErr.Store(ptr(err.Error()))
	}
	s.finished.Store(time.Now().UnixNano())
	s.running.Store(false)
}

// SetStage moves to stage and resets progress against total.
func (s *Status) SetStage(stage string, total int) {
	s.stage.Store(ptr(stage))
	s.progress.Store(0)
	s.total.Store(int64(total))
}

// SetProgress records progress and a free-text message.
func (s *Status) SetProgress(progress int, message string) {
	s.progress.Store(int64(progress))
	s.message.Store(ptr(message))
}

// SetMessage replaces the message.
func (s *Status) SetMessage(message string) {
	s.message.Store(ptr(message))
}

// Running reports whether a run is active.
func (s *Status) Running() bool {
	return s.running.Load()
}

// Snapshot copies the current state.
func (s *Status) Snapshot() StatusSnapshot {
	snap := StatusSnapshot{
		Running:   s.running.Load(),
		Stage:     load(&s.stage),
		Message:   load(&s.message),
		Progress:  s.progress.Load(),
		Total:     s.total.Load(),
		RunID:     load(&s.runID),
		Mode:      load(&s.mode),
		LastError: load(&s.lastErr),
	}
	if ns := s.started.Load(); ns != 0 {
		t := time.Unix(0, ns).UTC()
		snap.StartedAt = &t
	}
	if ns := s.finished.Load(); ns != 0 {
		t := time.Unix(0, ns).UTC()
		snap.FinishedAt = &t
	}
	return snap
}
