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
	"time"

	"github.com/tomtom215/trailatlas/internal/logging"
)

// Scheduler runs incremental syncs on a fixed interval.
type Scheduler struct {
	orch          *Orchestrator
	interval      time.Duration
	syncOnStartup bool

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler for orch. A zero interval disables the
// periodic loop; Start then only performs the optional startup sync.
func NewScheduler(orch *Orchestrator, interval time.Duration, syncOnStartup bool) *Scheduler {
	return &Scheduler{
		orch:          orch,
		interval:      interval,
		syncOnStartup: syncOnStartup,
	}
}

// Start launches the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sync scheduler is already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})

	logging.Info().Dur("interval", s.interval).Bool("sync_on_startup", s.syncOnStartup).Msg("Starting sync scheduler")

	s.wg.Add(1)
	go s.loop(ctx, s.stopChan)
	return nil
}

// Stop ends the loop and waits for an in-flight scheduled sync.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("sync scheduler is not running")
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	logging.Info().Msg("Sync scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()

	if s.syncOnStartup {
		s.tick(ctx)
	}
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.orch.Sync(ctx, false)
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInProgress):
		logging.Debug().Msg("Scheduled sync skipped, another run is active")
	default:
		logging.Warn().Err(err).Msg("Scheduled sync failed")
	}
}
