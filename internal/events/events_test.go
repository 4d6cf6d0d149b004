// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBus(t *testing.T, cfg Config, register func(*Bus)) *Bus {
	t.Helper()
	bus, err := NewBus(cfg)
	require.NoError(t, err)
	if register != nil {
		register(bus)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bus.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = bus.Close()
	})

	select {
	case <-bus.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}
	return bus
}

func TestHandlerReceivesEvent(t *testing.T) {
	t.Parallel()
	got := make(chan SyncEvent, 1)

	bus := startBus(t, DefaultConfig(), func(b *Bus) {
		b.Handle("test-completed", TopicSyncCompleted, func(_ context.Context, payload []byte) error {
			var ev SyncEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				return err
			}
			got <- ev
			return nil
		})
	})

	require.NoError(t, bus.Publish(TopicSyncCompleted, SyncEvent{RunID: "r1", Mode: "incremental", Attributed: 3}))

	select {
	case ev := <-got:
		assert.Equal(t, "r1", ev.RunID)
		assert.Equal(t, 3, ev.Attributed)
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestHandlerRetriesFailures(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	done := make(chan struct{})

	cfg := DefaultConfig()
	cfg.RetryInitialInterval = 10 * time.Millisecond
	bus := startBus(t, cfg, func(b *Bus) {
		b.Handle("flaky", TopicDataReset, func(context.Context, []byte) error {
			if calls.Add(1) < 2 {
				return errors.New("transient")
			}
			close(done)
			return nil
		})
	})

	require.NoError(t, bus.Publish(TopicDataReset, ResetEvent{Scope: "all"}))
	select {
	case <-done:
		assert.Equal(t, int32(2), calls.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("handler never succeeded")
	}
}

func TestHandlerRecoversPanics(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	done := make(chan struct{})

	cfg := DefaultConfig()
	cfg.RetryInitialInterval = 10 * time.Millisecond
	bus := startBus(t, cfg, func(b *Bus) {
		b.Handle("panicky", TopicSyncFailed, func(context.Context, []byte) error {
			if calls.Add(1) == 1 {
				panic("boom")
			}
			close(done)
			return nil
		})
	})

	require.NoError(t, bus.Publish(TopicSyncFailed, SyncEvent{RunID: "r2", Error: "x"}))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("panic was not recovered and retried")
	}
}

func TestSubscribeAndDecode(t *testing.T) {
	t.Parallel()
	bus := startBus(t, DefaultConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := bus.Subscribe(ctx, TopicSyncProgress)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(TopicSyncProgress, SyncEvent{RunID: "r3", Stage: "tracks", Progress: 4, Total: 10}))

	select {
	case msg := <-msgs:
		msg.Ack()
		assert.Equal(t, TopicSyncProgress, msg.Metadata.Get(MetadataTopic))
		ev, err := Decode[SyncEvent](msg)
		require.NoError(t, err)
		assert.Equal(t, 4, ev.Progress)
		assert.Equal(t, "tracks", ev.Stage)
	case <-time.After(5 * time.Second):
		t.Fatal("no message")
	}
}
