// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
)

// Topics.
const (
	TopicSyncStarted   = "sync.started"
	TopicSyncProgress  = "sync.progress"
	TopicSyncCompleted = "sync.completed"
	TopicSyncFailed    = "sync.failed"
	TopicDataReset     = "data.reset"
)

// Topics lists every topic the bus carries.
var Topics = []string{
	TopicSyncStarted,
	TopicSyncProgress,
	TopicSyncCompleted,
	TopicSyncFailed,
	TopicDataReset,
}

// SyncEvent describes a sync run at one point of its life.
type SyncEvent struct {
	RunID     string    `json:"run_id"`
	Mode      string    `json:"mode"`
	Stage     string    `json:"stage,omitempty"`
	Message   string    `json:"message,omitempty"`
	Progress  int       `json:"progress"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`

	// Set on completion or failure.
	ActivitiesFetched int     `json:"activities_fetched,omitempty"`
	TracksFetched     int     `json:"tracks_fetched,omitempty"`
	NoTrack           int     `json:"no_track,omitempty"`
	Attributed        int     `json:"attributed,omitempty"`
	Failed            int     `json:"failed,omitempty"`
	DurationSeconds   float64 `json:"duration_seconds,omitempty"`
	Error             string  `json:"error,omitempty"`
}

// ResetEvent announces that user data was cleared.
type ResetEvent struct {
	Scope     string    `json:"scope"`
	Timestamp time.Time `json:"timestamp"`
}

// Envelope is the JSON shape pushed to websocket clients.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode unmarshals a message payload into T.
func Decode[T any](msg *message.Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s message %s: %w", msg.Metadata.Get(MetadataTopic), msg.UUID, err)
	}
	return v, nil
}
