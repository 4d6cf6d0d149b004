// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package websocket

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/trailatlas/internal/events"
	"github.com/tomtom215/trailatlas/internal/logging"
)

// Subscriber yields messages for a topic. *events.Bus satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// topicTypes maps bus topics to websocket message types.
var topicTypes = map[string]string{
	events.TopicSyncStarted:   MessageTypeSyncStarted,
	events.TopicSyncProgress:  MessageTypeSyncProgress,
	events.TopicSyncCompleted: MessageTypeSyncCompleted,
	events.TopicSyncFailed:    MessageTypeSyncFailed,
	events.TopicDataReset:     MessageTypeDataReset,
}

// EventBridge forwards bus events to websocket clients.
type EventBridge struct {
	hub *Hub
	sub Subscriber
}

// NewEventBridge creates a bridge from sub to hub.
func NewEventBridge(hub *Hub, sub Subscriber) *EventBridge {
	return &EventBridge{hub: hub, sub: sub}
}

// Serve subscribes to every event topic and forwards until ctx ends.
func (b *EventBridge) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, topic := range events.Topics {
		ch, err := b.sub.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", topic, err)
		}
		wg.Add(1)
		go func(topic string, ch <-chan *message.Message) {
			defer wg.Done()
			b.forward(topic, ch)
		}(topic, ch)
	}
	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

func (b *EventBridge) String() string { return "websocket-event-bridge" }

func (b *EventBridge) forward(topic string, ch <-chan *message.Message) {
	msgType := topicTypes[topic]
	for msg := range ch {
		if !json.Valid(msg.Payload) {
			logging.Warn().Str("topic", topic).Str("message_uuid", msg.UUID).Msg("dropping invalid event payload")
			msg.Ack()
			continue
		}
		b.hub.BroadcastJSON(msgType, json.RawMessage(msg.Payload))
		msg.Ack()
	}
}
