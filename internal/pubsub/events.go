// Package pubsub provides a generic publish/subscribe event system.
//
// The composition protocol publishes one notification per successful
// mutating operation; the daemon fans those out to SSE clients and the
// logger publishes log lines for live tailing. Both ride the same broker.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// LinkEvent is published when a new edge or attachment is created.
	LinkEvent EventType = "link"
	// RetargetEvent is published when an existing edge or attachment moves
	// to a new target.
	RetargetEvent EventType = "retarget"
	// UnlinkEvent is published when an edge or attachment is removed.
	UnlinkEvent EventType = "unlink"
	// LogEvent is published by the logger for each written entry.
	LogEvent EventType = "log"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
