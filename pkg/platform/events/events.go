// Package events publishes change notifications for stored documents. A
// Publisher hands each ChangeEvent to a Sink, either inline or through a
// buffered worker guarded by a circuit breaker.
package events

import (
	"context"
	"time"
)

// Action names the kind of write that produced an event.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionAppended Action = "appended"
	ActionMerged   Action = "merged"
)

// ChangeEvent describes one successful write to a collection.
type ChangeEvent struct {
	Collection string    `json:"collection"`
	Action     Action    `json:"action"`
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

//go:generate mockgen -source=events.go -destination=mocks/mocks.go -package=mocks

// Sink delivers events somewhere durable or observable.
type Sink interface {
	Publish(ctx context.Context, event ChangeEvent) error
	Close() error
}
