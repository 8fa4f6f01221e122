// Package memory is an in-process event Sink, used by default in development
// and by tests that assert on emitted events.
package memory

import (
	"context"
	"sync"

	"longtrees/pkg/platform/events"
)

type Sink struct {
	mu     sync.RWMutex
	events []events.ChangeEvent
}

func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Publish(_ context.Context, event events.ChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything published so far, oldest first.
func (s *Sink) Events() []events.ChangeEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]events.ChangeEvent{}, s.events...)
}

// ByCollection returns the events for one collection.
func (s *Sink) ByCollection(collection string) []events.ChangeEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []events.ChangeEvent
	for _, e := range s.events {
		if e.Collection == collection {
			out = append(out, e)
		}
	}
	return out
}

func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *Sink) Close() error { return nil }
