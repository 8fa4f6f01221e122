// Package memory is an in-process Repository backend. Documents are held as
// JSON so callers never share memory with the store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/store"
	"longtrees/pkg/domain"
	"longtrees/pkg/platform/sentinel"
)

// InMemory stores one collection in a map guarded by a RWMutex.
type InMemory[T models.Document[T]] struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// New constructs an empty in-memory collection.
func New[T models.Document[T]]() *InMemory[T] {
	return &InMemory[T]{docs: make(map[string][]byte)}
}

func (s *InMemory[T]) Create(ctx context.Context, doc T) (domain.ID, error) {
	if err := ctx.Err(); err != nil {
		return domain.NilID, unavailable("create", err)
	}
	id := domain.NewID()
	raw, err := json.Marshal(doc.WithID(id))
	if err != nil {
		return domain.NilID, fmt.Errorf("encode document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id.String()] = raw
	return id, nil
}

func (s *InMemory[T]) Get(ctx context.Context, id domain.ID) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, unavailable("get", err)
	}
	s.mu.RLock()
	raw, ok := s.docs[id.String()]
	s.mu.RUnlock()
	if !ok {
		return zero, sentinel.ErrNotFound
	}
	return decode[T](raw)
}

// List snapshots the matching keys when ranging starts and reads each
// document as it is yielded.
func (s *InMemory[T]) List(ctx context.Context, opts store.ListOptions) iter.Seq2[T, error] {
	return store.OneShot(func(yield func(T, error) bool) {
		s.mu.RLock()
		keys := slices.Sorted(maps.Keys(s.docs))
		s.mu.RUnlock()

		after := opts.StartAfter()
		start, _ := slices.BinarySearch(keys, after)
		if start < len(keys) && keys[start] == after {
			start++
		}
		limit := opts.PageSize()

		for _, key := range keys[start:] {
			if limit == 0 {
				return
			}
			if err := ctx.Err(); err != nil {
				var zero T
				yield(zero, unavailable("list", err))
				return
			}
			s.mu.RLock()
			raw, ok := s.docs[key]
			s.mu.RUnlock()
			if !ok {
				continue
			}
			doc, err := decode[T](raw)
			if !yield(doc, err) || err != nil {
				return
			}
			limit--
		}
	})
}

func (s *InMemory[T]) Update(ctx context.Context, id domain.ID, doc T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, unavailable("update", err)
	}
	patch, err := store.ClientPatch(doc, zero.DerivedFields())
	if err != nil {
		return zero, err
	}
	return s.rewrite(id, func(stored map[string]any) error {
		maps.Copy(stored, patch)
		return nil
	})
}

func (s *InMemory[T]) Delete(ctx context.Context, id domain.ID) error {
	if err := ctx.Err(); err != nil {
		return unavailable("delete", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := id.String()
	if _, ok := s.docs[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.docs, key)
	return nil
}

func (s *InMemory[T]) Amend(ctx context.Context, id domain.ID, amendments ...store.Amendment) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, unavailable("amend", err)
	}
	return s.rewrite(id, func(stored map[string]any) error {
		return store.ApplyJSON(stored, amendments...)
	})
}

// Ping always succeeds.
func (s *InMemory[T]) Ping(context.Context) error {
	return nil
}

// Len reports the number of stored documents.
func (s *InMemory[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// rewrite applies change to the stored document under the write lock, so the
// lookup and the write are one step.
func (s *InMemory[T]) rewrite(id domain.ID, change func(map[string]any) error) (T, error) {
	var zero T
	key := id.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.docs[key]
	if !ok {
		return zero, sentinel.ErrNotFound
	}
	var stored map[string]any
	if err := json.Unmarshal(raw, &stored); err != nil {
		return zero, fmt.Errorf("decode stored document: %w", err)
	}
	if err := change(stored); err != nil {
		return zero, err
	}
	updated, err := json.Marshal(stored)
	if err != nil {
		return zero, fmt.Errorf("encode document: %w", err)
	}
	doc, err := decode[T](updated)
	if err != nil {
		return zero, err
	}
	s.docs[key] = updated
	return doc, nil
}

func decode[T any](raw []byte) (T, error) {
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}
