package store

import (
	"iter"
	"sync/atomic"

	"longtrees/pkg/platform/sentinel"
)

// OneShot wraps seq so that it can be ranged over once. A second range yields
// a single sentinel.ErrCursorConsumed and stops.
func OneShot[T any](seq iter.Seq2[T, error]) iter.Seq2[T, error] {
	var used atomic.Bool
	return func(yield func(T, error) bool) {
		if used.Swap(true) {
			var zero T
			yield(zero, sentinel.ErrCursorConsumed)
			return
		}
		seq(yield)
	}
}

// Fail returns a sequence that yields err once.
func Fail[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	out := []T{}
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
