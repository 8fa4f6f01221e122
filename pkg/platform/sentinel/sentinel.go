package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about documents, not validation failures:
// - ErrNotFound: no document has the identifier (matched/deleted count of zero)
// - ErrUnavailable: the store could not be reached or the operation timed out
// - ErrCursorConsumed: a one-shot list sequence was ranged over twice
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound       = errors.New("not found")
	ErrUnavailable    = errors.New("store unavailable")
	ErrCursorConsumed = errors.New("cursor already consumed")
)
