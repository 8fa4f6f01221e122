// Package store defines the persistence contract shared by every nursery
// collection and the helpers the backends build on.
//
// One generic Repository serves all four resource types. Backends live in
// sub-packages (memory, mongo, postgres, redis) and are selected at startup by
// internal/storage.
//
// Error contract:
//   - sentinel.ErrNotFound when no document has the identifier
//   - sentinel.ErrUnavailable (wrapped with the driver error) on transport failure
//   - sentinel.ErrCursorConsumed when a List sequence is ranged twice
package store

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"iter"

	"longtrees/internal/nursery/models"
	"longtrees/pkg/domain"
)

// DefaultPageSize is used when a List call does not set a limit.
const DefaultPageSize = 100

// Repository persists one collection of documents.
//
// Every mutation is one atomic operation against the store. Update replaces
// the client-owned fields of the stored document and leaves the derived fields
// (T.DerivedFields) untouched; only Amend changes those. NotFound on Update,
// Delete and Amend is decided by the same operation that writes.
type Repository[T models.Document[T]] interface {
	// Create stores doc under a freshly assigned identifier. Any ID already on
	// doc is ignored.
	Create(ctx context.Context, doc T) (domain.ID, error)
	Get(ctx context.Context, id domain.ID) (T, error)
	// List yields documents in ascending identifier order. The sequence is
	// lazy, finite and one-shot.
	List(ctx context.Context, opts ListOptions) iter.Seq2[T, error]
	Update(ctx context.Context, id domain.ID, doc T) (T, error)
	Delete(ctx context.Context, id domain.ID) error
	// Amend applies amendments to derived fields in one write and returns
	// the document as stored afterwards.
	Amend(ctx context.Context, id domain.ID, amendments ...Amendment) (T, error)
}

// Pinger reports whether a backend can reach its store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ListOptions bound one List call.
type ListOptions struct {
	// Limit caps the number of documents yielded. Zero means DefaultPageSize.
	Limit int
	// After starts the listing strictly after this identifier.
	After *domain.ID
}

// PageSize returns the effective limit.
func (o ListOptions) PageSize() int {
	if o.Limit <= 0 {
		return DefaultPageSize
	}
	return o.Limit
}

// StartAfter returns the exclusive lower bound in canonical form, or "" when
// the listing starts at the beginning.
func (o ListOptions) StartAfter() string {
	if o.After == nil {
		return ""
	}
	return o.After.String()
}
