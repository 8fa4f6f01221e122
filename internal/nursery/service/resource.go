package service

import (
	"context"
	"errors"

	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/store"
	"longtrees/pkg/domain"
	dErrors "longtrees/pkg/domain-errors"
	"longtrees/pkg/platform/events"
	"longtrees/pkg/platform/sentinel"
)

// PageRequest bounds one list call. Zero Limit means the configured page
// size; After starts strictly after that identifier.
type PageRequest struct {
	Limit int
	After *domain.ID
}

// Page is one ascending-identifier slice of a collection. NextAfter is set
// when the page is full and more documents may follow.
type Page[T any] struct {
	Items     []T        `json:"items"`
	NextAfter *domain.ID `json:"next_after,omitempty"`
}

// Resource runs the CRUD operations for one resource type. The hooks are
// optional: validate checks a parsed document against its own identifier
// (NilID on create), refs lists the reference fields to resolve, checkStored
// vets an update against the stored document, and linkBack maintains
// back-references after a successful write.
type Resource[T models.Document[T]] struct {
	svc   *Service
	label string
	repo  store.Repository[T]
	parse models.ParseFunc[T]

	validate func(id domain.ID, doc T) error
	refs        func(doc T) []reference
	checkStored func(stored, doc T) error
	linkBack    func(ctx context.Context, doc T)
}

func (r *Resource[T]) collection() string {
	var zero T
	return zero.Collection()
}

// Create validates fields, resolves references and stores a new document.
func (r *Resource[T]) Create(ctx context.Context, fields models.Fields) (doc T, err error) {
	ctx, end := r.svc.startSpan(ctx, r.collection(), "create")
	defer end(&err)

	doc, err = r.prepare(ctx, domain.NilID, fields)
	if err != nil {
		var zero T
		return zero, err
	}
	id, err := r.repo.Create(ctx, doc)
	if err != nil {
		var zero T
		return zero, translate(err, r.label, "create")
	}
	doc = doc.WithID(id)
	if r.linkBack != nil {
		r.linkBack(ctx, doc)
	}
	r.svc.recordWrite(ctx, r.collection(), events.ActionCreated, id.String())
	return doc, nil
}

func (r *Resource[T]) Get(ctx context.Context, id domain.ID) (doc T, err error) {
	ctx, end := r.svc.startSpan(ctx, r.collection(), "get")
	defer end(&err)

	doc, err = r.repo.Get(ctx, id)
	if err != nil {
		var zero T
		return zero, translate(err, r.label, "load")
	}
	return doc, nil
}

// List returns one page within the configured list deadline. Limits above
// the maximum page size are capped.
func (r *Resource[T]) List(ctx context.Context, req PageRequest) (page Page[T], err error) {
	ctx, end := r.svc.startSpan(ctx, r.collection(), "list")
	defer end(&err)

	limit := req.Limit
	switch {
	case limit < 0:
		return Page[T]{}, dErrors.InvalidValue("limit", "must not be negative")
	case limit == 0:
		limit = r.svc.pageSize
	case limit > r.svc.maxPageSize:
		limit = r.svc.maxPageSize
	}

	ctx, cancel := context.WithTimeout(ctx, r.svc.listTimeout)
	defer cancel()

	items, err := store.Collect(r.repo.List(ctx, store.ListOptions{Limit: limit, After: req.After}))
	if err != nil {
		if errors.Is(err, sentinel.ErrCursorConsumed) {
			return Page[T]{}, dErrors.Wrap(err, dErrors.CodeInternal, "list cursor reused")
		}
		return Page[T]{}, translate(err, r.label, "list")
	}
	page = Page[T]{Items: items}
	if len(items) == limit {
		next := items[len(items)-1].DocumentID()
		page.NextAfter = &next
	}
	return page, nil
}

// Update replaces every client field of the stored document. Derived fields
// keep their stored values.
func (r *Resource[T]) Update(ctx context.Context, id domain.ID, fields models.Fields) (doc T, err error) {
	ctx, end := r.svc.startSpan(ctx, r.collection(), "update")
	defer end(&err)

	doc, err = r.prepare(ctx, id, fields)
	if err != nil {
		var zero T
		return zero, r.missingOr(ctx, id, err)
	}
	if r.checkStored != nil {
		stored, err := r.repo.Get(ctx, id)
		if err != nil {
			var zero T
			return zero, translate(err, r.label, "update")
		}
		if err := r.checkStored(stored, doc); err != nil {
			var zero T
			return zero, err
		}
	}
	doc, err = r.repo.Update(ctx, id, doc)
	if err != nil {
		var zero T
		return zero, translate(err, r.label, "update")
	}
	if r.linkBack != nil {
		r.linkBack(ctx, doc)
	}
	r.svc.recordWrite(ctx, r.collection(), events.ActionUpdated, id.String())
	return doc, nil
}

// Delete removes one document. References to it from other documents are
// left in place.
func (r *Resource[T]) Delete(ctx context.Context, id domain.ID) (err error) {
	ctx, end := r.svc.startSpan(ctx, r.collection(), "delete")
	defer end(&err)

	if err := r.repo.Delete(ctx, id); err != nil {
		return translate(err, r.label, "delete")
	}
	r.svc.recordWrite(ctx, r.collection(), events.ActionDeleted, id.String())
	return nil
}

// missingOr reports NotFound instead of a dangling reference when the
// document being updated does not exist either.
func (r *Resource[T]) missingOr(ctx context.Context, id domain.ID, err error) error {
	if !dErrors.HasCode(err, dErrors.CodeDanglingReference) {
		return err
	}
	if _, getErr := r.repo.Get(ctx, id); errors.Is(getErr, sentinel.ErrNotFound) {
		return translate(getErr, r.label, "update")
	}
	return err
}

// prepare parses fields and runs the validation and reference hooks. No
// store write happens before it succeeds.
func (r *Resource[T]) prepare(ctx context.Context, id domain.ID, fields models.Fields) (T, error) {
	doc, err := r.parse(fields)
	if err != nil {
		return doc, err
	}
	if r.validate != nil {
		if err := r.validate(id, doc); err != nil {
			return doc, err
		}
	}
	if r.refs != nil {
		if err := r.svc.resolve(ctx, r.collection(), r.refs(doc)); err != nil {
			return doc, err
		}
	}
	return doc, nil
}
