package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/store"
	"longtrees/pkg/domain"
	dErrors "longtrees/pkg/domain-errors"
	"longtrees/pkg/platform/sentinel"
	"longtrees/pkg/requestcontext"
)

// reference is one reference field to resolve before a write.
type reference struct {
	field  string
	id     domain.ID
	label  string
	exists func(ctx context.Context, id domain.ID) error
}

func lookup[T models.Document[T]](repo store.Repository[T]) func(context.Context, domain.ID) error {
	return func(ctx context.Context, id domain.ID) error {
		_, err := repo.Get(ctx, id)
		return err
	}
}

// resolve checks every reference concurrently and fails on the first one
// whose target is missing.
func (s *Service) resolve(ctx context.Context, collection string, refs []reference) error {
	if len(refs) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, ref := range refs {
		g.Go(func() error {
			if err := ref.exists(gctx, ref.id); err != nil {
				return s.referenceError(ctx, collection, ref, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// referenceError turns a failed lookup of ref into DanglingReference when the
// target is missing, counting and logging it.
func (s *Service) referenceError(ctx context.Context, collection string, ref reference, err error) error {
	if !errors.Is(err, sentinel.ErrNotFound) {
		return translate(err, ref.label, "resolve")
	}
	if s.metrics != nil {
		s.metrics.IncrementDangling(collection, ref.field)
	}
	s.logger.WarnContext(ctx, "dangling reference rejected",
		"request_id", requestcontext.RequestID(ctx),
		"collection", collection,
		"field", ref.field,
		"target", ref.id.String(),
	)
	return dErrors.DanglingReference(ref.field, ref.id)
}

func (s *Service) subSuccessionRefs(doc models.SubSuccession) []reference {
	refs := []reference{
		{field: "seed_source_id", id: doc.SeedSourceID, label: "seed source", exists: lookup(s.repos.SeedSources)},
		{field: "grower_id", id: doc.GrowerID, label: "grower", exists: lookup(s.repos.Growers)},
	}
	if doc.ParentSubSuccession != nil {
		refs = append(refs, reference{
			field:  "parent_sub_succession",
			id:     *doc.ParentSubSuccession,
			label:  "sub-succession",
			exists: lookup(s.repos.SubSuccessions),
		})
	}
	return refs
}

func (s *Service) treeRefs(doc models.Tree) []reference {
	return []reference{
		{field: "sub_succession_id", id: doc.SubSuccessionID, label: "sub-succession", exists: lookup(s.repos.SubSuccessions)},
	}
}

// validateSubSuccession rejects a sub-succession naming itself as parent.
func validateSubSuccession(id domain.ID, doc models.SubSuccession) error {
	if doc.ParentSubSuccession != nil && !id.IsZero() && *doc.ParentSubSuccession == id {
		return dErrors.InvalidValue("parent_sub_succession", "must not reference the sub-succession itself")
	}
	return nil
}

// keepMergedStatus rejects an edit that moves a merged sub-succession out of
// the merged status while merged_into still points at its target.
func keepMergedStatus(stored, doc models.SubSuccession) error {
	if stored.IsMerged() && doc.Status != models.StatusMerged {
		return dErrors.InvalidValue("status", "must stay "+models.StatusMerged+" while merged_into is set")
	}
	return nil
}

// assignToGrower adds the sub-succession to its grower's
// assigned_sub_successions.
func (s *Service) assignToGrower(ctx context.Context, doc models.SubSuccession) {
	_, err := s.repos.Growers.Amend(ctx, doc.GrowerID,
		store.AddToSet(models.FieldAssignedSubSuccessions, doc.ID))
	s.logBackReference(ctx, err, models.Growers, doc.GrowerID, doc.ID)
}

// addToTreeList adds the tree to its sub-succession's tree_list.
func (s *Service) addToTreeList(ctx context.Context, doc models.Tree) {
	_, err := s.repos.SubSuccessions.Amend(ctx, doc.SubSuccessionID,
		store.AddToSet(models.FieldTreeList, doc.ID))
	s.logBackReference(ctx, err, models.SubSuccessions, doc.SubSuccessionID, doc.ID)
}

// Back-references are best effort: the primary write already happened, so a
// failure here is logged and not returned.
func (s *Service) logBackReference(ctx context.Context, err error, collection string, owner, member domain.ID) {
	if err == nil {
		return
	}
	s.logger.WarnContext(ctx, "failed to record back-reference",
		"request_id", requestcontext.RequestID(ctx),
		"collection", collection,
		"id", owner.String(),
		"member", member.String(),
		"error", err,
	)
}
