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

// Merge marks the source sub-succession as merged into the target. Both must
// exist and differ, and following merged_into from the target must not lead
// back to the source.
func (s *Service) Merge(ctx context.Context, sourceID, targetID domain.ID) (merged models.SubSuccession, err error) {
	ctx, end := s.startSpan(ctx, models.SubSuccessions, "merge")
	defer end(&err)

	if sourceID == targetID {
		return models.SubSuccession{}, dErrors.New(dErrors.CodeSelfMerge, "a sub-succession cannot be merged into itself")
	}
	if _, err := s.repos.SubSuccessions.Get(ctx, sourceID); err != nil {
		return models.SubSuccession{}, translate(err, "sub-succession", "load")
	}
	target, err := s.repos.SubSuccessions.Get(ctx, targetID)
	if err != nil {
		ref := reference{field: "target_id", id: targetID, label: "sub-succession"}
		return models.SubSuccession{}, s.referenceError(ctx, models.SubSuccessions, ref, err)
	}
	if err := s.checkMergeChain(ctx, sourceID, target); err != nil {
		return models.SubSuccession{}, err
	}

	merged, err = s.repos.SubSuccessions.Amend(ctx, sourceID,
		store.Set(models.FieldMergedInto, targetID),
		store.Set(models.FieldStatus, models.StatusMerged),
	)
	if err != nil {
		return models.SubSuccession{}, translate(err, "sub-succession", "merge")
	}
	s.recordWrite(ctx, models.SubSuccessions, events.ActionMerged, sourceID.String())
	return merged, nil
}

// checkMergeChain walks merged_into from target. Reaching source would close
// a cycle. The walk ends at an unmerged or deleted sub-succession, or at a
// loop left behind by concurrent merges.
func (s *Service) checkMergeChain(ctx context.Context, sourceID domain.ID, target models.SubSuccession) error {
	seen := map[domain.ID]bool{target.ID: true}
	current := target
	for current.MergedInto != nil {
		next := *current.MergedInto
		if next == sourceID {
			return dErrors.InvalidValue("target_id", "is already merged, directly or through others, into the source sub-succession")
		}
		if seen[next] {
			return nil
		}
		seen[next] = true

		var err error
		current, err = s.repos.SubSuccessions.Get(ctx, next)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return translate(err, "sub-succession", "load")
		}
	}
	return nil
}

// AppendDistribution appends one entry to a seed source's distribution log.
func (s *Service) AppendDistribution(ctx context.Context, id domain.ID, fields models.Fields) (doc models.SeedSource, err error) {
	ctx, end := s.startSpan(ctx, models.SeedSources, "append_distribution")
	defer end(&err)

	entry, err := models.ParseDistributionEntry(fields)
	if err != nil {
		return models.SeedSource{}, err
	}
	doc, err = s.repos.SeedSources.Amend(ctx, id, store.Push(models.FieldDistributionLog, entry))
	if err != nil {
		return models.SeedSource{}, translate(err, "seed source", "append to")
	}
	s.recordWrite(ctx, models.SeedSources, events.ActionAppended, id.String())
	return doc, nil
}

// RecordObservation appends one environmental monitoring record to a tree.
func (s *Service) RecordObservation(ctx context.Context, id domain.ID, fields models.Fields) (doc models.Tree, err error) {
	ctx, end := s.startSpan(ctx, models.Trees, "record_observation")
	defer end(&err)

	obs, err := models.ParseObservation(fields)
	if err != nil {
		return models.Tree{}, err
	}
	doc, err = s.repos.Trees.Amend(ctx, id, store.Push(models.FieldEnvironmentalMonitoring, obs))
	if err != nil {
		return models.Tree{}, translate(err, "tree", "append to")
	}
	s.recordWrite(ctx, models.Trees, events.ActionAppended, id.String())
	return doc, nil
}
