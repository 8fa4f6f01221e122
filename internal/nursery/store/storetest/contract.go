// Package storetest holds the behavioural suite every Repository backend must
// pass. Backend tests embed ContractSuite and supply NewBackend.
package storetest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stretchr/testify/suite"

	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/store"
	"longtrees/pkg/domain"
	"longtrees/pkg/platform/sentinel"
)

// Backend is the set of repositories the suite exercises. SeedSource covers
// nested objects and pushed entries, SubSuccession identifier arrays and
// nullable references, Grower optional coordinates and Tree fractional
// numbers.
//
// DropSeedSource, when set, removes a seed source's stored document while
// leaving any listing index behind, the state a concurrent delete leaves
// between reading the index and fetching documents. Backends without a
// separate index leave it nil and the suite deletes normally.
type Backend struct {
	SeedSources    store.Repository[models.SeedSource]
	Growers        store.Repository[models.Grower]
	SubSuccessions store.Repository[models.SubSuccession]
	Trees          store.Repository[models.Tree]

	DropSeedSource func(ctx context.Context, id domain.ID) error
}

// ContractSuite runs the repository contract. NewBackend is called before
// each test and must return empty collections.
type ContractSuite struct {
	suite.Suite
	NewBackend func() Backend

	backend Backend
	ctx     context.Context
}

func (s *ContractSuite) SetupTest() {
	s.Require().NotNil(s.NewBackend, "NewBackend must be set")
	s.backend = s.NewBackend()
	s.ctx = context.Background()
}

func (s *ContractSuite) newSeedSource(number string) models.SeedSource {
	src, err := models.ParseSeedSource(models.Fields{
		"succession_number":   number,
		"germination_rate":    json.Number("0.82"),
		"quantity":            json.Number("50"),
		"date_added":          "2024-03-01",
		"seeds_issued":        json.Number("0"),
		"description":         "coastal lot",
		"geographic_location": "Ridge 4",
		"supplier":            "North Seed Co",
	})
	s.Require().NoError(err)
	return src
}

func (s *ContractSuite) newSubSuccession(number string) models.SubSuccession {
	sub, err := models.ParseSubSuccession(models.Fields{
		"sub_succession_number": number,
		"seed_source_id":        domain.NewID().String(),
		"grower_id":             domain.NewID().String(),
		"created_at":            "2024-03-05",
		"status":                models.StatusActive,
	})
	s.Require().NoError(err)
	return sub
}

func (s *ContractSuite) dropSeedSource(id domain.ID) {
	if s.backend.DropSeedSource != nil {
		s.Require().NoError(s.backend.DropSeedSource(s.ctx, id))
		return
	}
	s.Require().NoError(s.backend.SeedSources.Delete(s.ctx, id))
}

func (s *ContractSuite) count() int {
	docs, err := store.Collect(s.backend.SeedSources.List(s.ctx, store.ListOptions{Limit: 1000}))
	s.Require().NoError(err)
	return len(docs)
}

func (s *ContractSuite) TestCreateAndGet() {
	s.Run("get returns the created document", func() {
		src := s.newSeedSource("SS-001")
		id, err := s.backend.SeedSources.Create(s.ctx, src)
		s.Require().NoError(err)
		s.False(id.IsZero())

		got, err := s.backend.SeedSources.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(src.WithID(id), got)
	})

	s.Run("assigned identifier round-trips through its string form", func() {
		id, err := s.backend.SeedSources.Create(s.ctx, s.newSeedSource("SS-002"))
		s.Require().NoError(err)

		parsed, err := domain.ParseID(id.String())
		s.Require().NoError(err)
		s.Equal(id, parsed)
	})

	s.Run("ignores an identifier already on the document", func() {
		preset := domain.NewID()
		id, err := s.backend.SeedSources.Create(s.ctx, s.newSeedSource("SS-003").WithID(preset))
		s.Require().NoError(err)
		s.NotEqual(preset, id)
	})

	s.Run("nullable references survive storage", func() {
		sub := s.newSubSuccession("SUB-1")
		parent := domain.NewID()
		sub.ParentSubSuccession = &parent

		id, err := s.backend.SubSuccessions.Create(s.ctx, sub)
		s.Require().NoError(err)

		got, err := s.backend.SubSuccessions.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(sub.WithID(id), got)
		s.Nil(got.MergedInto)
	})

	s.Run("grower coordinates keep absent halves absent", func() {
		for name, fields := range map[string]models.Fields{
			"nested": {
				"name":      "A. Rivera",
				"joined_at": "2024-01-10",
				"geographic_coordinates": map[string]any{
					"latitude":  json.Number("-41.2865"),
					"longitude": json.Number("174.7762"),
				},
			},
			"flat latitude only": {
				"name":      "B. Okafor",
				"joined_at": "2024-02-01",
				"latitude":  json.Number("12.5"),
			},
			"none": {
				"name":      "C. Lindqvist",
				"joined_at": "2024-02-15",
			},
		} {
			grower, err := models.ParseGrower(fields)
			s.Require().NoError(err, name)

			id, err := s.backend.Growers.Create(s.ctx, grower)
			s.Require().NoError(err, name)
			got, err := s.backend.Growers.Get(s.ctx, id)
			s.Require().NoError(err, name)
			s.Equal(grower.WithID(id), got, name)
		}
	})

	s.Run("tree height keeps its fraction", func() {
		tree, err := models.ParseTree(models.Fields{
			"species":           "Quercus robur",
			"sub_succession_id": domain.NewID().String(),
			"growth_stage":      "seedling",
			"planted_at":        "2024-04-01",
			"height":            json.Number("0.5"),
			"health_status":     "healthy",
		})
		s.Require().NoError(err)

		id, err := s.backend.Trees.Create(s.ctx, tree)
		s.Require().NoError(err)
		got, err := s.backend.Trees.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(tree.WithID(id), got)
		s.Equal(0.5, got.Height)
	})

	s.Run("unknown identifier is not found", func() {
		_, err := s.backend.SeedSources.Get(s.ctx, domain.NewID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ContractSuite) TestUpdate() {
	s.Run("replaces client fields", func() {
		id, err := s.backend.SeedSources.Create(s.ctx, s.newSeedSource("SS-001"))
		s.Require().NoError(err)

		replacement := s.newSeedSource("SS-001b")
		replacement.Description = ""
		replacement.Quantity = 7

		got, err := s.backend.SeedSources.Update(s.ctx, id, replacement)
		s.Require().NoError(err)
		s.Equal(id, got.ID)
		s.Equal("SS-001b", got.SuccessionNumber)
		s.Equal(7, got.Quantity)
		s.Empty(got.Description, "omitted optional fields are cleared")

		stored, err := s.backend.SeedSources.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(got, stored)
	})

	s.Run("preserves derived fields", func() {
		id, err := s.backend.SeedSources.Create(s.ctx, s.newSeedSource("SS-002"))
		s.Require().NoError(err)
		entry := models.DistributionEntry{
			Date:      domain.DateOf(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
			Recipient: "School garden",
			Quantity:  5,
		}
		_, err = s.backend.SeedSources.Amend(s.ctx, id, store.Push(models.FieldDistributionLog, entry))
		s.Require().NoError(err)

		got, err := s.backend.SeedSources.Update(s.ctx, id, s.newSeedSource("SS-002b"))
		s.Require().NoError(err)
		s.Equal([]models.DistributionEntry{entry}, got.DistributionLog)
	})

	s.Run("unknown identifier is not found and writes nothing", func() {
		before := s.count()
		_, err := s.backend.SeedSources.Update(s.ctx, domain.NewID(), s.newSeedSource("SS-X"))
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.Equal(before, s.count())
	})
}

func (s *ContractSuite) TestDelete() {
	s.Run("second delete is not found", func() {
		keep, err := s.backend.SeedSources.Create(s.ctx, s.newSeedSource("SS-keep"))
		s.Require().NoError(err)
		id, err := s.backend.SeedSources.Create(s.ctx, s.newSeedSource("SS-gone"))
		s.Require().NoError(err)

		s.Require().NoError(s.backend.SeedSources.Delete(s.ctx, id))
		before := s.count()

		err = s.backend.SeedSources.Delete(s.ctx, id)
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.Equal(before, s.count())

		_, err = s.backend.SeedSources.Get(s.ctx, id)
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.backend.SeedSources.Get(s.ctx, keep)
		s.NoError(err)
	})
}

func (s *ContractSuite) TestList() {
	var ids []domain.ID
	for _, n := range []string{"A", "B", "C", "D", "E"} {
		id, err := s.backend.SeedSources.Create(s.ctx, s.newSeedSource(n))
		s.Require().NoError(err)
		ids = append(ids, id)
	}

	s.Run("yields ascending identifiers up to the limit", func() {
		docs, err := store.Collect(s.backend.SeedSources.List(s.ctx, store.ListOptions{Limit: 2}))
		s.Require().NoError(err)
		s.Require().Len(docs, 2)
		s.Equal(ids[0], docs[0].ID)
		s.Equal(ids[1], docs[1].ID)
	})

	s.Run("resumes after a cursor", func() {
		after := ids[1]
		docs, err := store.Collect(s.backend.SeedSources.List(s.ctx, store.ListOptions{Limit: 10, After: &after}))
		s.Require().NoError(err)
		s.Require().Len(docs, 3)
		s.Equal(ids[2], docs[0].ID)
		s.Equal(ids[4], docs[2].ID)
	})

	s.Run("sequence is one-shot", func() {
		seq := s.backend.SeedSources.List(s.ctx, store.ListOptions{})
		first, err := store.Collect(seq)
		s.Require().NoError(err)
		s.Len(first, 5)

		_, err = store.Collect(seq)
		s.ErrorIs(err, sentinel.ErrCursorConsumed)
	})

	s.Run("stopping early is allowed", func() {
		n := 0
		for _, err := range s.backend.SeedSources.List(s.ctx, store.ListOptions{}) {
			s.Require().NoError(err)
			n++
			if n == 2 {
				break
			}
		}
		s.Equal(2, n)
	})
}

// TestListSkipsVanishedDocuments covers a document deleted between reading
// identifiers and fetching documents: the page still fills from later
// documents so callers never mistake it for the end of the collection.
func (s *ContractSuite) TestListSkipsVanishedDocuments() {
	var ids []domain.ID
	for _, n := range []string{"A", "B", "C", "D"} {
		id, err := s.backend.SeedSources.Create(s.ctx, s.newSeedSource(n))
		s.Require().NoError(err)
		ids = append(ids, id)
	}
	s.dropSeedSource(ids[1])

	docs, err := store.Collect(s.backend.SeedSources.List(s.ctx, store.ListOptions{Limit: 2}))
	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	s.Equal(ids[0], docs[0].ID)
	s.Equal(ids[2], docs[1].ID)

	after := ids[0]
	rest, err := store.Collect(s.backend.SeedSources.List(s.ctx, store.ListOptions{Limit: 10, After: &after}))
	s.Require().NoError(err)
	s.Require().Len(rest, 2)
	s.Equal(ids[3], rest[1].ID)
}

func (s *ContractSuite) TestAmend() {
	s.Run("add to set ignores duplicates", func() {
		id, err := s.backend.SubSuccessions.Create(s.ctx, s.newSubSuccession("SUB-1"))
		s.Require().NoError(err)
		tree := domain.NewID()

		_, err = s.backend.SubSuccessions.Amend(s.ctx, id, store.AddToSet(models.FieldTreeList, tree))
		s.Require().NoError(err)
		got, err := s.backend.SubSuccessions.Amend(s.ctx, id, store.AddToSet(models.FieldTreeList, tree))
		s.Require().NoError(err)
		s.Equal([]domain.ID{tree}, got.TreeList)
	})

	s.Run("set applies several fields at once", func() {
		id, err := s.backend.SubSuccessions.Create(s.ctx, s.newSubSuccession("SUB-2"))
		s.Require().NoError(err)
		target := domain.NewID()

		got, err := s.backend.SubSuccessions.Amend(s.ctx, id,
			store.Set(models.FieldMergedInto, target),
			store.Set(models.FieldStatus, models.StatusMerged),
		)
		s.Require().NoError(err)
		s.Require().NotNil(got.MergedInto)
		s.Equal(target, *got.MergedInto)
		s.Equal(models.StatusMerged, got.Status)
	})

	s.Run("update does not clear merged_into", func() {
		id, err := s.backend.SubSuccessions.Create(s.ctx, s.newSubSuccession("SUB-3"))
		s.Require().NoError(err)
		target := domain.NewID()
		_, err = s.backend.SubSuccessions.Amend(s.ctx, id, store.Set(models.FieldMergedInto, target))
		s.Require().NoError(err)

		got, err := s.backend.SubSuccessions.Update(s.ctx, id, s.newSubSuccession("SUB-3b"))
		s.Require().NoError(err)
		s.Require().NotNil(got.MergedInto)
		s.Equal(target, *got.MergedInto)
	})

	s.Run("unknown identifier is not found", func() {
		_, err := s.backend.SubSuccessions.Amend(s.ctx, domain.NewID(), store.AddToSet(models.FieldTreeList, domain.NewID()))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
