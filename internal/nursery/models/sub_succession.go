package models

import "longtrees/pkg/domain"

// Recommended sub-succession statuses. Status is an open string; other values
// are stored as given.
const (
	StatusActive   = "active"
	StatusMerged   = "merged"
	StatusComplete = "complete"
)

// SubSuccession is a batch of seed from one SeedSource assigned to one Grower.
//
// Invariants:
//   - SeedSourceID and GrowerID name existing documents when written
//   - ParentSubSuccession, when set, names another existing sub-succession
//   - MergedInto is only set by a merge, never by a client update
//   - TreeList is a back-reference maintained when trees are written
type SubSuccession struct {
	ID                  domain.ID   `json:"id" bson:"_id,omitempty"`
	SubSuccessionNumber string      `json:"sub_succession_number" bson:"sub_succession_number"`
	SeedSourceID        domain.ID   `json:"seed_source_id" bson:"seed_source_id"`
	GrowerID            domain.ID   `json:"grower_id" bson:"grower_id"`
	CreatedAt           domain.Date `json:"created_at" bson:"created_at"`
	Status              string      `json:"status" bson:"status"`
	MergedInto          *domain.ID  `json:"merged_into" bson:"merged_into"`
	ParentSubSuccession *domain.ID  `json:"parent_sub_succession" bson:"parent_sub_succession"`
	ExpectedOutcome     string      `json:"expected_outcome" bson:"expected_outcome"`
	TreeList            []domain.ID `json:"tree_list" bson:"tree_list"`
}

func (s SubSuccession) DocumentID() domain.ID { return s.ID }

func (s SubSuccession) WithID(id domain.ID) SubSuccession {
	s.ID = id
	return s
}

func (SubSuccession) Collection() string { return SubSuccessions }

func (SubSuccession) DerivedFields() []string {
	return []string{FieldTreeList, FieldMergedInto}
}

// IsMerged reports whether the sub-succession has been merged into another.
func (s SubSuccession) IsMerged() bool {
	return s.MergedInto != nil
}

// ParseSubSuccession validates a full sub-succession field set. Reference
// fields are checked for shape only; resolving them is the service's job.
func ParseSubSuccession(f Fields) (SubSuccession, error) {
	r := newReader(f)
	s := SubSuccession{
		SubSuccessionNumber: r.str("sub_succession_number", true),
		SeedSourceID:        r.requiredID("seed_source_id"),
		GrowerID:            r.requiredID("grower_id"),
		CreatedAt:           r.date("created_at", true),
		Status:              r.str("status", true),
		ParentSubSuccession: r.id("parent_sub_succession", false),
		ExpectedOutcome:     r.str("expected_outcome", false),
		TreeList:            []domain.ID{},
	}
	if r.err != nil {
		return SubSuccession{}, r.err
	}
	return s, nil
}
