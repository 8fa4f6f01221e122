package models

import "longtrees/pkg/domain"

// Grower is a person or group raising sub-successions.
// AssignedSubSuccessions is a back-reference maintained when sub-successions
// are written; clients never set it.
type Grower struct {
	ID                     domain.ID   `json:"id" bson:"_id,omitempty"`
	Name                   string      `json:"name" bson:"name"`
	ContactInfo            string      `json:"contact_info" bson:"contact_info"`
	JoinedAt               domain.Date `json:"joined_at" bson:"joined_at"`
	Address                string      `json:"address" bson:"address"`
	Coordinates            Coordinates `json:"geographic_coordinates" bson:"geographic_coordinates"`
	GroupMembership        string      `json:"group_membership" bson:"group_membership"`
	AssignedSubSuccessions []domain.ID `json:"assigned_sub_successions" bson:"assigned_sub_successions"`
}

// Coordinates are optional; each half may be absent on its own.
type Coordinates struct {
	Latitude  *float64 `json:"latitude" bson:"latitude"`
	Longitude *float64 `json:"longitude" bson:"longitude"`
}

func (g Grower) DocumentID() domain.ID { return g.ID }

func (g Grower) WithID(id domain.ID) Grower {
	g.ID = id
	return g
}

func (Grower) Collection() string { return Growers }

func (Grower) DerivedFields() []string { return []string{FieldAssignedSubSuccessions} }

// ParseGrower validates a full grower field set. Coordinates may be nested
// under geographic_coordinates or sent flat.
func ParseGrower(f Fields) (Grower, error) {
	r := newReader(f)
	g := Grower{
		Name:                   r.str("name", true),
		ContactInfo:            r.str("contact_info", false),
		JoinedAt:               r.date("joined_at", true),
		Address:                r.str("address", false),
		GroupMembership:        r.str("group_membership", false),
		AssignedSubSuccessions: []domain.ID{},
	}

	coords := r.f
	if nested := r.f.Sub("geographic_coordinates"); nested != nil {
		coords = nested
	}
	cr := &fieldReader{f: coords, err: r.err}
	g.Coordinates = Coordinates{
		Latitude:  cr.floatIn("latitude", false, -90, 90),
		Longitude: cr.floatIn("longitude", false, -180, 180),
	}
	if cr.err != nil {
		return Grower{}, cr.err
	}
	return g, nil
}
