package models

import "longtrees/pkg/domain"

// Tree is a single planted tree belonging to a sub-succession.
type Tree struct {
	ID                      domain.ID     `json:"id" bson:"_id,omitempty"`
	Species                 string        `json:"species" bson:"species"`
	SubSuccessionID         domain.ID     `json:"sub_succession_id" bson:"sub_succession_id"`
	GrowthStage             string        `json:"growth_stage" bson:"growth_stage"`
	PlantedAt               domain.Date   `json:"planted_at" bson:"planted_at"`
	Height                  float64       `json:"height" bson:"height"`
	HealthStatus            string        `json:"health_status" bson:"health_status"`
	YieldData               string        `json:"yield_data" bson:"yield_data"`
	EnvironmentalMonitoring []Observation `json:"environmental_monitoring" bson:"environmental_monitoring"`
	Notes                   string        `json:"notes" bson:"notes"`
}

// Observation is one environmental monitoring record.
type Observation struct {
	ObservedAt domain.Date `json:"observed_at" bson:"observed_at"`
	Metric     string      `json:"metric" bson:"metric"`
	Value      float64     `json:"value" bson:"value"`
	Unit       string      `json:"unit" bson:"unit"`
	Notes      string      `json:"notes" bson:"notes"`
}

func (t Tree) DocumentID() domain.ID { return t.ID }

func (t Tree) WithID(id domain.ID) Tree {
	t.ID = id
	return t
}

func (Tree) Collection() string { return Trees }

func (Tree) DerivedFields() []string { return []string{FieldEnvironmentalMonitoring} }

// ParseTree validates a full tree field set.
func ParseTree(f Fields) (Tree, error) {
	r := newReader(f)
	t := Tree{
		Species:                 r.str("species", true),
		SubSuccessionID:         r.requiredID("sub_succession_id"),
		GrowthStage:             r.str("growth_stage", true),
		PlantedAt:               r.date("planted_at", true),
		Height:                  r.nonNegativeFloat("height", true),
		HealthStatus:            r.str("health_status", true),
		YieldData:               r.str("yield_data", false),
		Notes:                   r.str("notes", false),
		EnvironmentalMonitoring: []Observation{},
	}
	if r.err != nil {
		return Tree{}, r.err
	}
	return t, nil
}

// ParseObservation validates one environmental monitoring record.
func ParseObservation(f Fields) (Observation, error) {
	r := newReader(f)
	o := Observation{
		ObservedAt: r.date("observed_at", true),
		Metric:     r.str("metric", true),
		Unit:       r.str("unit", false),
		Notes:      r.str("notes", false),
	}
	if v := r.float("value", true); v != nil {
		o.Value = *v
	}
	if r.err != nil {
		return Observation{}, r.err
	}
	return o, nil
}
