package models

import "longtrees/pkg/domain"

// SeedSource is a lot of seed received from a supplier.
//
// Invariants:
//   - SuccessionNumber is non-empty
//   - GerminationRate is in [0, 1]
//   - Quantity and SeedsIssued are non-negative
//   - DistributionLog is append-only and never replaced by an update
type SeedSource struct {
	ID                         domain.ID           `json:"id" bson:"_id,omitempty"`
	SuccessionNumber           string              `json:"succession_number" bson:"succession_number"`
	Description                string              `json:"description" bson:"description"`
	GerminationRate            float64             `json:"germination_rate" bson:"germination_rate"`
	Quantity                   int                 `json:"quantity" bson:"quantity"`
	ScarificationInstructions  string              `json:"scarification_instructions" bson:"scarification_instructions"`
	StratificationInstructions string              `json:"stratification_instructions" bson:"stratification_instructions"`
	DateAdded                  domain.Date         `json:"date_added" bson:"date_added"`
	SeedsIssued                int                 `json:"seeds_issued" bson:"seeds_issued"`
	Origin                     Origin              `json:"origin" bson:"origin"`
	ViabilityDuration          string              `json:"viability_duration" bson:"viability_duration"`
	DistributionLog            []DistributionEntry `json:"distribution_log" bson:"distribution_log"`
}

// Origin is where a seed lot came from. Stored inline.
type Origin struct {
	GeographicLocation string `json:"geographic_location" bson:"geographic_location"`
	Supplier           string `json:"supplier" bson:"supplier"`
}

// DistributionEntry records seed handed out from a lot.
type DistributionEntry struct {
	Date      domain.Date `json:"date" bson:"date"`
	Recipient string      `json:"recipient" bson:"recipient"`
	Quantity  int         `json:"quantity" bson:"quantity"`
	Notes     string      `json:"notes" bson:"notes"`
}

func (s SeedSource) DocumentID() domain.ID { return s.ID }

func (s SeedSource) WithID(id domain.ID) SeedSource {
	s.ID = id
	return s
}

func (SeedSource) Collection() string { return SeedSources }

func (SeedSource) DerivedFields() []string { return []string{FieldDistributionLog} }

// ParseSeedSource validates a full seed source field set. Origin may be sent
// as a nested object or as flat geographic_location and supplier fields.
func ParseSeedSource(f Fields) (SeedSource, error) {
	r := newReader(f)
	s := SeedSource{
		SuccessionNumber:           r.str("succession_number", true),
		Description:                r.str("description", false),
		ScarificationInstructions:  r.str("scarification_instructions", false),
		StratificationInstructions: r.str("stratification_instructions", false),
		ViabilityDuration:          r.str("viability_duration", false),
		DistributionLog:            []DistributionEntry{},
	}
	if rate := r.floatIn("germination_rate", true, 0, 1); rate != nil {
		s.GerminationRate = *rate
	}
	s.Quantity = r.nonNegativeInt("quantity", true)
	s.DateAdded = r.date("date_added", true)
	s.SeedsIssued = r.nonNegativeInt("seeds_issued", true)

	origin := r.f
	if nested := r.f.Sub("origin"); nested != nil {
		origin = nested
	}
	or := &fieldReader{f: origin, err: r.err}
	s.Origin = Origin{
		GeographicLocation: or.str("geographic_location", false),
		Supplier:           or.str("supplier", false),
	}
	if or.err != nil {
		return SeedSource{}, or.err
	}
	return s, nil
}

// ParseDistributionEntry validates one distribution log entry.
func ParseDistributionEntry(f Fields) (DistributionEntry, error) {
	r := newReader(f)
	e := DistributionEntry{
		Date:      r.date("date", true),
		Recipient: r.str("recipient", true),
		Quantity:  r.positiveInt("quantity", true),
		Notes:     r.str("notes", false),
	}
	if r.err != nil {
		return DistributionEntry{}, r.err
	}
	return e, nil
}
