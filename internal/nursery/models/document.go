package models

import "longtrees/pkg/domain"

// Document is implemented by the four resource types. T is the implementing
// type itself, which lets generic stores hand back typed values.
//
// Collection and DerivedFields must work on the zero value: stores call them
// before any document has been loaded.
type Document[T any] interface {
	DocumentID() domain.ID
	WithID(domain.ID) T
	// Collection is the plural name used for the store collection and the
	// URL path.
	Collection() string
	// DerivedFields names the fields a full replace update never touches.
	// Only amendments modify them.
	DerivedFields() []string
}

// ParseFunc maps an untyped field mapping to a validated document.
type ParseFunc[T any] func(Fields) (T, error)

// Collection names.
const (
	SeedSources    = "seed_sources"
	Growers        = "growers"
	SubSuccessions = "sub_successions"
	Trees          = "trees"
)

// Derived field names.
const (
	FieldDistributionLog         = "distribution_log"
	FieldAssignedSubSuccessions  = "assigned_sub_successions"
	FieldTreeList                = "tree_list"
	FieldMergedInto              = "merged_into"
	FieldStatus                  = "status"
	FieldEnvironmentalMonitoring = "environmental_monitoring"
)

// Collections lists every collection in dependency order.
func Collections() []string {
	return []string{SeedSources, Growers, SubSuccessions, Trees}
}
