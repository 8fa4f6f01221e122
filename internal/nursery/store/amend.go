package store

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
)

// AmendOp is the kind of change an Amendment makes.
type AmendOp int

const (
	// OpPush appends Value to the array Field.
	OpPush AmendOp = iota
	// OpAddToSet appends Value to the array Field unless an equal element is
	// already present.
	OpAddToSet
	// OpSet replaces Field with Value.
	OpSet
)

func (o AmendOp) String() string {
	switch o {
	case OpPush:
		return "push"
	case OpAddToSet:
		return "add_to_set"
	case OpSet:
		return "set"
	default:
		return fmt.Sprintf("AmendOp(%d)", int(o))
	}
}

// Amendment is a targeted change to one field of a stored document. Field is
// the JSON/BSON field name.
type Amendment struct {
	Op    AmendOp
	Field string
	Value any
}

func Push(field string, value any) Amendment {
	return Amendment{Op: OpPush, Field: field, Value: value}
}

func AddToSet(field string, value any) Amendment {
	return Amendment{Op: OpAddToSet, Field: field, Value: value}
}

func Set(field string, value any) Amendment {
	return Amendment{Op: OpSet, Field: field, Value: value}
}

// JSONValue returns the amendment value in its JSON form.
func (a Amendment) JSONValue() ([]byte, error) {
	raw, err := json.Marshal(a.Value)
	if err != nil {
		return nil, fmt.Errorf("encode %s value for %s: %w", a.Op, a.Field, err)
	}
	return raw, nil
}

// ApplyJSON applies amendments to a document decoded into a generic JSON map.
// Backends that hold documents as JSON text (memory, redis) use it. Values are
// normalised through JSON so set membership compares stored forms.
func ApplyJSON(doc map[string]any, amendments ...Amendment) error {
	for _, a := range amendments {
		raw, err := a.JSONValue()
		if err != nil {
			return err
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("decode %s value for %s: %w", a.Op, a.Field, err)
		}

		switch a.Op {
		case OpSet:
			doc[a.Field] = value
		case OpPush, OpAddToSet:
			var list []any
			switch existing := doc[a.Field].(type) {
			case nil:
			case []any:
				list = existing
			default:
				return fmt.Errorf("%s on %s: field is not an array", a.Op, a.Field)
			}
			if a.Op == OpAddToSet && slices.ContainsFunc(list, func(v any) bool { return reflect.DeepEqual(v, value) }) {
				continue
			}
			doc[a.Field] = append(list, value)
		default:
			return fmt.Errorf("unsupported amendment %s", a.Op)
		}
	}
	return nil
}

// ClientPatch returns the client-owned fields of doc as a JSON map: the
// document without its identifier and derived fields. Update merges this
// patch over the stored document.
func ClientPatch(doc any, derived []string) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var patch map[string]any
	if err := json.Unmarshal(raw, &patch); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	delete(patch, "id")
	for _, field := range derived {
		delete(patch, field)
	}
	return patch, nil
}
