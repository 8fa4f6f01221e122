package domain

import (
	"encoding/hex"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	dErrors "longtrees/pkg/domain-errors"
)

// idLength is the length of the canonical identifier form.
const idLength = 24

// ID is the identifier shared by every nursery document. It is a 12-byte
// object id whose canonical form is 24 lowercase hex characters.
//
// IDs are assigned by the store on creation and never change. The zero ID is
// never assigned, but its canonical form still parses, so looking it up
// simply misses.
type ID primitive.ObjectID

// NilID is the zero identifier.
var NilID ID

// NewID returns a fresh identifier. Identifiers are ordered by creation time.
func NewID() ID {
	return ID(primitive.NewObjectID())
}

// ParseID validates the canonical identifier form at a trust boundary.
func ParseID(raw string) (ID, error) {
	return ParseIDField("id", raw)
}

// ParseIDField is ParseID for a named input field, so the error points at the
// field that carried the malformed identifier.
func ParseIDField(field, raw string) (ID, error) {
	if len(raw) != idLength || !isLowerHex(raw) {
		return NilID, dErrors.InvalidIdentifier(field, raw)
	}
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return NilID, dErrors.InvalidIdentifier(field, raw)
	}
	return ID(oid), nil
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// String returns the canonical 24 character form.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether id is the zero identifier. The bson encoder uses it
// for omitempty.
func (id ID) IsZero() bool {
	return id == NilID
}

// ObjectID exposes the underlying object id for driver-level queries.
func (id ID) ObjectID() primitive.ObjectID {
	return primitive.ObjectID(id)
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalBSONValue stores the identifier as a native ObjectId.
func (id ID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(primitive.ObjectID(id))
}

func (id *ID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t != bson.TypeObjectID {
		return fmt.Errorf("decode identifier: unexpected bson type %s", t)
	}
	var oid primitive.ObjectID
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&oid); err != nil {
		return fmt.Errorf("decode identifier: %w", err)
	}
	*id = ID(oid)
	return nil
}
