package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	dErrors "longtrees/pkg/domain-errors"
)

// TestParseID_Invariants validates the parsing invariant:
// "IDs are canonical 24 character lowercase hex"
func TestParseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidIdentifier))
	})

	t.Run("rejects short hex", func(t *testing.T) {
		_, err := ParseID("65f1c0ffee")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidIdentifier))
	})

	t.Run("rejects uppercase hex", func(t *testing.T) {
		_, err := ParseID("65F1C0FFEE00000000000001")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidIdentifier))
	})

	t.Run("accepts the all-zero canonical form", func(t *testing.T) {
		id, err := ParseID(strings.Repeat("0", 24))
		require.NoError(t, err)
		assert.True(t, id.IsZero())
		assert.Equal(t, strings.Repeat("0", 24), id.String())
	})

	t.Run("accepts generated id", func(t *testing.T) {
		generated := NewID()
		id, err := ParseID(generated.String())
		require.NoError(t, err)
		assert.Equal(t, generated, id)
	})
}

func TestParseIDField_ReportsField(t *testing.T) {
	_, err := ParseIDField("seed_source_id", "nope")
	require.Error(t, err)

	de, ok := dErrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "seed_source_id", de.Field)
	assert.Equal(t, "nope", de.Value)
}

// TestParseID_SecurityInvariants validates that path segments carrying attack
// payloads are rejected before they reach a store query.
func TestParseID_SecurityInvariants(t *testing.T) {
	valid := NewID().String()

	tests := []struct {
		name  string
		input string
	}{
		{"mongo operator", `{"$ne":null}`},
		{"SQL injection", "'; DROP TABLE trees;--"},
		{"path traversal", "../../etc/passwd"},
		{"null byte suffix", valid[:23] + "\x00"},
		{"oversized input", strings.Repeat("a", 10000)},
		{"zero-width space", valid[:22] + "​"},
		{"leading whitespace", " " + valid[:23]},
		{"trailing newline", valid[:23] + "\n"},
		{"redis key glob", valid[:23] + "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseID(tt.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidIdentifier))
		})
	}
}

func TestID_Ordering(t *testing.T) {
	first := NewID()
	second := NewID()
	assert.Less(t, first.String(), second.String(), "ids created later sort after earlier ones")
}

func TestID_JSON(t *testing.T) {
	type doc struct {
		ID     ID  `json:"id"`
		Parent *ID `json:"parent,omitempty"`
	}
	id := NewID()

	out, err := json.Marshal(doc{ID: id})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+id.String()+`"}`, string(out))

	var decoded doc
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, id, decoded.ID)
	assert.Nil(t, decoded.Parent)

	err = json.Unmarshal([]byte(`{"id":"not-an-id"}`), &decoded)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidIdentifier))
}

func TestID_BSONStoresObjectID(t *testing.T) {
	type doc struct {
		ID ID `bson:"_id,omitempty"`
	}
	id := NewID()

	raw, err := bson.Marshal(doc{ID: id})
	require.NoError(t, err)

	value := bson.Raw(raw).Lookup("_id")
	assert.Equal(t, bson.TypeObjectID, value.Type)
	assert.Equal(t, id.ObjectID(), value.ObjectID())

	var decoded doc
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, id, decoded.ID)

	empty, err := bson.Marshal(doc{})
	require.NoError(t, err)
	_, lookupErr := bson.Raw(empty).LookupErr("_id")
	assert.Error(t, lookupErr, "zero id is omitted")
}

func TestParseDate(t *testing.T) {
	t.Run("accepts calendar date", func(t *testing.T) {
		d, err := ParseDate("planted_at", "2024-03-01")
		require.NoError(t, err)
		assert.Equal(t, Date{Year: 2024, Month: time.March, Day: 1}, d)
		assert.Equal(t, "2024-03-01", d.String())
	})

	for _, raw := range []string{"", "2024-3-1", "2024-02-30", "01/03/2024", "2024-03-01T00:00:00Z"} {
		t.Run("rejects "+raw, func(t *testing.T) {
			_, err := ParseDate("planted_at", raw)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidDate))
		})
	}
}

func TestDate_BSON(t *testing.T) {
	type doc struct {
		On Date `bson:"on"`
	}
	in := doc{On: Date{Year: 2024, Month: time.January, Day: 10}}

	raw, err := bson.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", bson.Raw(raw).Lookup("on").StringValue())

	var out doc
	require.NoError(t, bson.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}
