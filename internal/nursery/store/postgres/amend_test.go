package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/store"
)

func TestAmendStatement(t *testing.T) {
	table := NewNamed[models.Tree](nil, "trees")

	t.Run("push appends to the array", func(t *testing.T) {
		stmt, err := table.amendStatement(store.OpPush)
		require.NoError(t, err)
		assert.Contains(t, stmt, `UPDATE "trees" SET doc = jsonb_set(doc, $2::text[]`)
		assert.Contains(t, stmt, "|| jsonb_build_array($3::jsonb)")
		assert.Contains(t, stmt, "RETURNING doc")
	})

	t.Run("add to set checks containment", func(t *testing.T) {
		stmt, err := table.amendStatement(store.OpAddToSet)
		require.NoError(t, err)
		assert.Contains(t, stmt, "@> jsonb_build_array($3::jsonb)")
	})

	t.Run("unknown op is rejected", func(t *testing.T) {
		_, err := table.amendStatement(store.AmendOp(42))
		assert.Error(t, err)
	})
}
