package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/store"
	"longtrees/pkg/domain"
)

func keys(d bson.D) []string {
	out := make([]string, 0, len(d))
	for _, e := range d {
		out = append(out, e.Key)
	}
	return out
}

func TestClientFields_DropsIDAndDerived(t *testing.T) {
	sub := models.SubSuccession{
		ID:                  domain.NewID(),
		SubSuccessionNumber: "SUB-1",
		Status:              models.StatusActive,
		TreeList:            []domain.ID{domain.NewID()},
	}
	patch, err := clientFields(sub, sub.DerivedFields())
	require.NoError(t, err)

	got := keys(patch)
	assert.NotContains(t, got, "_id")
	assert.NotContains(t, got, models.FieldTreeList)
	assert.NotContains(t, got, models.FieldMergedInto)
	assert.Contains(t, got, "sub_succession_number")
	assert.Contains(t, got, "parent_sub_succession", "nullable client fields are still set")
}

func TestUpdateDocument_GroupsByOperator(t *testing.T) {
	target := domain.NewID()
	update, err := updateDocument([]store.Amendment{
		store.Set(models.FieldMergedInto, target),
		store.AddToSet(models.FieldTreeList, domain.NewID()),
		store.Set(models.FieldStatus, models.StatusMerged),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"$addToSet", "$set"}, keys(update))
	set := update[1].Value.(bson.D)
	assert.Equal(t, []string{models.FieldMergedInto, models.FieldStatus}, keys(set))
}

func TestUpdateDocument_Empty(t *testing.T) {
	_, err := updateDocument(nil)
	assert.Error(t, err)
}
