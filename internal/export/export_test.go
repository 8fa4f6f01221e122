package export

import (
	"bufio"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/store"
	"longtrees/internal/nursery/store/mocks"
	"longtrees/internal/platform/blob"
	"longtrees/internal/storage"
	"longtrees/pkg/domain"
	"longtrees/pkg/platform/sentinel"
)

var exportTime = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func seedSources(t *testing.T, stores *storage.Stores, n int) []domain.ID {
	t.Helper()
	ids := make([]domain.ID, 0, n)
	for i := range n {
		id, err := stores.SeedSources.Create(context.Background(), models.SeedSource{
			SuccessionNumber: "SS-00" + string(rune('1'+i)),
			GerminationRate:  0.8,
			Quantity:         10,
			DateAdded:        domain.Date{Year: 2024, Month: time.March, Day: 1},
			DistributionLog:  []models.DistributionEntry{},
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestRun_WritesOneObjectPerCollection(t *testing.T) {
	stores := storage.NewInMemory()
	ids := seedSources(t, stores, 5)
	_, err := stores.Growers.Create(context.Background(), models.Grower{Name: "A. Rivera"})
	require.NoError(t, err)

	blobs, err := blob.NewFS(t.TempDir())
	require.NoError(t, err)

	exp := New(stores, blobs, WithPageSize(2), WithClock(func() time.Time { return exportTime }))
	manifest, err := exp.Run(context.Background(), "nightly")
	require.NoError(t, err)

	assert.Equal(t, exportTime, manifest.ExportedAt)
	assert.Equal(t, "memory", manifest.StoreDriver)
	require.Len(t, manifest.Objects, 4)

	counts := map[string]int{}
	for _, o := range manifest.Objects {
		counts[o.Collection] = o.Count
	}
	assert.Equal(t, map[string]int{
		models.SeedSources:    5,
		models.Growers:        1,
		models.SubSuccessions: 0,
		models.Trees:          0,
	}, counts)
	assert.Equal(t, "nightly/20240301T123000Z/seed_sources.jsonl", manifest.Objects[0].Key)

	rc, err := blobs.Get(context.Background(), manifest.Objects[0].Key)
	require.NoError(t, err)
	defer rc.Close()

	var got []domain.ID
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		var s models.SeedSource
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &s))
		got = append(got, s.ID)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, ids, got, "documents are written in identifier order across pages")

	keys, err := blobs.List(context.Background(), "nightly/20240301T123000Z/")
	require.NoError(t, err)
	assert.Contains(t, keys, "nightly/20240301T123000Z/manifest.json")
	assert.Len(t, keys, 5)
}

func TestRun_StoreFailureSkipsManifest(t *testing.T) {
	ctrl := gomock.NewController(t)
	trees := mocks.NewMockRepository[models.Tree](ctrl)
	trees.EXPECT().List(gomock.Any(), gomock.Any()).Return(store.Fail[models.Tree](sentinel.ErrUnavailable))

	stores := storage.NewInMemory()
	stores.Trees = trees

	blobs, err := blob.NewFS(t.TempDir())
	require.NoError(t, err)

	_, err = New(stores, blobs, WithClock(func() time.Time { return exportTime })).Run(context.Background(), "")
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.ErrorContains(t, err, "export trees")

	_, err = blobs.Get(context.Background(), "20240301T123000Z/manifest.json")
	assert.ErrorIs(t, err, blob.ErrNotFound)
}
