//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/store/postgres"
	"longtrees/internal/nursery/store/storetest"
	"longtrees/pkg/domain"
	"longtrees/pkg/testutil/containers"
)

func TestPostgresContract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.GetManager().GetPostgres(t)
	ctx := context.Background()

	suite.Run(t, &storetest.ContractSuite{
		NewBackend: func() storetest.Backend {
			suffix := "_" + domain.NewID().String()
			seeds := postgres.NewNamed[models.SeedSource](pg.Pool, models.SeedSources+suffix)
			growers := postgres.NewNamed[models.Grower](pg.Pool, models.Growers+suffix)
			subs := postgres.NewNamed[models.SubSuccession](pg.Pool, models.SubSuccessions+suffix)
			trees := postgres.NewNamed[models.Tree](pg.Pool, models.Trees+suffix)
			require.NoError(t, seeds.EnsureSchema(ctx))
			require.NoError(t, growers.EnsureSchema(ctx))
			require.NoError(t, subs.EnsureSchema(ctx))
			require.NoError(t, trees.EnsureSchema(ctx))
			return storetest.Backend{SeedSources: seeds, Growers: growers, SubSuccessions: subs, Trees: trees}
		},
	})
}
