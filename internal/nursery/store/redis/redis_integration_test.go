//go:build integration

package redis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/store/redis"
	"longtrees/internal/nursery/store/storetest"
	"longtrees/pkg/domain"
	"longtrees/pkg/testutil/containers"
)

func TestRedisContract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)

	suite.Run(t, &storetest.ContractSuite{
		NewBackend: func() storetest.Backend {
			prefix := "test_" + domain.NewID().String()
			t.Cleanup(func() { _ = rc.DeletePrefix(context.Background(), prefix) })
			client := rc.Client.Client
			return storetest.Backend{
				SeedSources:    redis.New[models.SeedSource](client, prefix),
				Growers:        redis.New[models.Grower](client, prefix),
				SubSuccessions: redis.New[models.SubSuccession](client, prefix),
				Trees:          redis.New[models.Tree](client, prefix),
				// Removes the document key only; its index member stays.
				DropSeedSource: func(ctx context.Context, id domain.ID) error {
					return client.Del(ctx, prefix+":"+models.SeedSources+":"+id.String()).Err()
				},
			}
		},
	})
}
