// Package storage opens the configured store backend and hands out one
// repository per resource type.
package storage

import (
	"context"
	"errors"
	"fmt"

	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/store"
	"longtrees/internal/nursery/store/memory"
	mongostore "longtrees/internal/nursery/store/mongo"
	pgstore "longtrees/internal/nursery/store/postgres"
	redisstore "longtrees/internal/nursery/store/redis"
	"longtrees/internal/platform/config"
	"longtrees/internal/platform/mongo"
	"longtrees/internal/platform/postgres"
	"longtrees/internal/platform/redis"
)

// Stores are interface-driven so the service never knows which backend it
// talks to. The client behind them is constructed here at startup and closed
// by Close at shutdown.
type Stores struct {
	Driver         string
	SeedSources    store.Repository[models.SeedSource]
	Growers        store.Repository[models.Grower]
	SubSuccessions store.Repository[models.SubSuccession]
	Trees          store.Repository[models.Tree]

	pinger store.Pinger
	close  func(context.Context) error
}

// Open connects the configured backend. For postgres it also creates the
// tables.
func Open(ctx context.Context, cfg config.Store) (*Stores, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return NewInMemory(), nil
	case config.DriverMongo:
		return openMongo(ctx, cfg.Mongo)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg.Postgres)
	case config.DriverRedis:
		return openRedis(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// NewInMemory returns process-local stores. Tests and the default config use it.
func NewInMemory() *Stores {
	seeds := memory.New[models.SeedSource]()
	return &Stores{
		Driver:         config.DriverMemory,
		SeedSources:    seeds,
		Growers:        memory.New[models.Grower](),
		SubSuccessions: memory.New[models.SubSuccession](),
		Trees:          memory.New[models.Tree](),
		pinger:         seeds,
		close:          func(context.Context) error { return nil },
	}
}

func openMongo(ctx context.Context, cfg config.MongoConfig) (*Stores, error) {
	client, err := mongo.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	seeds := mongostore.New[models.SeedSource](client.DB)
	return &Stores{
		Driver:         config.DriverMongo,
		SeedSources:    seeds,
		Growers:        mongostore.New[models.Grower](client.DB),
		SubSuccessions: mongostore.New[models.SubSuccession](client.DB),
		Trees:          mongostore.New[models.Tree](client.DB),
		pinger:         seeds,
		close:          client.Close,
	}, nil
}

func openPostgres(ctx context.Context, cfg config.PostgresConfig) (*Stores, error) {
	client, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	seeds := pgstore.New[models.SeedSource](client.Pool)
	growers := pgstore.New[models.Grower](client.Pool)
	subs := pgstore.New[models.SubSuccession](client.Pool)
	trees := pgstore.New[models.Tree](client.Pool)

	for _, t := range []interface{ EnsureSchema(context.Context) error }{seeds, growers, subs, trees} {
		if err := t.EnsureSchema(ctx); err != nil {
			client.Close()
			return nil, err
		}
	}
	return &Stores{
		Driver:         config.DriverPostgres,
		SeedSources:    seeds,
		Growers:        growers,
		SubSuccessions: subs,
		Trees:          trees,
		pinger:         seeds,
		close: func(context.Context) error {
			client.Close()
			return nil
		},
	}, nil
}

func openRedis(ctx context.Context, cfg config.RedisConfig) (*Stores, error) {
	client, err := redis.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	seeds := redisstore.New[models.SeedSource](client.Client, cfg.KeyPrefix)
	return &Stores{
		Driver:         config.DriverRedis,
		SeedSources:    seeds,
		Growers:        redisstore.New[models.Grower](client.Client, cfg.KeyPrefix),
		SubSuccessions: redisstore.New[models.SubSuccession](client.Client, cfg.KeyPrefix),
		Trees:          redisstore.New[models.Tree](client.Client, cfg.KeyPrefix),
		pinger:         seeds,
		close: func(context.Context) error {
			return client.Close()
		},
	}, nil
}

// Ping reports whether the backend is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.pinger == nil {
		return errors.New("stores not opened")
	}
	return s.pinger.Ping(ctx)
}

// Close releases the backend client.
func (s *Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}
