package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longtrees/internal/nursery/models"
	"longtrees/internal/platform/config"
	"longtrees/internal/storage"
)

func TestOpenEvents(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("disabled", func(t *testing.T) {
		p, err := openEvents(context.Background(), config.Events{Driver: config.EventsNone}, log, nil)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := openEvents(context.Background(), config.Events{Driver: "nats"}, log, nil)
		require.Error(t, err)
	})

	t.Run("memory driver feeds the service", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		p, err := openEvents(context.Background(), config.Events{Driver: config.EventsMemory, Buffer: 8}, log, reg)
		require.NoError(t, err)
		require.NotNil(t, p)

		svc := newService(storage.NewInMemory(), config.Store{PageSize: 10, MaxPageSize: 20}, log, reg, p)
		_, err = svc.Growers().Create(context.Background(), models.Fields{"name": "A. Rivera", "joined_at": "2024-01-10"})
		require.NoError(t, err)
		require.NoError(t, p.Close())

		families, err := reg.Gather()
		require.NoError(t, err)
		names := map[string]bool{}
		for _, f := range families {
			names[f.GetName()] = true
		}
		assert.True(t, names["longtrees_events_published_total"])
		assert.True(t, names["longtrees_resource_writes_total"])
	})
}
