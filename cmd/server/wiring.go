package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	nurserymetrics "longtrees/internal/nursery/metrics"
	"longtrees/internal/nursery/service"
	"longtrees/internal/platform/config"
	"longtrees/internal/storage"
	"longtrees/pkg/platform/circuit"
	"longtrees/pkg/platform/events"
	"longtrees/pkg/platform/events/kafka"
	"longtrees/pkg/platform/events/memory"
)

// openEvents builds the change event publisher for the configured driver.
// It returns nil when events are disabled.
func openEvents(ctx context.Context, cfg config.Events, log *slog.Logger, reg prometheus.Registerer) (*events.Publisher, error) {
	var sink events.Sink
	switch cfg.Driver {
	case config.EventsNone, "":
		return nil, nil
	case config.EventsMemory:
		sink = memory.NewSink()
	case config.EventsKafka:
		k, err := kafka.New(ctx, kafka.Config{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			ClientID: "longtrees",
		})
		if err != nil {
			return nil, fmt.Errorf("connect kafka: %w", err)
		}
		sink = k
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}

	breaker := circuit.New("events",
		circuit.WithFailureThreshold(cfg.BreakerThreshold),
		circuit.WithCooldown(cfg.BreakerCooldown),
	)
	return events.NewPublisher(sink,
		events.WithAsyncBuffer(cfg.Buffer),
		events.WithBreaker(breaker),
		events.WithMetrics(events.NewMetrics(reg)),
		events.WithLogger(log),
	), nil
}

func newService(stores *storage.Stores, cfg config.Store, log *slog.Logger, reg prometheus.Registerer, publisher *events.Publisher) *service.Service {
	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(nurserymetrics.New(reg)),
		service.WithListLimits(cfg.PageSize, cfg.MaxPageSize, cfg.ListTimeout),
	}
	if publisher != nil {
		opts = append(opts, service.WithEvents(publisher))
	}
	return service.New(service.Repositories{
		SeedSources:    stores.SeedSources,
		Growers:        stores.Growers,
		SubSuccessions: stores.SubSuccessions,
		Trees:          stores.Trees,
	}, opts...)
}
