// Package service orchestrates the nursery resources: it validates input,
// resolves reference fields against the other collections, calls the
// repositories and translates store sentinels into domain errors.
//
// The store is the single source of truth. Every mutation is one atomic
// repository call and the service holds no locks; reference checks are
// read-then-write and concurrent updates are last-write-wins.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"longtrees/internal/nursery/metrics"
	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/store"
	dErrors "longtrees/pkg/domain-errors"
	"longtrees/pkg/platform/events"
	"longtrees/pkg/platform/sentinel"
	"longtrees/pkg/requestcontext"
)

const tracerName = "longtrees/internal/nursery/service"

// Default list bounds, used when no WithListLimits option is given.
const (
	DefaultListTimeout = 5 * time.Second
	DefaultMaxPageSize = 500
)

// Publisher receives a change event after every successful write.
type Publisher interface {
	Emit(ctx context.Context, event events.ChangeEvent) error
}

// Repositories are the four stores the service writes to.
type Repositories struct {
	SeedSources    store.Repository[models.SeedSource]
	Growers        store.Repository[models.Grower]
	SubSuccessions store.Repository[models.SubSuccession]
	Trees          store.Repository[models.Tree]
}

// Service exposes one Resource per resource type plus the operations that
// cross resource boundaries (merge and the append operations).
type Service struct {
	repos   Repositories
	logger  *slog.Logger
	metrics *metrics.Metrics
	events  Publisher
	tracer  trace.Tracer

	pageSize    int
	maxPageSize int
	listTimeout time.Duration

	seedSources    *Resource[models.SeedSource]
	growers        *Resource[models.Grower]
	subSuccessions *Resource[models.SubSuccession]
	trees          *Resource[models.Tree]
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithEvents(p Publisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithListLimits sets the default and maximum page size and the deadline of
// one list call. Non-positive values keep the defaults.
func WithListLimits(pageSize, maxPageSize int, timeout time.Duration) Option {
	return func(s *Service) {
		if pageSize > 0 {
			s.pageSize = pageSize
		}
		if maxPageSize > 0 {
			s.maxPageSize = maxPageSize
		}
		if timeout > 0 {
			s.listTimeout = timeout
		}
	}
}

// New constructs a Service over repos.
func New(repos Repositories, opts ...Option) *Service {
	s := &Service{
		repos:       repos,
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
		pageSize:    store.DefaultPageSize,
		maxPageSize: DefaultMaxPageSize,
		listTimeout: DefaultListTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxPageSize < s.pageSize {
		s.maxPageSize = s.pageSize
	}

	s.seedSources = &Resource[models.SeedSource]{
		svc:   s,
		label: "seed source",
		repo:  repos.SeedSources,
		parse: models.ParseSeedSource,
	}
	s.growers = &Resource[models.Grower]{
		svc:   s,
		label: "grower",
		repo:  repos.Growers,
		parse: models.ParseGrower,
	}
	s.subSuccessions = &Resource[models.SubSuccession]{
		svc:      s,
		label:    "sub-succession",
		repo:     repos.SubSuccessions,
		parse:    models.ParseSubSuccession,
		validate:    validateSubSuccession,
		refs:        s.subSuccessionRefs,
		checkStored: keepMergedStatus,
		linkBack:    s.assignToGrower,
	}
	s.trees = &Resource[models.Tree]{
		svc:      s,
		label:    "tree",
		repo:     repos.Trees,
		parse:    models.ParseTree,
		refs:     s.treeRefs,
		linkBack: s.addToTreeList,
	}
	return s
}

func (s *Service) SeedSources() *Resource[models.SeedSource] { return s.seedSources }

func (s *Service) Growers() *Resource[models.Grower] { return s.growers }

func (s *Service) SubSuccessions() *Resource[models.SubSuccession] { return s.subSuccessions }

func (s *Service) Trees() *Resource[models.Tree] { return s.trees }

// startSpan opens a span for one operation on collection. The returned end
// function records err on the span and the operation duration.
func (s *Service) startSpan(ctx context.Context, collection, operation string) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "nursery."+operation,
		trace.WithAttributes(
			attribute.String("nursery.collection", collection),
			attribute.String("request.id", requestcontext.RequestID(ctx)),
		))
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(*errp)))
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObserveOperation(collection, operation, start)
		}
	}
}

// recordWrite logs, counts and publishes a successful write. A failed event
// publish is logged and never fails the write.
func (s *Service) recordWrite(ctx context.Context, collection string, action events.Action, id string) {
	requestID := requestcontext.RequestID(ctx)
	s.logger.InfoContext(ctx, collection+" "+string(action),
		"request_id", requestID,
		"collection", collection,
		"id", id,
	)
	if s.metrics != nil {
		s.metrics.IncrementWrite(collection, string(action))
	}
	if s.events == nil {
		return
	}
	err := s.events.Emit(ctx, events.ChangeEvent{
		Collection: collection,
		Action:     action,
		ID:         id,
		RequestID:  requestID,
		Timestamp:  requestcontext.Now(ctx).UTC(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish change event",
			"request_id", requestID,
			"collection", collection,
			"id", id,
			"error", err,
		)
	}
}

// translate maps store sentinels to coded errors. Coded errors pass through.
func translate(err error, label, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, label+" not found")
	case errors.Is(err, sentinel.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+op+" "+label)
	}
}
