// Package handler exposes the nursery resources over HTTP. Every resource
// gets the same route set; create and edit accept JSON or form bodies.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/service"
	"longtrees/pkg/domain"
	dErrors "longtrees/pkg/domain-errors"
	"longtrees/pkg/platform/httputil"
	"longtrees/pkg/requestcontext"
)

// ResourceService is the CRUD surface of one resource type.
type ResourceService[T any] interface {
	Create(ctx context.Context, fields models.Fields) (T, error)
	Get(ctx context.Context, id domain.ID) (T, error)
	List(ctx context.Context, req service.PageRequest) (service.Page[T], error)
	Update(ctx context.Context, id domain.ID, fields models.Fields) (T, error)
	Delete(ctx context.Context, id domain.ID) error
}

// Operations are the writes that cross resource boundaries.
type Operations interface {
	Merge(ctx context.Context, sourceID, targetID domain.ID) (models.SubSuccession, error)
	AppendDistribution(ctx context.Context, id domain.ID, fields models.Fields) (models.SeedSource, error)
	RecordObservation(ctx context.Context, id domain.ID, fields models.Fields) (models.Tree, error)
}

// Services groups what the handler calls.
type Services struct {
	SeedSources    ResourceService[models.SeedSource]
	Growers        ResourceService[models.Grower]
	SubSuccessions ResourceService[models.SubSuccession]
	Trees          ResourceService[models.Tree]
	Operations     Operations
}

// FromService adapts the nursery service.
func FromService(svc *service.Service) Services {
	return Services{
		SeedSources:    svc.SeedSources(),
		Growers:        svc.Growers(),
		SubSuccessions: svc.SubSuccessions(),
		Trees:          svc.Trees(),
		Operations:     svc,
	}
}

// Handler wires the nursery endpoints to the service.
type Handler struct {
	services Services
	logger   *slog.Logger
}

func New(services Services, logger *slog.Logger) *Handler {
	return &Handler{
		services: services,
		logger:   logger,
	}
}

// Register mounts every resource route set plus the append and merge
// operations on r.
func (h *Handler) Register(r chi.Router) {
	register(r, h, models.SeedSources, h.services.SeedSources)
	register(r, h, models.Growers, h.services.Growers)
	register(r, h, models.SubSuccessions, h.services.SubSuccessions)
	register(r, h, models.Trees, h.services.Trees)

	r.Post("/"+models.SeedSources+"/{id}/distributions", h.HandleAppendDistribution)
	r.Post("/"+models.Trees+"/{id}/observations", h.HandleRecordObservation)
	r.Post("/"+models.SubSuccessions+"/{id}/merge", h.HandleMerge)
}

// HandleAppendDistribution handles POST /seed_sources/{id}/distributions.
func (h *Handler) HandleAppendDistribution(w http.ResponseWriter, r *http.Request) {
	h.appendTo(w, r, models.SeedSources, func(ctx context.Context, id domain.ID, fields models.Fields) (any, error) {
		return h.services.Operations.AppendDistribution(ctx, id, fields)
	})
}

// HandleRecordObservation handles POST /trees/{id}/observations.
func (h *Handler) HandleRecordObservation(w http.ResponseWriter, r *http.Request) {
	h.appendTo(w, r, models.Trees, func(ctx context.Context, id domain.ID, fields models.Fields) (any, error) {
		return h.services.Operations.RecordObservation(ctx, id, fields)
	})
}

func (h *Handler) appendTo(w http.ResponseWriter, r *http.Request, collection string,
	apply func(context.Context, domain.ID, models.Fields) (any, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	fields, ok := httputil.DecodeFields(w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	doc, err := apply(ctx, id, fields)
	if err != nil {
		h.fail(ctx, w, collection+" append failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

// HandleMerge handles POST /sub_successions/{id}/merge.
func (h *Handler) HandleMerge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	sourceID, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	fields, ok := httputil.DecodeFields(w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	targetID, err := targetIDFrom(fields)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	merged, err := h.services.Operations.Merge(ctx, sourceID, targetID)
	if err != nil {
		h.fail(ctx, w, "sub-succession merge failed", err)
		return
	}
	h.logger.InfoContext(ctx, "sub-succession merged",
		"request_id", requestID,
		"source_id", sourceID.String(),
		"target_id", targetID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, merged)
}

// fail writes err. Server side failures are logged at error level, client
// mistakes at debug.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	status := dErrors.ToHTTPStatus(dErrors.CodeOf(err))
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.DebugContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
