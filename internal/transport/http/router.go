// Package httptransport assembles the HTTP surface: the shared middleware
// chain, the nursery routes and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"longtrees/internal/nursery/models"
	"longtrees/internal/platform/metrics"
	"longtrees/internal/platform/middleware"
	dErrors "longtrees/pkg/domain-errors"
	"longtrees/pkg/platform/httputil"
	"longtrees/pkg/platform/middleware/metadata"
	"longtrees/pkg/platform/middleware/requesttime"
	"longtrees/pkg/requestcontext"
)

const healthTimeout = 2 * time.Second

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// Pinger reports whether the store backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configure NewRouter. Zero values disable the matching middleware.
type Options struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Health         Pinger
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// NewRouter wires the middleware chain, the registrars and the operational
// endpoints.
func NewRouter(opts Options, registrars ...Registrar) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(logger))
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	if opts.MaxBodyBytes > 0 {
		r.Use(middleware.MaxBody(opts.MaxBodyBytes))
	}
	r.Use(middleware.LatencyMiddleware(opts.Metrics))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error":             "method_not_allowed",
			"error_description": "method not allowed on this route",
		})
	})

	r.Get("/", handleIndex)
	r.Get("/healthz", healthHandler(opts.Health, logger))
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	for _, reg := range registrars {
		reg.Register(r)
	}
	return r
}

// handleIndex lists the collection paths.
func handleIndex(w http.ResponseWriter, _ *http.Request) {
	names := models.Collections()
	resources := make(map[string]string, len(names))
	for _, name := range names {
		resources[name] = "/" + name + "/"
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"service":   "longtrees",
		"resources": resources,
	})
}

func healthHandler(store Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "health check failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
