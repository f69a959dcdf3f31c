package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"opagate/internal/platform/metrics"
	"opagate/internal/platform/middleware"
	dErrors "opagate/pkg/domain-errors"
	"opagate/pkg/platform/httputil"
	"opagate/pkg/platform/middleware/metadata"
	"opagate/pkg/platform/middleware/requesttime"
)

// Registrar mounts a module's routes.
type Registrar interface {
	Register(r chi.Router)
}

// Check reports whether a process dependency is reachable.
type Check func(ctx context.Context) error

// Deps are the router's collaborators. Checks are run by /healthz.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Checks   map[string]Check
	Handlers []Registrar
}

// NewRouter wires the shared middleware stack, operational endpoints, and
// every module's routes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Observe(deps.Logger, deps.Metrics))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.Get("/healthz", healthz(deps))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	for _, h := range deps.Handlers {
		h.Register(r)
	}
	return r
}

// healthz answers 200 while every dependency check passes and 503 naming the
// first failing one otherwise.
func healthz(deps Deps) http.HandlerFunc {
	names := make([]string, 0, len(deps.Checks))
	for name := range deps.Checks {
		names = append(names, name)
	}
	slices.Sort(names)

	return func(w http.ResponseWriter, r *http.Request) {
		for _, name := range names {
			if err := deps.Checks[name](r.Context()); err != nil {
				deps.Logger.WarnContext(r.Context(), "dependency check failed", "dependency", name, "error", err)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, name+" is unreachable"))
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
