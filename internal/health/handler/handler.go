package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"opagate/internal/domain"
	"opagate/internal/platform/failsafe"
	"opagate/pkg/platform/httputil"
	"opagate/pkg/requestcontext"
)

// StatsTimeout bounds GET /api/opal/stats.
const StatsTimeout = 3 * time.Second

// EngineProbe checks the policy engine on demand.
type EngineProbe interface {
	Probe(ctx context.Context) domain.ServiceHealth
}

// StatusSource serves the aggregated system status.
type StatusSource interface {
	Latest(ctx context.Context) domain.SystemStatus
	Refresh(ctx context.Context) domain.SystemStatus
}

// StatsSource reads OPAL server statistics.
type StatsSource interface {
	Stats(ctx context.Context) (json.RawMessage, error)
}

// Handler exposes health and status endpoints. Every endpoint answers 200;
// failures are reported in the body.
type Handler struct {
	engine EngineProbe
	status StatusSource
	stats  StatsSource
	logger *slog.Logger
}

// New constructs a health handler.
func New(engine EngineProbe, status StatusSource, stats StatsSource, logger *slog.Logger) *Handler {
	return &Handler{
		engine: engine,
		status: status,
		stats:  stats,
		logger: logger,
	}
}

// Register mounts health endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/opa/health", h.HandleEngineHealth)
	r.Get("/api/system/status", h.HandleStatus)
	r.Post("/api/system/status/refresh", h.HandleRefresh)
	r.Get("/api/opal/stats", h.HandleOPALStats)
}

// HandleEngineHealth handles GET /api/opa/health with a fresh probe.
func (h *Handler) HandleEngineHealth(w http.ResponseWriter, r *http.Request) {
	health := h.engine.Probe(r.Context())
	httputil.WriteJSON(w, http.StatusOK, FromServiceHealth(health))
}

// HandleStatus handles GET /api/system/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.status.Latest(r.Context()))
}

// HandleRefresh handles POST /api/system/status/refresh.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := h.status.Refresh(ctx)
	h.logger.InfoContext(ctx, "system status refreshed",
		"request_id", requestcontext.RequestID(ctx),
		"overall", status.OverallStatus,
	)
	httputil.WriteJSON(w, http.StatusOK, status)
}

// HandleOPALStats handles GET /api/opal/stats.
func (h *Handler) HandleOPALStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	timestamp := requestcontext.Now(ctx).UTC()

	guard := failsafe.Policy[StatsResponse]{
		Timeout: StatsTimeout,
		Fallback: func(err error) StatsResponse {
			return StatsResponse{Timestamp: timestamp, Error: err.Error()}
		},
		OnFailure: func(ctx context.Context, err error) {
			h.logger.WarnContext(ctx, "opal stats unavailable",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		},
	}

	resp := guard.Do(ctx, func(ctx context.Context) (StatsResponse, error) {
		stats, err := h.stats.Stats(ctx)
		if err != nil {
			return StatsResponse{}, err
		}
		return StatsResponse{Stats: stats, Timestamp: timestamp}, nil
	})
	httputil.WriteJSON(w, http.StatusOK, resp)
}
