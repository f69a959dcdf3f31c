package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"opagate/internal/decision"
	"opagate/internal/decision/metrics"
	"opagate/internal/domain"
	"opagate/internal/platform/failsafe"
	"opagate/internal/upstream"
	dErrors "opagate/pkg/domain-errors"
	"opagate/pkg/platform/httputil"
	"opagate/pkg/requestcontext"
)

// Forwarder relays a raw decision request to the policy engine.
type Forwarder interface {
	Forward(ctx context.Context, body []byte) ([]byte, error)
}

// Checker defines the decision operations used by the handlers.
type Checker interface {
	Check(ctx context.Context, input domain.DecisionInput) domain.DecisionResult
	Permissions(ctx context.Context, user, tenant string) decision.Permissions
}

// Handler wires decision endpoints to the policy engine.
type Handler struct {
	forwarder Forwarder
	checker   Checker
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New constructs a decision handler with its dependencies.
func New(forwarder Forwarder, checker Checker, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		forwarder: forwarder,
		checker:   checker,
		logger:    logger,
		metrics:   metrics,
	}
}

// Register mounts decision endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/opa", h.HandleProxy)
	r.Post("/api/decisions/check", h.HandleCheck)
	r.Get("/api/ksef/permissions/{userID}", h.HandlePermissions)
}

// HandleProxy handles POST /api/opa. The body is forwarded verbatim and the
// engine's answer returned unchanged. Any failure, including a body that is
// not JSON, answers 500 with a denial shaped like a normal decision.
func (h *Handler) HandleProxy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	guard := failsafe.Policy[proxyOutcome]{
		Fallback: func(err error) proxyOutcome {
			return proxyOutcome{status: http.StatusInternalServerError, err: err}
		},
		OnFailure: func(ctx context.Context, err error) {
			h.logger.ErrorContext(ctx, "decision proxy failed",
				"request_id", requestID,
				"category", upstream.GetCategory(err),
				"status_code", upstream.StatusCode(err),
				"error", err,
			)
		},
	}

	out := guard.Do(ctx, func(ctx context.Context) (proxyOutcome, error) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, httputil.MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return proxyOutcome{}, fmt.Errorf("request body too large (limit %d bytes)", tooLarge.Limit)
			}
			return proxyOutcome{}, err
		}
		if !json.Valid(body) {
			return proxyOutcome{}, errors.New("invalid JSON body")
		}
		resp, err := h.forwarder.Forward(ctx, body)
		if err != nil {
			return proxyOutcome{}, err
		}
		return proxyOutcome{status: http.StatusOK, body: resp}, nil
	})

	if out.err != nil {
		h.metrics.IncrementProxy("failed")
		httputil.WriteJSON(w, out.status, NewProxyError(out.err))
		return
	}

	h.metrics.IncrementProxy("forwarded")
	h.logger.DebugContext(ctx, "decision proxied",
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(out.status)
	_, _ = w.Write(out.body)
}

type proxyOutcome struct {
	status int
	body   []byte
	err    error
}

// HandleCheck handles POST /api/decisions/check.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result := h.checker.Check(ctx, req.Input())

	h.logger.InfoContext(ctx, "decision checked",
		"request_id", requestID,
		"user", req.User,
		"tenant", req.Tenant,
		"action", req.Action,
		"allow", result.Allow,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, domain.DecisionResponse{Result: &result})
}

// HandlePermissions handles GET /api/ksef/permissions/{userID}?tenant=.
func (h *Handler) HandlePermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" || len(userID) > maxFieldLength {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "user id must be 1-256 characters"))
		return
	}
	tenant := strings.TrimSpace(r.URL.Query().Get("tenant"))
	if len(tenant) > maxFieldLength {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "tenant must be at most 256 characters"))
		return
	}

	perms := h.checker.Permissions(ctx, userID, tenant)

	h.logger.InfoContext(ctx, "permissions evaluated",
		"request_id", requestID,
		"user", perms.User,
		"tenant", perms.Tenant,
	)

	httputil.WriteJSON(w, http.StatusOK, perms)
}
