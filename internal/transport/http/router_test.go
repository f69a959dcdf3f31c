package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"opagate/internal/platform/metrics"
	"opagate/internal/platform/middleware"
	"opagate/pkg/requestcontext"
	"opagate/pkg/testutil"
)

type echoRoutes struct{}

func (echoRoutes) Register(r chi.Router) {
	r.Get("/api/echo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, requestcontext.RequestID(r.Context()))
	})
	r.Get("/api/panic", func(http.ResponseWriter, *http.Request) {
		panic("handler bug")
	})
}

func newTestRouter() http.Handler {
	reg := prometheus.NewRegistry()
	return NewRouter(Deps{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:  metrics.New(reg),
		Gatherer: reg,
		Handlers: []Registrar{echoRoutes{}},
	})
}

func TestRouter_Healthz(t *testing.T) {
	rr := testutil.DoRequest(newTestRouter(), testutil.NewRequest(t, http.MethodGet, "/healthz"))

	testutil.AssertStatusOK(t, rr)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRouter_RequestIDPropagates(t *testing.T) {
	req := testutil.NewRequest(t, http.MethodGet, "/api/echo")
	req.Header.Set(middleware.RequestIDHeader, "req-123")

	rr := testutil.DoRequest(newTestRouter(), req)

	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, "req-123", rr.Body.String())
	assert.Equal(t, "req-123", rr.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_MetricsExposeRoutePatterns(t *testing.T) {
	router := newTestRouter()
	testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/echo"))

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))

	testutil.AssertStatusOK(t, rr)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `opagate_http_requests_total{method="GET",route="/api/echo",status="200"} 1`), body)
}

func TestRouter_RecoversPanics(t *testing.T) {
	rr := testutil.DoRequest(newTestRouter(), testutil.NewRequest(t, http.MethodGet, "/api/panic"))

	testutil.AssertStatus(t, rr, http.StatusInternalServerError)
}

func TestRouter_UnknownRoute(t *testing.T) {
	rr := testutil.DoRequest(newTestRouter(), testutil.NewRequest(t, http.MethodGet, "/nope"))

	testutil.AssertStatus(t, rr, http.StatusNotFound)
	assert.JSONEq(t, `{"error":"not_found","error_description":"route not found"}`, rr.Body.String())
}

func TestRouter_HealthzRunsDependencyChecks(t *testing.T) {
	newRouter := func(check Check) http.Handler {
		return NewRouter(Deps{
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			Checks: map[string]Check{"redis": check},
		})
	}

	t.Run("healthy dependency", func(t *testing.T) {
		rr := testutil.DoRequest(newRouter(func(context.Context) error { return nil }),
			testutil.NewRequest(t, http.MethodGet, "/healthz"))

		testutil.AssertStatusOK(t, rr)
		assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	})

	t.Run("unreachable dependency", func(t *testing.T) {
		rr := testutil.DoRequest(newRouter(func(context.Context) error { return errors.New("dial tcp: connection refused") }),
			testutil.NewRequest(t, http.MethodGet, "/healthz"))

		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		assert.JSONEq(t, `{"error":"service_unavailable","error_description":"redis is unreachable"}`, rr.Body.String())
	})
}
