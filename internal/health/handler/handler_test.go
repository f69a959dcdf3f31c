package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opagate/internal/domain"
	"opagate/pkg/testutil"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type stubProbe struct{ health domain.ServiceHealth }

func (p stubProbe) Probe(context.Context) domain.ServiceHealth { return p.health }

type stubStatus struct {
	latest    domain.SystemStatus
	refreshed domain.SystemStatus
	refreshes int
}

func (s *stubStatus) Latest(context.Context) domain.SystemStatus { return s.latest }

func (s *stubStatus) Refresh(context.Context) domain.SystemStatus {
	s.refreshes++
	return s.refreshed
}

type stubStats struct {
	stats json.RawMessage
	err   error
	block bool
}

func (s stubStats) Stats(ctx context.Context) (json.RawMessage, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.stats, s.err
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleEngineHealth(t *testing.T) {
	t.Run("healthy engine with note", func(t *testing.T) {
		ms := int64(8)
		probe := stubProbe{domain.ServiceHealth{
			Status:         domain.StatusHealthy,
			ResponseTimeMS: &ms,
			Timestamp:      now,
			Error:          "OPA is running but has no data loaded",
		}}
		router := newRouter(New(probe, &stubStatus{}, stubStats{}, discard()))

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/opa/health"))

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONBody(t, rr, `{"status":"healthy","timestamp":"2026-03-01T10:00:00Z","error":"OPA is running but has no data loaded","responseTime":8}`)
	})

	t.Run("unhealthy engine still answers 200", func(t *testing.T) {
		probe := stubProbe{domain.ServiceHealth{
			Status:    domain.StatusUnhealthy,
			Timestamp: now,
			Error:     "opa [timeout]: request timed out",
		}}
		router := newRouter(New(probe, &stubStatus{}, stubStats{}, discard()))

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/opa/health"))

		testutil.AssertStatusOK(t, rr)
		out := testutil.UnmarshalResponse[EngineHealthResponse](t, rr)
		assert.Equal(t, domain.StatusUnhealthy, out.Status)
		assert.Contains(t, out.Error, "timed out")
		assert.Zero(t, out.ResponseTime)
	})
}

func TestHandleStatus(t *testing.T) {
	status := &stubStatus{
		latest: domain.SystemStatus{
			OPALServer:      domain.ServiceHealth{Status: domain.StatusUnhealthy, Timestamp: now},
			OPAEngine:       domain.ServiceHealth{Status: domain.StatusUnhealthy, Timestamp: now},
			Timestamp:       now,
			OverallStatus:   domain.OverallUnhealthy,
			DevelopmentMode: true,
		},
		refreshed: domain.SystemStatus{OverallStatus: domain.OverallHealthy, Timestamp: now},
	}
	router := newRouter(New(stubProbe{}, status, stubStats{}, discard()))

	t.Run("latest status", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/system/status"))

		testutil.AssertStatusOK(t, rr)
		var raw map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
		assert.Equal(t, "unhealthy", raw["overallStatus"])
		assert.Equal(t, true, raw["developmentMode"])
		assert.Contains(t, raw, "opalServer")
		assert.Contains(t, raw, "opaEngine")
		assert.Zero(t, status.refreshes)
	})

	t.Run("manual refresh", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/api/system/status/refresh"))

		testutil.AssertStatusOK(t, rr)
		out := testutil.UnmarshalResponse[domain.SystemStatus](t, rr)
		assert.Equal(t, domain.OverallHealthy, out.OverallStatus)
		assert.Equal(t, 1, status.refreshes)
	})
}

func TestHandleOPALStats(t *testing.T) {
	t.Run("stats are passed through", func(t *testing.T) {
		router := newRouter(New(stubProbe{}, &stubStatus{}, stubStats{stats: json.RawMessage(`{"uptime":42}`)}, discard()))

		rr := testutil.DoRequest(router, testutil.WithRequestTime(testutil.NewRequest(t, http.MethodGet, "/api/opal/stats"), now))

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONBody(t, rr, `{"stats":{"uptime":42},"timestamp":"2026-03-01T10:00:00Z"}`)
	})

	t.Run("failure reports null stats with error", func(t *testing.T) {
		router := newRouter(New(stubProbe{}, &stubStatus{}, stubStats{err: errors.New("opal [status]: HTTP 502: Bad Gateway")}, discard()))

		rr := testutil.DoRequest(router, testutil.WithRequestTime(testutil.NewRequest(t, http.MethodGet, "/api/opal/stats"), now))

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONBody(t, rr, `{"stats":null,"timestamp":"2026-03-01T10:00:00Z","error":"opal [status]: HTTP 502: Bad Gateway"}`)
	})

	t.Run("request context cancellation ends the call", func(t *testing.T) {
		router := newRouter(New(stubProbe{}, &stubStatus{}, stubStats{block: true}, discard()))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		req := testutil.NewRequest(t, http.MethodGet, "/api/opal/stats").WithContext(ctx)

		rr := testutil.DoRequest(router, req)

		testutil.AssertStatusOK(t, rr)
		var raw map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
		assert.Nil(t, raw["stats"])
		assert.NotEmpty(t, raw["error"])
	})
}
