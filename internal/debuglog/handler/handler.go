package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"opagate/internal/debuglog"
	"opagate/internal/domain"
	"opagate/pkg/platform/httputil"
	"opagate/pkg/requestcontext"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Log defines the debug buffer operations used by the handlers.
type Log interface {
	Snapshot() []domain.DebugEntry
	Clear()
	ExportSummary() debuglog.Export
	Subscribe(fn debuglog.Observer) (unsubscribe func())
}

// Handler exposes the decision debug history.
type Handler struct {
	log      Log
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New constructs a debug log handler.
func New(log Log, logger *slog.Logger) *Handler {
	return &Handler{
		log:    log,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Register mounts debug endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/opa/debug", h.HandleList)
	r.Delete("/api/opa/debug", h.HandleClear)
	r.Get("/api/opa/debug/export", h.HandleExport)
	r.Get("/api/opa/debug/stream", h.HandleStream)
}

// HandleList handles GET /api/opa/debug.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries := h.log.Snapshot()
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Entries: entries, Count: len(entries)})
}

// HandleClear handles DELETE /api/opa/debug.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.log.Clear()
	h.logger.InfoContext(ctx, "debug log cleared",
		"request_id", requestcontext.RequestID(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleExport handles GET /api/opa/debug/export as a JSON download.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	export := h.log.ExportSummary()
	filename := fmt.Sprintf("opa-debug-log-%s.json", export.Timestamp.Format("20060102T150405Z"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	httputil.WriteJSON(w, http.StatusOK, export)
}

// HandleStream handles GET /api/opa/debug/stream. The client receives the
// current buffer on connect and again after every change. A client that
// falls behind only ever gets the newest snapshot.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "debug stream upgrade failed",
			"request_id", requestID,
			"error", err,
		)
		return
	}
	defer ws.Close()

	updates := make(chan []domain.DebugEntry, 1)
	unsubscribe := h.log.Subscribe(func(entries []domain.DebugEntry) {
		latest(updates, entries)
	})
	defer unsubscribe()

	// The read loop only detects the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.InfoContext(ctx, "debug stream connected", "request_id", requestID)
	defer h.logger.InfoContext(ctx, "debug stream closed", "request_id", requestID)

	if err := writeSnapshot(ws, h.log.Snapshot()); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case entries := <-updates:
			if err := writeSnapshot(ws, entries); err != nil {
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeSnapshot(ws *websocket.Conn, entries []domain.DebugEntry) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(StreamMessage{Type: "snapshot", Entries: entries, Count: len(entries)})
}

// latest replaces any pending snapshot with entries without blocking.
func latest(ch chan []domain.DebugEntry, entries []domain.DebugEntry) {
	for {
		select {
		case ch <- entries:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
