package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cwrk-planet/interview-room/internal/domain"
	"github.com/cwrk-planet/interview-room/internal/event"
	"github.com/cwrk-planet/interview-room/internal/room"
	httpmw "github.com/cwrk-planet/interview-room/internal/transport/http/middleware"
	"github.com/cwrk-planet/interview-room/pkg/errs"
	"github.com/cwrk-planet/interview-room/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

type RoomsReader interface {
	Snapshot() event.RoomsStatusPayload
	Ready(ctx context.Context) error
}

type RoomViewer interface {
	View(id domain.InterviewID) (room.RoomView, bool)
}

type Handler struct {
	rooms   RoomsReader
	viewer  RoomViewer
	version string
	started time.Time
	now     func() time.Time
}

func NewHandler(rooms RoomsReader, viewer RoomViewer, version string) *Handler {
	return &Handler{
		rooms:   rooms,
		viewer:  viewer,
		version: version,
		started: time.Now(),
		now:     time.Now,
	}
}

// GET /healthz
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// GET /readyz - отвечает ли хранилище интервью.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.rooms.Ready(ctx); err != nil {
		slog.Warn("readiness check failed", slog.Any("err", err))
		h.fail(w, r, errs.ErrUnavailable, "interview store unavailable")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	httputil.JSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: event.Timestamp(now),
		Uptime:    now.Sub(h.started).Seconds(),
		Version:   h.version,
	})
}

// GET /api/rooms/status
func (h *Handler) RoomsStatus(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, RoomsStatusResponse{Rooms: h.rooms.Snapshot()})
}

// GET /api/rooms/{interviewID} - только admin.
func (h *Handler) RoomDetail(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseInterviewID(chi.URLParam(r, "interviewID"))
	if err != nil || !id.Valid() {
		h.fail(w, r, errs.ErrInvalidInput, "invalid interview id")
		return
	}
	if admin, ok := httpmw.IdentityFromCtx(r.Context()); ok {
		slog.Info("room detail requested", "interview_id", id, "admin", admin.UserID)
	}
	v, ok := h.viewer.View(id)
	if !ok {
		h.fail(w, r, errs.ErrNotFound, "room not active")
		return
	}

	resp := RoomDetailResponse{
		InterviewID:  v.InterviewID,
		Room:         v.Key,
		Active:       v.Participants > 0,
		Participants: v.Participants,
		CreatedAt:    v.CreatedAt,
		CodeLength:   len(v.Code),
		Transcript:   make([]TranscriptItem, 0, len(v.Transcript)),
	}
	if v.HasCode {
		code := v.Code
		resp.Code = &code
	}
	for _, e := range v.Transcript {
		resp.Transcript = append(resp.Transcript, TranscriptItem{Text: e.Text, User: e.User, Timestamp: e.Timestamp})
	}
	httputil.OK(w, resp)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	httputil.Error(r.Context(), w, errs.ToHTTP(err), msg, nil)
}
