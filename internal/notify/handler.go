package notify

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fieldtrack/fieldtrack/internal/platform/httpx"
	"github.com/fieldtrack/fieldtrack/internal/shared"
)

// Handler exposes the recipient-facing notification endpoints.
type Handler struct {
	logger *slog.Logger
	sink   *Sink
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, sink *Sink) *Handler {
	return &Handler{logger: logger, sink: sink}
}

// MountRoutes registers routes on the router. Notifications are strictly
// recipient-scoped; no role grant beyond an authenticated actor applies.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/{notificationID}/read", h.markRead)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notifications, err := h.sink.ListForRecipient(r.Context(), actor.ID, limit)
	if err != nil {
		h.logger.Error("list notifications", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if notifications == nil {
		notifications = []Notification{}
	}
	httpx.JSON(w, http.StatusOK, notifications)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "notificationID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "notification id must be a uuid")
		return
	}
	if err := h.sink.MarkRead(r.Context(), id, actor.ID); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("mark notification read", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "read"})
}
