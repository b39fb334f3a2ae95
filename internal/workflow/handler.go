package workflow

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fieldtrack/fieldtrack/internal/platform/httpx"
	"github.com/fieldtrack/fieldtrack/internal/rbac"
	"github.com/fieldtrack/fieldtrack/internal/shared"
)

// Handler manages the survey workflow HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		rbac:     rbacMW,
		validate: validator.New(),
	}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	// The transition endpoint carries no permission middleware: the
	// service validates the grant against the row-locked status, which a
	// pre-flight check could not do race-free.
	r.Post("/{sessionID}/transition", h.transition)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireStatusAccess(rbac.AccessView, h.resolveStatus))
		r.Get("/{sessionID}/transitions", h.history)
		r.Get("/{sessionID}/transitions/allowed", h.allowed)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity required")
		return
	}

	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	event, err := h.service.RequestTransition(r.Context(), TransitionRequest{
		SessionID:     chi.URLParam(r, "sessionID"),
		ActorID:       actor.ID,
		ActorUsername: actor.Username,
		To:            Status(req.To),
		Note:          req.Note,
	})
	if err != nil {
		h.respondTransitionError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, transitionResponse{Event: event})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	events, err := h.service.History(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, shared.ErrRecordNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("list history", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, historyResponse{SessionID: sessionID, Events: events})
}

func (h *Handler) allowed(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity required")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	current, allowed, err := h.service.Allowed(r.Context(), sessionID, actor.ID)
	if err != nil {
		if errors.Is(err, shared.ErrRecordNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("list allowed transitions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if allowed == nil {
		allowed = []Status{}
	}
	httpx.JSON(w, http.StatusOK, allowedResponse{SessionID: sessionID, Current: current, Allowed: allowed})
}

func (h *Handler) respondTransitionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrRecordNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidEdge):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrTransitionDenied):
		httpx.Problem(w, http.StatusForbidden, "Transition Denied", err.Error())
	case errors.Is(err, ErrConsistency):
		h.logger.Error("transition consistency failure",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Consistency Failure", "status and history diverged; operator intervention required")
	default:
		h.logger.Error("transition failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) resolveStatus(r *http.Request) (string, error) {
	status, err := h.service.CurrentStatus(r.Context(), chi.URLParam(r, "sessionID"))
	return string(status), err
}
