package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fieldtrack/fieldtrack/internal/platform/httpx"
	"github.com/fieldtrack/fieldtrack/internal/rbac"
	"github.com/fieldtrack/fieldtrack/internal/shared"
)

// Handler manages assignment HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbacSvc  *rbac.Service
	mw       rbac.Middleware
	validate *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service, rbacSvc *rbac.Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		rbacSvc:  rbacSvc,
		mw:       rbac.Middleware{Service: rbacSvc, Logger: logger},
		validate: validator.New(),
	}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAction("users", rbac.ActionRead))
		r.Get("/{userID}/roles", h.listAssignments)
		r.Get("/{userID}/permissions", h.effectivePermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAction("users", rbac.ActionManage))
		r.Post("/{userID}/roles", h.assign)
		r.Delete("/{userID}/roles/{roleID}", h.revoke)
	})
}

type assignRequest struct {
	RoleID    int64      `json:"role_id" validate:"required,gt=0"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity required")
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user id must be an integer")
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AssignRole(r.Context(), userID, req.RoleID, actor.ID, req.ExpiresAt); err != nil {
		switch {
		case errors.Is(err, rbac.ErrRoleNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, ErrAlreadyAssigned):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		default:
			h.logger.Error("assign role", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"status": "assigned"})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user id must be an integer")
		return
	}
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role id must be an integer")
		return
	}
	if err := h.service.RevokeRole(r.Context(), userID, roleID); err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("revoke role", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user id must be an integer")
		return
	}
	assignments, err := h.service.ListAssignments(r.Context(), userID)
	if err != nil {
		h.logger.Error("list assignments", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if assignments == nil {
		assignments = []rbac.Assignment{}
	}
	httpx.JSON(w, http.StatusOK, assignments)
}

func (h *Handler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user id must be an integer")
		return
	}
	doc, err := h.rbacSvc.EffectivePermissions(r.Context(), userID)
	if err != nil {
		h.logger.Error("effective permissions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}
