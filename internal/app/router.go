package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fieldtrack/fieldtrack/internal/notify"
	"github.com/fieldtrack/fieldtrack/internal/observability"
	"github.com/fieldtrack/fieldtrack/internal/rbac"
	"github.com/fieldtrack/fieldtrack/internal/users"
	"github.com/fieldtrack/fieldtrack/internal/workflow"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger               *slog.Logger
	Config               *Config
	WorkflowHandler      *workflow.Handler
	RolesHandler         *rbac.Handler
	UsersHandler         *users.Handler
	NotificationsHandler *notify.Handler
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router with Fieldtrack defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if params.WorkflowHandler != nil {
			r.Route("/surveys", params.WorkflowHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.NotificationsHandler != nil {
			r.Route("/notifications", params.NotificationsHandler.MountRoutes)
		}
	})

	return r
}
