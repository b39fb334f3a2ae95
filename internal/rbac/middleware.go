package rbac

import (
	"log/slog"
	"net/http"

	"github.com/fieldtrack/fieldtrack/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// StatusResolver returns the status name relevant to the request, so
// access-level guards can be evaluated against the right survey state.
type StatusResolver func(r *http.Request) (string, error)

// RequireAction ensures the current actor holds a role allowing the
// action on the resource.
func (m Middleware) RequireAction(resource string, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles, ok := m.actorRoles(w, r)
			if !ok {
				return
			}
			if !AnyCan(roles, resource, action) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireStatusAccess ensures the current actor holds at least the given
// access level for the status the resolver reports.
func (m Middleware) RequireStatusAccess(min AccessLevel, resolve StatusResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles, ok := m.actorRoles(w, r)
			if !ok {
				return
			}
			status, err := resolve(r)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			if !EffectiveAccessLevel(roles, status).AtLeast(min) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) actorRoles(w http.ResponseWriter, r *http.Request) ([]Role, bool) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil, false
	}
	roles, err := m.Service.RolesForUser(r.Context(), actor.ID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac resolve roles", slog.Any("error", err))
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	return roles, true
}
