package rbac

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fieldtrack/fieldtrack/internal/shared"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func requestWithActor(id int64) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/surveys/sess-1", nil)
	ctx := shared.ContextWithActor(r.Context(), &shared.Actor{ID: id, Username: "tester"})
	return r.WithContext(ctx)
}

func middlewareWithRoles(roles map[int64][]Role) Middleware {
	svc := NewService(NewCatalog(&stubStore{}, testLogger()), &stubAssignmentStore{roles: roles})
	return Middleware{Service: svc, Logger: testLogger()}
}

func TestRequireActionAllowsGrantedActor(t *testing.T) {
	mw := middlewareWithRoles(map[int64][]Role{
		7: {{Name: "admin", IsActive: true, Permissions: map[string][]Action{"roles": {ActionManage}}}},
	})
	rec := httptest.NewRecorder()
	mw.RequireAction("roles", ActionRead)(okHandler()).ServeHTTP(rec, requestWithActor(7))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestRequireActionRejectsMissingGrant(t *testing.T) {
	mw := middlewareWithRoles(map[int64][]Role{
		7: {{Name: "approver", IsActive: true, Permissions: map[string][]Action{"surveys": {ActionRead}}}},
	})
	rec := httptest.NewRecorder()
	mw.RequireAction("roles", ActionRead)(okHandler()).ServeHTTP(rec, requestWithActor(7))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireActionRejectsAnonymousRequest(t *testing.T) {
	mw := middlewareWithRoles(map[int64][]Role{})
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/roles", nil)
	mw.RequireAction("roles", ActionRead)(okHandler()).ServeHTTP(rec, r)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireStatusAccessEnforcesMinimumLevel(t *testing.T) {
	mw := middlewareWithRoles(map[int64][]Role{
		7: {{Name: "approver", IsActive: true, StatusAccess: map[string]AccessLevel{"review": AccessView}}},
	})
	resolve := func(*http.Request) (string, error) { return "review", nil }

	rec := httptest.NewRecorder()
	mw.RequireStatusAccess(AccessView, resolve)(okHandler()).ServeHTTP(rec, requestWithActor(7))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for view on view requirement, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mw.RequireStatusAccess(AccessEdit, resolve)(okHandler()).ServeHTTP(rec, requestWithActor(7))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for view on edit requirement, got %d", rec.Code)
	}
}

func TestRequireStatusAccessResolverFailureIs404(t *testing.T) {
	mw := middlewareWithRoles(map[int64][]Role{
		7: {{Name: "approver", IsActive: true, StatusAccess: map[string]AccessLevel{"review": AccessEdit}}},
	})
	resolve := func(*http.Request) (string, error) { return "", errors.New("no such survey") }

	rec := httptest.NewRecorder()
	mw.RequireStatusAccess(AccessView, resolve)(okHandler()).ServeHTTP(rec, requestWithActor(7))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when the survey cannot be resolved, got %d", rec.Code)
	}
}
