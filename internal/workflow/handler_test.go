package workflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fieldtrack/fieldtrack/internal/rbac"
	"github.com/fieldtrack/fieldtrack/internal/shared"
)

type emptyRoleStore struct{}

func (emptyRoleStore) GetRole(context.Context, int64) (rbac.Role, error) {
	return rbac.Role{}, rbac.ErrRoleNotFound
}

func (emptyRoleStore) ListRoles(context.Context) ([]rbac.Role, error) { return nil, nil }

type assignmentStub struct {
	roles map[int64][]rbac.Role
}

func (s assignmentStub) ListRolesForUser(_ context.Context, userID int64) ([]rbac.Role, error) {
	return s.roles[userID], nil
}

func newTestRouter(repo *stubRepository, roles map[int64][]rbac.Role) http.Handler {
	logger := slog.New(slog.NewTextHandler(discard{}, nil))
	svc := NewService(repo, &stubRoleSource{roles: roles}, &stubLedgerReader{}, logger)
	rbacSvc := rbac.NewService(rbac.NewCatalog(emptyRoleStore{}, logger), assignmentStub{roles: roles})
	handler := NewHandler(logger, svc, rbac.Middleware{Service: rbacSvc, Logger: logger})

	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, target, body string, actor *shared.Actor) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req = req.WithContext(shared.ContextWithActor(req.Context(), actor))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTransitionEndpointAppliesTransition(t *testing.T) {
	repo := newStubRepository(map[string]Status{"sess-1": StatusCreated})
	router := newTestRouter(repo, engineerRoles())

	rec := doRequest(t, router, http.MethodPost, "/sess-1/transition",
		`{"to":"submitted","note":"ready for review"}`,
		&shared.Actor{ID: 7, Username: "ines"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp transitionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Event.CurrentStatus != "created" || resp.Event.NewStatus != "submitted" {
		t.Fatalf("unexpected event: %+v", resp.Event)
	}
	if repo.statuses["sess-1"] != StatusSubmitted {
		t.Fatalf("expected status submitted, got %s", repo.statuses["sess-1"])
	}
}

func TestTransitionEndpointStatusCodes(t *testing.T) {
	cases := []struct {
		name     string
		statuses map[string]Status
		actor    *shared.Actor
		target   string
		body     string
		want     int
	}{
		{
			name:     "missing actor",
			statuses: map[string]Status{"sess-1": StatusCreated},
			target:   "/sess-1/transition",
			body:     `{"to":"submitted"}`,
			want:     http.StatusUnauthorized,
		},
		{
			name:     "malformed body",
			statuses: map[string]Status{"sess-1": StatusCreated},
			actor:    &shared.Actor{ID: 7, Username: "ines"},
			target:   "/sess-1/transition",
			body:     `{not json`,
			want:     http.StatusBadRequest,
		},
		{
			name:     "unknown target status",
			statuses: map[string]Status{"sess-1": StatusCreated},
			actor:    &shared.Actor{ID: 7, Username: "ines"},
			target:   "/sess-1/transition",
			body:     `{"to":"archived"}`,
			want:     http.StatusBadRequest,
		},
		{
			name:     "unknown session",
			statuses: map[string]Status{},
			actor:    &shared.Actor{ID: 7, Username: "ines"},
			target:   "/missing/transition",
			body:     `{"to":"submitted"}`,
			want:     http.StatusNotFound,
		},
		{
			name:     "invalid edge",
			statuses: map[string]Status{"sess-1": StatusCreated},
			actor:    &shared.Actor{ID: 7, Username: "ines"},
			target:   "/sess-1/transition",
			body:     `{"to":"done"}`,
			want:     http.StatusConflict,
		},
		{
			name:     "grant missing",
			statuses: map[string]Status{"sess-1": StatusSubmitted},
			actor:    &shared.Actor{ID: 7, Username: "ines"},
			target:   "/sess-1/transition",
			body:     `{"to":"review"}`,
			want:     http.StatusForbidden,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(newStubRepository(tc.statuses), engineerRoles())
			rec := doRequest(t, router, http.MethodPost, tc.target, tc.body, tc.actor)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHistoryEndpointRequiresViewAccess(t *testing.T) {
	repo := newStubRepository(map[string]Status{"sess-1": StatusReview})
	roles := map[int64][]rbac.Role{
		5: {{Name: "approver", IsActive: true, StatusAccess: map[string]rbac.AccessLevel{"review": rbac.AccessView}}},
	}
	router := newTestRouter(repo, roles)

	rec := doRequest(t, router, http.MethodGet, "/sess-1/transitions", "", &shared.Actor{ID: 5, Username: "mara"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for view access, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodGet, "/sess-1/transitions", "", &shared.Actor{ID: 99, Username: "nobody"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without roles, got %d", rec.Code)
	}
}

func TestAllowedEndpointListsTargets(t *testing.T) {
	repo := newStubRepository(map[string]Status{"sess-1": StatusReview})
	roles := map[int64][]rbac.Role{
		4: {{
			Name:     "approver",
			IsActive: true,
			StatusTransitions: map[string]bool{
				rbac.TransitionUnderRevisionToRework:   true,
				rbac.TransitionUnderRevisionToApproved: true,
			},
			StatusAccess: map[string]rbac.AccessLevel{"review": rbac.AccessEdit},
		}},
	}
	router := newTestRouter(repo, roles)

	rec := doRequest(t, router, http.MethodGet, "/sess-1/transitions/allowed", "", &shared.Actor{ID: 4, Username: "mara"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp allowedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Current != StatusReview {
		t.Fatalf("expected current review, got %s", resp.Current)
	}
	if len(resp.Allowed) != 2 || resp.Allowed[0] != StatusDone || resp.Allowed[1] != StatusRework {
		t.Fatalf("expected [done rework], got %v", resp.Allowed)
	}
}
