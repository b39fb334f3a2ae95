package rbac

import (
	"context"
	"errors"
)

// AssignmentStore resolves which roles a user currently holds.
type AssignmentStore interface {
	ListRolesForUser(ctx context.Context, userID int64) ([]Role, error)
}

// Service orchestrates role catalog reads and effective-permission
// resolution. Permission checks are always mediated through roles; the
// user is never consulted directly.
type Service struct {
	catalog     *Catalog
	assignments AssignmentStore
}

// NewService constructs a Service.
func NewService(catalog *Catalog, assignments AssignmentStore) *Service {
	return &Service{catalog: catalog, assignments: assignments}
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.catalog.GetRole(ctx, id)
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	if roles := s.catalog.ListRoles(); len(roles) > 0 {
		return roles, nil
	}
	// Snapshot may be empty before the first reload.
	if err := s.catalog.Reload(ctx); err != nil {
		return nil, err
	}
	return s.catalog.ListRoles(), nil
}

// RolesForUser returns the roles held through active, non-expired
// assignments. An unknown user simply holds no roles.
func (s *Service) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	if s.assignments == nil {
		return nil, errors.New("rbac: assignment store not configured")
	}
	return s.assignments.ListRolesForUser(ctx, userID)
}

// PermissionDocument is the union of the grant documents across a role set.
type PermissionDocument struct {
	Roles             []string               `json:"roles"`
	Permissions       map[string][]Action    `json:"permissions"`
	StatusTransitions map[string]bool        `json:"status_transitions"`
	StatusAccess      map[string]AccessLevel `json:"status_access"`
}

// EffectivePermissions unions the grant documents of all roles the user
// currently holds.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) (PermissionDocument, error) {
	roles, err := s.RolesForUser(ctx, userID)
	if err != nil {
		return PermissionDocument{}, err
	}
	doc := PermissionDocument{
		Permissions:       map[string][]Action{},
		StatusTransitions: map[string]bool{},
		StatusAccess:      map[string]AccessLevel{},
	}
	for _, role := range roles {
		doc.Roles = append(doc.Roles, role.Name)
		for resource, actions := range role.Permissions {
			doc.Permissions[resource] = unionActions(doc.Permissions[resource], actions)
		}
		for key, granted := range role.StatusTransitions {
			if granted {
				doc.StatusTransitions[key] = true
			}
		}
		for status, level := range role.StatusAccess {
			if level.rank() > doc.StatusAccess[status].rank() {
				doc.StatusAccess[status] = level
			}
		}
	}
	return doc, nil
}

func unionActions(existing, extra []Action) []Action {
	seen := make(map[Action]struct{}, len(existing))
	for _, a := range existing {
		seen[a] = struct{}{}
	}
	for _, a := range extra {
		if _, ok := seen[a]; !ok {
			existing = append(existing, a)
			seen[a] = struct{}{}
		}
	}
	return existing
}
