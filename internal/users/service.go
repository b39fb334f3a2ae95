package users

import (
	"context"
	"time"

	"github.com/fieldtrack/fieldtrack/internal/rbac"
)

// RepositoryPort defines data access methods for assignments.
type RepositoryPort interface {
	AssignRole(ctx context.Context, a rbac.Assignment) error
	RevokeRole(ctx context.Context, userID, roleID int64) error
	ListAssignments(ctx context.Context, userID int64) ([]rbac.Assignment, error)
}

// RoleChecker verifies a role exists before assigning it.
type RoleChecker interface {
	GetRole(ctx context.Context, id int64) (rbac.Role, error)
}

// Service handles assignment business logic.
type Service struct {
	repo  RepositoryPort
	roles RoleChecker
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, roles RoleChecker) *Service {
	return &Service{repo: repo, roles: roles}
}

// AssignRole gives the user a role, recording who assigned it and an
// optional expiry. Unknown roles surface rbac.ErrRoleNotFound.
func (s *Service) AssignRole(ctx context.Context, userID, roleID, assignedBy int64, expiresAt *time.Time) error {
	if _, err := s.roles.GetRole(ctx, roleID); err != nil {
		return err
	}
	return s.repo.AssignRole(ctx, rbac.Assignment{
		UserID:     userID,
		RoleID:     roleID,
		AssignedBy: assignedBy,
		ExpiresAt:  expiresAt,
		Active:     true,
	})
}

// RevokeRole deactivates the user's assignment for the role.
func (s *Service) RevokeRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.RevokeRole(ctx, userID, roleID)
}

// ListAssignments returns all assignment rows for the user.
func (s *Service) ListAssignments(ctx context.Context, userID int64) ([]rbac.Assignment, error) {
	return s.repo.ListAssignments(ctx, userID)
}
