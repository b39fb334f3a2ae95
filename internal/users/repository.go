package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldtrack/fieldtrack/internal/rbac"
)

// Repository provides PostgreSQL backed persistence for assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AssignRole records a new active assignment.
func (r *Repository) AssignRole(ctx context.Context, a rbac.Assignment) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_role_assignments (user_id, role_id, assigned_by, assigned_at, expires_at, active)
VALUES ($1, $2, $3, NOW(), $4, TRUE)`, a.UserID, a.RoleID, a.AssignedBy, a.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyAssigned
		}
		return err
	}
	return nil
}

// RevokeRole deactivates an assignment. History is kept; the row is
// never deleted.
func (r *Repository) RevokeRole(ctx context.Context, userID, roleID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE user_role_assignments SET active = FALSE
WHERE user_id = $1 AND role_id = $2 AND active`, userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

// ListAssignments returns all assignments for a user, newest first,
// including revoked and expired rows.
func (r *Repository) ListAssignments(ctx context.Context, userID int64) ([]rbac.Assignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, role_id, assigned_by, assigned_at, expires_at, active
FROM user_role_assignments WHERE user_id = $1 ORDER BY assigned_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assignments []rbac.Assignment
	for rows.Next() {
		var a rbac.Assignment
		if err := rows.Scan(&a.UserID, &a.RoleID, &a.AssignedBy, &a.AssignedAt, &a.ExpiresAt, &a.Active); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// ListUserIDsForRoles returns the distinct users currently holding any of
// the given roles. Used by the notification recipient policy.
func (r *Repository) ListUserIDsForRoles(ctx context.Context, roleIDs []int64) ([]int64, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT user_id FROM user_role_assignments
WHERE role_id = ANY($1) AND active AND (expires_at IS NULL OR expires_at > NOW())
ORDER BY user_id`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return userIDs, nil
}
