package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRoleNotFound indicates that the requested role does not exist.
var ErrRoleNotFound = errors.New("rbac: role not found")

// Repository provides PostgreSQL backed persistence for roles and
// user-role assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, name, description, permissions, status_transitions, status_access, is_active, created_at, updated_at`

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrRoleNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// GetRoleByName fetches a role by its unique name.
func (r *Repository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrRoleNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// ListRolesForUser returns the roles held by a user through active,
// non-expired assignments. Inactive roles are excluded.
func (r *Repository) ListRolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT r.id, r.name, r.description, r.permissions, r.status_transitions, r.status_access, r.is_active, r.created_at, r.updated_at
FROM roles r
JOIN user_role_assignments a ON a.role_id = r.id
WHERE a.user_id = $1
  AND a.active
  AND (a.expires_at IS NULL OR a.expires_at > NOW())
  AND r.is_active
ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// UpsertRole inserts or updates a role by name. Used by the seed command.
func (r *Repository) UpsertRole(ctx context.Context, role Role) error {
	permissions, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("rbac: marshal permissions: %w", err)
	}
	transitions, err := json.Marshal(role.StatusTransitions)
	if err != nil {
		return fmt.Errorf("rbac: marshal status transitions: %w", err)
	}
	access, err := json.Marshal(role.StatusAccess)
	if err != nil {
		return fmt.Errorf("rbac: marshal status access: %w", err)
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO roles (name, description, permissions, status_transitions, status_access, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
ON CONFLICT (name) DO UPDATE SET
  description = EXCLUDED.description,
  permissions = EXCLUDED.permissions,
  status_transitions = EXCLUDED.status_transitions,
  status_access = EXCLUDED.status_access,
  is_active = EXCLUDED.is_active,
  updated_at = NOW()`,
		role.Name, role.Description, permissions, transitions, access, role.IsActive)
	return err
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	var permissions, transitions, access []byte
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &permissions, &transitions, &access, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, err
	}
	if len(permissions) > 0 {
		if err := json.Unmarshal(permissions, &role.Permissions); err != nil {
			return Role{}, fmt.Errorf("rbac: unmarshal permissions: %w", err)
		}
	}
	if len(transitions) > 0 {
		if err := json.Unmarshal(transitions, &role.StatusTransitions); err != nil {
			return Role{}, fmt.Errorf("rbac: unmarshal status transitions: %w", err)
		}
	}
	if len(access) > 0 {
		if err := json.Unmarshal(access, &role.StatusAccess); err != nil {
			return Role{}, fmt.Errorf("rbac: unmarshal status access: %w", err)
		}
	}
	return role, nil
}
