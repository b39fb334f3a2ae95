package rbac

import "time"

// Action is an atomic capability on a named resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

// Transition grant keys understood by the role permission documents. The
// rework re-submission reuses the created_to_submitted grant.
const (
	TransitionCreatedToSubmitted      = "created_to_submitted"
	TransitionSubmittedToUnderRevision = "submitted_to_under_revision"
	TransitionUnderRevisionToRework   = "under_revision_to_rework"
	TransitionUnderRevisionToApproved = "under_revision_to_approved"
)

// AccessLevel describes how much of a survey a role may touch while the
// survey sits in a given status.
type AccessLevel string

const (
	AccessNone AccessLevel = "none"
	AccessView AccessLevel = "view"
	AccessEdit AccessLevel = "edit"
)

func (l AccessLevel) rank() int {
	switch l {
	case AccessEdit:
		return 2
	case AccessView:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether l grants at least the given level.
func (l AccessLevel) AtLeast(min AccessLevel) bool {
	return l.rank() >= min.rank()
}

// Role is a named permission grouping. Roles are seeded once and shared by
// many users; the permission documents are stored as JSONB.
type Role struct {
	ID                int64
	Name              string
	Description       string
	Permissions       map[string][]Action
	StatusTransitions map[string]bool
	StatusAccess      map[string]AccessLevel
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasStatusTransitionGrant reports whether the role carries the named
// transition grant. An absent key is not granted.
func (r Role) HasStatusTransitionGrant(key string) bool {
	if !r.IsActive {
		return false
	}
	return r.StatusTransitions[key]
}

// Can reports whether the role allows the action on the resource.
// The manage action implies every other action on the same resource.
func (r Role) Can(resource string, action Action) bool {
	if !r.IsActive {
		return false
	}
	for _, granted := range r.Permissions[resource] {
		if granted == action || granted == ActionManage {
			return true
		}
	}
	return false
}

// AccessFor returns the role's access level for a status name. Roles with
// no explicit entry get none.
func (r Role) AccessFor(status string) AccessLevel {
	if !r.IsActive {
		return AccessNone
	}
	if level, ok := r.StatusAccess[status]; ok {
		return level
	}
	return AccessNone
}

// Assignment ties a user to a role. A user may hold several concurrent
// assignments; the effective grant set is the union of the active ones.
type Assignment struct {
	UserID     int64      `json:"user_id"`
	RoleID     int64      `json:"role_id"`
	AssignedBy int64      `json:"assigned_by"`
	AssignedAt time.Time  `json:"assigned_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Active     bool       `json:"active"`
}

// Current reports whether the assignment is active and not expired at now.
func (a Assignment) Current(now time.Time) bool {
	if !a.Active {
		return false
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return false
	}
	return true
}

// AnyHasTransitionGrant reports whether at least one role in the set
// carries the grant key. A single qualifying role is sufficient.
func AnyHasTransitionGrant(roles []Role, key string) bool {
	for _, role := range roles {
		if role.HasStatusTransitionGrant(key) {
			return true
		}
	}
	return false
}

// EffectiveAccessLevel returns the maximum access level across the role
// set for the given status.
func EffectiveAccessLevel(roles []Role, status string) AccessLevel {
	level := AccessNone
	for _, role := range roles {
		if candidate := role.AccessFor(status); candidate.rank() > level.rank() {
			level = candidate
		}
	}
	return level
}

// AnyCan reports whether at least one role allows the action on the resource.
func AnyCan(roles []Role, resource string, action Action) bool {
	for _, role := range roles {
		if role.Can(resource, action) {
			return true
		}
	}
	return false
}
