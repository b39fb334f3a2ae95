package notify

import (
	"context"
	"sort"

	"github.com/fieldtrack/fieldtrack/internal/rbac"
	"github.com/fieldtrack/fieldtrack/internal/workflow"
)

// RecipientPolicy selects who should hear about an applied transition.
// The concrete policy is a deployment decision; the dispatcher only
// depends on this contract.
type RecipientPolicy interface {
	Recipients(ctx context.Context, event workflow.Event) ([]int64, error)
}

// RoleLister exposes the catalog snapshot.
type RoleLister interface {
	ListRoles() []rbac.Role
}

// MembershipStore resolves which users hold the given roles.
type MembershipStore interface {
	ListUserIDsForRoles(ctx context.Context, roleIDs []int64) ([]int64, error)
}

// EditAccessPolicy notifies the holders of roles with edit access on the
// status the survey just left: they are the ones whose work moved on.
// The acting user is excluded.
type EditAccessPolicy struct {
	Catalog RoleLister
	Members MembershipStore
}

// Recipients implements RecipientPolicy.
func (p EditAccessPolicy) Recipients(ctx context.Context, event workflow.Event) ([]int64, error) {
	var roleIDs []int64
	for _, role := range p.Catalog.ListRoles() {
		if role.AccessFor(string(event.From)) == rbac.AccessEdit {
			roleIDs = append(roleIDs, role.ID)
		}
	}
	if len(roleIDs) == 0 {
		return nil, nil
	}
	userIDs, err := p.Members.ListUserIDsForRoles(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(userIDs))
	var recipients []int64
	for _, id := range userIDs {
		if id == event.ActingUserID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	sort.Slice(recipients, func(i, j int) bool { return recipients[i] < recipients[j] })
	return recipients, nil
}
