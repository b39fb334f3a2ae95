package rbac

import "context"

// SeededRoles returns the built-in role catalog. super_admin and admin
// hold every transition grant but still only traverse defined edges; the
// edge table is a hard constraint for every role.
func SeededRoles() []Role {
	allTransitions := map[string]bool{
		TransitionCreatedToSubmitted:       true,
		TransitionSubmittedToUnderRevision: true,
		TransitionUnderRevisionToRework:    true,
		TransitionUnderRevisionToApproved:  true,
	}
	allEdit := map[string]AccessLevel{
		"created":   AccessEdit,
		"submitted": AccessEdit,
		"review":    AccessEdit,
		"rework":    AccessEdit,
		"done":      AccessEdit,
	}
	return []Role{
		{
			Name:        "super_admin",
			Description: "Full access to every resource and transition",
			Permissions: map[string][]Action{
				"surveys":       {ActionManage},
				"roles":         {ActionManage},
				"users":         {ActionManage},
				"notifications": {ActionManage},
			},
			StatusTransitions: allTransitions,
			StatusAccess:      allEdit,
			IsActive:          true,
		},
		{
			Name:        "admin",
			Description: "Administrative access without role management",
			Permissions: map[string][]Action{
				"surveys":       {ActionManage},
				"roles":         {ActionRead},
				"users":         {ActionManage},
				"notifications": {ActionManage},
			},
			StatusTransitions: allTransitions,
			StatusAccess:      allEdit,
			IsActive:          true,
		},
		{
			Name:        "coordinator",
			Description: "Moves submitted surveys into review",
			Permissions: map[string][]Action{
				"surveys": {ActionRead, ActionUpdate},
				"roles":   {ActionRead},
			},
			StatusTransitions: map[string]bool{
				TransitionSubmittedToUnderRevision: true,
			},
			StatusAccess: map[string]AccessLevel{
				"created":   AccessView,
				"submitted": AccessEdit,
				"review":    AccessView,
				"rework":    AccessView,
				"done":      AccessView,
			},
			IsActive: true,
		},
		{
			Name:        "survey_engineer",
			Description: "Fills in survey forms and submits them",
			Permissions: map[string][]Action{
				"surveys": {ActionCreate, ActionRead, ActionUpdate},
			},
			StatusTransitions: map[string]bool{
				TransitionCreatedToSubmitted: true,
			},
			StatusAccess: map[string]AccessLevel{
				"created":   AccessEdit,
				"submitted": AccessView,
				"review":    AccessView,
				"rework":    AccessEdit,
				"done":      AccessView,
			},
			IsActive: true,
		},
		{
			Name:        "approver",
			Description: "Reviews surveys, approving or sending back for rework",
			Permissions: map[string][]Action{
				"surveys": {ActionRead},
			},
			StatusTransitions: map[string]bool{
				TransitionUnderRevisionToRework:   true,
				TransitionUnderRevisionToApproved: true,
			},
			StatusAccess: map[string]AccessLevel{
				"submitted": AccessView,
				"review":    AccessEdit,
				"rework":    AccessView,
				"done":      AccessView,
			},
			IsActive: true,
		},
	}
}

// Seed upserts the built-in roles. Safe to run repeatedly.
func Seed(ctx context.Context, repo *Repository) error {
	for _, role := range SeededRoles() {
		if err := repo.UpsertRole(ctx, role); err != nil {
			return err
		}
	}
	return nil
}
