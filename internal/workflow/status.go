// Package workflow implements the survey status lifecycle: the transition
// state machine, the orchestration service and its HTTP surface.
package workflow

import (
	"sort"

	"github.com/fieldtrack/fieldtrack/internal/rbac"
)

// Status represents the review lifecycle of a site survey.
type Status string

const (
	StatusCreated   Status = "created"   // initial state, form still editable
	StatusSubmitted Status = "submitted" // handed over for coordination
	StatusReview    Status = "review"    // under revision by an approver
	StatusRework    Status = "rework"    // sent back for corrections
	StatusDone      Status = "done"      // approved, terminal
)

// IsValid checks if the status is one of the five lifecycle values.
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusSubmitted, StatusReview, StatusRework, StatusDone:
		return true
	default:
		return false
	}
}

// Edge is a permitted (from, to) pair in the state machine.
type Edge struct {
	From Status
	To   Status
}

// transitionGrants maps every legal edge to the role grant key required to
// traverse it. Pairs outside this table are never legal, whatever the
// actor's roles; rework back to submitted re-enters the submission edge
// and reuses its grant. No edge leaves done.
var transitionGrants = map[Edge]string{
	{StatusCreated, StatusSubmitted}:  rbac.TransitionCreatedToSubmitted,
	{StatusSubmitted, StatusReview}:   rbac.TransitionSubmittedToUnderRevision,
	{StatusReview, StatusRework}:      rbac.TransitionUnderRevisionToRework,
	{StatusReview, StatusDone}:        rbac.TransitionUnderRevisionToApproved,
	{StatusRework, StatusSubmitted}:   rbac.TransitionCreatedToSubmitted,
}

// GrantKey returns the grant key guarding the edge, or false when the
// pair is not a defined edge.
func GrantKey(from, to Status) (string, bool) {
	key, ok := transitionGrants[Edge{From: from, To: to}]
	return key, ok
}

// AllowedFrom lists the statuses reachable from the given status for the
// role set, sorted for determinism.
func AllowedFrom(roles []rbac.Role, from Status) []Status {
	var targets []Status
	for edge, key := range transitionGrants {
		if edge.From != from {
			continue
		}
		if rbac.AnyHasTransitionGrant(roles, key) {
			targets = append(targets, edge.To)
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}
