package workflow

import (
	"fmt"

	"github.com/fieldtrack/fieldtrack/internal/rbac"
)

// SurveyRecord is the slice of a survey this package owns: the session
// identifier and the current status. The rest of the form data lives in
// the record store and is never touched here.
type SurveyRecord struct {
	SessionID string
	Status    Status
}

// Engine is the authoritative state machine. Edges are hard constraints
// for every role; grants only decide who may traverse an existing edge.
type Engine struct{}

// Validate checks whether the role set may move a survey from one status
// to another. Returns ErrInvalidEdge when the pair is not an edge (self
// transitions and skips included), ErrTransitionDenied when the edge
// exists but no held role carries the grant.
func (Engine) Validate(roles []rbac.Role, from, to Status) error {
	key, ok := GrantKey(from, to)
	if !ok {
		return fmt.Errorf("%w: %s to %s", ErrInvalidEdge, from, to)
	}
	if !rbac.AnyHasTransitionGrant(roles, key) {
		return fmt.Errorf("%w: %s requires grant %s", ErrTransitionDenied, to, key)
	}
	return nil
}

// Apply sets the record's status to the target verbatim. Validation,
// history and notification are the service's job, not the engine's.
func (Engine) Apply(record *SurveyRecord, to Status) {
	record.Status = to
}
