package workflow

import "errors"

// Domain errors for status transitions.
var (
	// ErrInvalidEdge indicates the requested status pair is not a defined
	// transition. Distinct from ErrTransitionDenied so callers can tell
	// "no such transition" from "you lack permission".
	ErrInvalidEdge = errors.New("no transition defined between these statuses")

	// ErrTransitionDenied indicates the edge exists but none of the
	// actor's roles carries the required grant.
	ErrTransitionDenied = errors.New("role grants do not permit this transition")

	// ErrConsistency indicates the status update and the ledger append
	// could not be applied as one unit. Fatal; requires operator
	// remediation, never an automatic retry.
	ErrConsistency = errors.New("status and history ledger are inconsistent")
)
