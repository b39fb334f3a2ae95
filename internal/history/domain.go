// Package history keeps the append-only audit trail of status transitions.
package history

import (
	"time"

	"github.com/google/uuid"
)

// TransitionEvent is one ledger entry. Immutable once written; corrections
// are made by appending a corrective entry, never by editing history.
type TransitionEvent struct {
	ID            uuid.UUID `json:"id"`
	SessionID     string    `json:"session_id"`
	Username      string    `json:"username"`
	CurrentStatus string    `json:"current_status"`
	NewStatus     string    `json:"new_status"`
	Note          string    `json:"note,omitempty"`
	At            time.Time `json:"at"`
}
