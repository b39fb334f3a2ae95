// Package notify fans status-change events out to interested users.
package notify

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification.
type Type string

const (
	TypeStatusChange Type = "status_change"
	TypeAssignment   Type = "assignment"
	TypeSystem       Type = "system"
)

// Notification is one message for one recipient. IsRead only moves
// false to true; ReadAt is set once, on the first read.
type Notification struct {
	ID          uuid.UUID  `json:"id"`
	RecipientID int64      `json:"recipient_id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Type        Type       `json:"type"`
	SurveyID    string     `json:"related_survey_id,omitempty"`
	ProjectID   *int64     `json:"related_project_id,omitempty"`
	IsRead      bool       `json:"is_read"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// ErrNotificationNotFound indicates no notification matches the id for
// this recipient.
var ErrNotificationNotFound = errors.New("notification not found")
