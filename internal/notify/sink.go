package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sink provides PostgreSQL backed notification persistence.
type Sink struct {
	pool *pgxpool.Pool
}

// NewSink constructs a Sink.
func NewSink(pool *pgxpool.Pool) *Sink {
	return &Sink{pool: pool}
}

// Create persists a notification. The creation timestamp is assigned
// server side.
func (s *Sink) Create(ctx context.Context, n Notification) error {
	if s == nil {
		return errors.New("notify: sink not initialised")
	}
	if n.RecipientID == 0 {
		return errors.New("notify: recipient required")
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO notifications (id, recipient_id, title, message, type, related_survey_id, related_project_id, is_read, created_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, FALSE, NOW())`,
		n.ID, n.RecipientID, n.Title, n.Message, string(n.Type), n.SurveyID, n.ProjectID)
	return err
}

// ListForRecipient returns the recipient's notifications newest first.
func (s *Sink) ListForRecipient(ctx context.Context, recipientID int64, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `SELECT id, recipient_id, title, message, type, COALESCE(related_survey_id, ''), related_project_id, is_read, created_at, read_at
FROM notifications WHERE recipient_id = $1 ORDER BY created_at DESC, id LIMIT $2`, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var notifications []Notification
	for rows.Next() {
		var n Notification
		var typ string
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &typ, &n.SurveyID, &n.ProjectID, &n.IsRead, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, err
		}
		n.Type = Type(typ)
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead flips is_read to true for the recipient's own notification.
// read_at keeps its first value on repeated calls.
func (s *Sink) MarkRead(ctx context.Context, id uuid.UUID, recipientID int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications
SET is_read = TRUE, read_at = COALESCE(read_at, NOW())
WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
