package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/fieldtrack/fieldtrack/internal/workflow"
)

// TaskEnqueuer abstracts the asynq client. *asynq.Client satisfies it.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher builds notifications for an applied transition and hands
// them to the worker queue. Everything here is best effort: an enqueue
// failure is the caller's to log, never to propagate as a request
// failure.
type Dispatcher struct {
	policy RecipientPolicy
	client TaskEnqueuer
	logger *slog.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(policy RecipientPolicy, client TaskEnqueuer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{policy: policy, client: client, logger: logger}
}

// DispatchEvent resolves recipients, builds the notifications and
// enqueues one fan-out task carrying them. Returns the notifications
// handed to the queue.
func (d *Dispatcher) DispatchEvent(ctx context.Context, event workflow.Event) ([]Notification, error) {
	recipients, err := d.policy.Recipients(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("notify: resolve recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	notifications := make([]Notification, 0, len(recipients))
	for _, recipientID := range recipients {
		notifications = append(notifications, Notification{
			ID:          uuid.New(),
			RecipientID: recipientID,
			Title:       "Survey status changed",
			Message:     fmt.Sprintf("Survey %s moved from %s to %s by %s", event.SessionID, event.From, event.To, event.ActingUsername),
			Type:        TypeStatusChange,
			SurveyID:    event.SessionID,
		})
	}

	task, err := NewStatusChangeTask(event, notifications)
	if err != nil {
		return nil, fmt.Errorf("notify: build task: %w", err)
	}
	if _, err := d.client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		return nil, fmt.Errorf("notify: enqueue: %w", err)
	}
	if d.logger != nil {
		d.logger.Info("status change notifications enqueued",
			slog.String("session_id", event.SessionID),
			slog.Int("recipients", len(notifications)))
	}
	return notifications, nil
}

// Dispatch implements the workflow dispatcher port.
func (d *Dispatcher) Dispatch(ctx context.Context, event workflow.Event) error {
	_, err := d.DispatchEvent(ctx, event)
	return err
}
