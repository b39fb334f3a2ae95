package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/fieldtrack/fieldtrack/internal/workflow"
)

// TaskTypeStatusChange is the asynq task type for status-change fan-out.
const TaskTypeStatusChange = "notify:status_change"

// statusChangePayload carries one applied transition and the
// notifications built for it.
type statusChangePayload struct {
	Event         workflow.Event `json:"event"`
	Notifications []Notification `json:"notifications"`
}

// NewStatusChangeTask constructs the asynq task for an applied transition.
func NewStatusChangeTask(event workflow.Event, notifications []Notification) (*asynq.Task, error) {
	data, err := json.Marshal(statusChangePayload{Event: event, Notifications: notifications})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeStatusChange, data), nil
}

// SinkWriter is the persistence surface the task handler needs.
type SinkWriter interface {
	Create(ctx context.Context, n Notification) error
}

// NewTaskHandler returns the worker handler persisting the enqueued
// notifications. A malformed payload is dropped rather than retried.
func NewTaskHandler(sink SinkWriter, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload statusChangePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			if logger != nil {
				logger.Error("malformed status change payload", slog.Any("error", err))
			}
			return asynq.SkipRetry
		}
		for _, n := range payload.Notifications {
			if err := sink.Create(ctx, n); err != nil {
				return err
			}
		}
		if logger != nil {
			logger.Info("status change notifications stored",
				slog.String("session_id", payload.Event.SessionID),
				slog.Int("count", len(payload.Notifications)))
		}
		return nil
	}
}
