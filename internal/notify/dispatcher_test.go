package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/fieldtrack/fieldtrack/internal/workflow"
)

type stubEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (s *stubEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type fixedPolicy struct {
	recipients []int64
	err        error
}

func (p fixedPolicy) Recipients(context.Context, workflow.Event) ([]int64, error) {
	return p.recipients, p.err
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func sampleEvent() workflow.Event {
	return workflow.Event{
		SessionID:      "sess-1",
		From:           workflow.StatusCreated,
		To:             workflow.StatusSubmitted,
		ActingUserID:   7,
		ActingUsername: "ines",
	}
}

func TestDispatchEventEnqueuesOneTaskPerEvent(t *testing.T) {
	client := &stubEnqueuer{}
	d := NewDispatcher(fixedPolicy{recipients: []int64{8, 9}}, client, nopLogger())

	notifications, err := d.DispatchEvent(context.Background(), sampleEvent())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifications))
	}
	for _, n := range notifications {
		if n.Type != TypeStatusChange || n.SurveyID != "sess-1" {
			t.Fatalf("unexpected notification: %+v", n)
		}
		if !strings.Contains(n.Message, "created") || !strings.Contains(n.Message, "submitted") || !strings.Contains(n.Message, "ines") {
			t.Fatalf("message should name statuses and actor, got %q", n.Message)
		}
	}
	if len(client.tasks) != 1 {
		t.Fatalf("expected one fan-out task, got %d", len(client.tasks))
	}
	task := client.tasks[0]
	if task.Type() != TaskTypeStatusChange {
		t.Fatalf("unexpected task type %s", task.Type())
	}
	var payload statusChangePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Event.SessionID != "sess-1" || len(payload.Notifications) != 2 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDispatchEventNoRecipientsSkipsEnqueue(t *testing.T) {
	client := &stubEnqueuer{}
	d := NewDispatcher(fixedPolicy{}, client, nopLogger())

	notifications, err := d.DispatchEvent(context.Background(), sampleEvent())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(notifications) != 0 || len(client.tasks) != 0 {
		t.Fatal("expected no notifications and no enqueue for empty recipient set")
	}
}

func TestDispatchEventSurfacesEnqueueFailure(t *testing.T) {
	client := &stubEnqueuer{err: errors.New("broker down")}
	d := NewDispatcher(fixedPolicy{recipients: []int64{8}}, client, nopLogger())

	if _, err := d.DispatchEvent(context.Background(), sampleEvent()); err == nil {
		t.Fatal("expected enqueue failure to surface to the caller")
	}
}

type recordingSink struct {
	created []Notification
	err     error
}

func (s *recordingSink) Create(_ context.Context, n Notification) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, n)
	return nil
}

func TestTaskHandlerPersistsEachNotification(t *testing.T) {
	client := &stubEnqueuer{}
	d := NewDispatcher(fixedPolicy{recipients: []int64{8, 9}}, client, nopLogger())
	if _, err := d.DispatchEvent(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	sink := &recordingSink{}
	handler := NewTaskHandler(sink, nopLogger())
	if err := handler(context.Background(), client.tasks[0]); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.created) != 2 {
		t.Fatalf("expected 2 stored notifications, got %d", len(sink.created))
	}
	if sink.created[0].RecipientID != 8 || sink.created[1].RecipientID != 9 {
		t.Fatalf("unexpected recipients: %+v", sink.created)
	}
}

func TestTaskHandlerSkipsRetryOnMalformedPayload(t *testing.T) {
	handler := NewTaskHandler(&recordingSink{}, nopLogger())
	task := asynq.NewTask(TaskTypeStatusChange, []byte("{not json"))

	err := handler(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for malformed payload, got %v", err)
	}
}

func TestTaskHandlerPropagatesSinkFailureForRetry(t *testing.T) {
	client := &stubEnqueuer{}
	d := NewDispatcher(fixedPolicy{recipients: []int64{8}}, client, nopLogger())
	if _, err := d.DispatchEvent(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	sink := &recordingSink{err: errors.New("db down")}
	handler := NewTaskHandler(sink, nopLogger())
	err := handler(context.Background(), client.tasks[0])
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected retryable failure, got %v", err)
	}
}
