package scheduler

import (
	"context"
	"testing"

	"estateflow_backend/internal/events"

	"github.com/hibiken/asynq"
)

type syncRecordingBus struct {
	events.Bus
	published []events.Event
}

func (b *syncRecordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}

func TestWorker_OutboxDueTaskPublishesBusEvent(t *testing.T) {
	bus := &syncRecordingBus{}
	w := &Worker{bus: bus}

	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{
		OutboxID:       "0b8f6f9e-6a3f-4f2b-9f3e-1a2b3c4d5e6f",
		OrganizationID: "7c1d2e3f-4a5b-6c7d-8e9f-0a1b2c3d4e5f",
	})
	if err != nil {
		t.Fatalf("NewNotificationOutboxDueTask: %v", err)
	}

	if err := w.handleNotificationOutboxDue(context.Background(), task); err != nil {
		t.Fatalf("handleNotificationOutboxDue: %v", err)
	}

	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	due, ok := bus.published[0].(events.NotificationOutboxDue)
	if !ok {
		t.Fatalf("published event is %T, want NotificationOutboxDue", bus.published[0])
	}
	if due.OutboxID.String() != "0b8f6f9e-6a3f-4f2b-9f3e-1a2b3c4d5e6f" {
		t.Errorf("outbox id = %s", due.OutboxID)
	}
}

func TestWorker_OutboxDueTaskRejectsMalformedPayload(t *testing.T) {
	bus := &syncRecordingBus{}
	w := &Worker{bus: bus}

	task := asynq.NewTask(TaskNotificationOutboxDue, []byte("{not json"))
	if err := w.handleNotificationOutboxDue(context.Background(), task); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if len(bus.published) != 0 {
		t.Errorf("published %d events, want 0", len(bus.published))
	}
}
