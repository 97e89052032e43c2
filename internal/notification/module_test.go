package notification

import (
	"context"
	"testing"
	"time"

	"estateflow_backend/internal/events"
	"estateflow_backend/platform/logger"
)

func TestComputeOutboxRetryDelay(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Minute},
		{attempt: 1, want: time.Minute},
		{attempt: 2, want: 2 * time.Minute},
		{attempt: 3, want: 4 * time.Minute},
		{attempt: 10, want: outboxRetryMaxDelay},
	}
	for _, tc := range cases {
		if got := computeOutboxRetryDelay(tc.attempt); got != tc.want {
			t.Errorf("computeOutboxRetryDelay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestHandle_SkipsWhenOutboxNotConfigured(t *testing.T) {
	m := New(nil, nil, nil, retriesConfig(3), logger.New("test"))

	err := m.Handle(context.Background(), events.PipelineCompleted{
		BaseEvent:      events.NewBaseEvent(),
		AssetReference: "unit-7",
		Direction:      "ACQUISITION",
	})
	if err != nil {
		t.Fatalf("Handle without outbox should be a no-op, got %v", err)
	}
}

func TestNew_DefaultsRetryAttempts(t *testing.T) {
	m := New(nil, nil, nil, retriesConfig(0), logger.New("test"))
	if m.maxAttempts != defaultOutboxRetryAttempts {
		t.Errorf("maxAttempts = %d, want %d", m.maxAttempts, defaultOutboxRetryAttempts)
	}
}

type retriesConfig int

func (c retriesConfig) GetNotificationRetries() int { return int(c) }
