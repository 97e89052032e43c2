package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishSync_DeliversToAllSubscribers(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var first, second int
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		first++
		return nil
	}))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		second++
		return nil
	}))
	bus.Subscribe("other.event", HandlerFunc(func(context.Context, Event) error {
		t.Error("handler for other.event must not fire")
		return nil
	}))

	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "test.event"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != 1 || second != 1 {
		t.Fatalf("expected both handlers to fire once, got %d and %d", first, second)
	}
}

func TestPublishSync_JoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryBus(nil)

	wantErr := errors.New("handler failed")
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		return wantErr
	}))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "test.event"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped handler error, got %v", err)
	}
}

func TestPublish_AsyncDelivery(t *testing.T) {
	bus := NewInMemoryBus(nil)

	done := make(chan struct{})
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		close(done)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "test.event"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handler was not invoked")
	}
}

func TestPublish_RecoversPanickingHandler(t *testing.T) {
	bus := NewInMemoryBus(nil)

	done := make(chan struct{})
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		panic("boom")
	}))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		close(done)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "test.event"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("panicking sibling handler blocked delivery")
	}
}
