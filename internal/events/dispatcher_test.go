package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherInvokesSubscribedHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var seen []EventType
	d.Subscribe(EventTipRecorded, func(ctx context.Context, e Event) error {
		seen = append(seen, e.Type)
		return nil
	})
	d.Subscribe(EventTipRecorded, func(ctx context.Context, e Event) error {
		seen = append(seen, e.Type)
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTipRecorded, IssueID: "i1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("handlers invoked %d times, want 2", len(seen))
	}
}

func TestDispatcherIgnoresUnrelatedEvents(t *testing.T) {
	d := NewInMemoryDispatcher()

	called := false
	d.Subscribe(EventIssueDeleted, func(ctx context.Context, e Event) error {
		called = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventMessagePosted}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if called {
		t.Fatal("handler invoked for unrelated event type")
	}
}

func TestDispatcherContinuesPastHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher()

	var reached bool
	d.Subscribe(EventIssueReported, func(ctx context.Context, e Event) error {
		return errors.New("boom")
	})
	d.Subscribe(EventIssueReported, func(ctx context.Context, e Event) error {
		reached = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventIssueReported}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !reached {
		t.Fatal("later handler skipped after an earlier error")
	}
}
