package notify

import (
	"context"
	"testing"
	"time"
)

func TestMemoryBroadcasterDelivers(t *testing.T) {
	b := NewMemoryBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := b.Publish(context.Background(), "XN-001"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case got := <-ch:
		if got != "XN-001" {
			t.Fatalf("signal = %q", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("signal never arrived")
	}
}

func TestMemoryBroadcasterUnsubscribesOnCancel(t *testing.T) {
	b := NewMemoryBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				// Late publishes must not panic on the closed channel's slot.
				if err := b.Publish(context.Background(), "XN-001"); err != nil {
					t.Fatalf("publish after cancel: %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatalf("channel never closed after cancel")
		}
	}
}

func TestMemoryBroadcasterDropsWhenSubscriberLags(t *testing.T) {
	b := NewMemoryBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := b.Subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	// Nobody is reading; publishes beyond the buffer are dropped, not blocked.
	for i := 0; i < 100; i++ {
		if err := b.Publish(context.Background(), "XN-001"); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
}
