// Package notify carries the refresh signal emitted when a drain cycle
// lands new inbox records or a claim succeeds. Consumers re-poll the
// notification feed when signaled; this is a hint channel, not a delivery
// channel, so dropped signals only delay a refresh until the next poll.
package notify

import (
	"context"
	"sync"
)

// Broadcaster publishes per-user refresh signals.
type Broadcaster interface {
	// Publish signals that userID's feed should be recomputed.
	Publish(ctx context.Context, userID string) error
	// Subscribe returns a channel of user ids. The channel closes when ctx
	// is done.
	Subscribe(ctx context.Context) (<-chan string, error)
}

// MemoryBroadcaster fans signals out to in-process subscribers. Sends are
// non-blocking; a subscriber that falls behind misses hints, not data.
type MemoryBroadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan string
}

// NewMemoryBroadcaster initializes an in-process broadcaster.
func NewMemoryBroadcaster() *MemoryBroadcaster {
	return &MemoryBroadcaster{subs: make(map[int]chan string)}
}

func (b *MemoryBroadcaster) Publish(_ context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- userID:
		default:
		}
	}
	return nil
}

func (b *MemoryBroadcaster) Subscribe(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 16)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
