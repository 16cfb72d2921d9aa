// Package mailbox implements the transport buffer that moves envelopes
// between two otherwise-isolated user stores. It is the only channel that
// crosses the per-user storage boundary: senders append by opaque receiver
// id, receivers drain their own buffer and acknowledge by message id.
// Delivery is at-least-once; an entry may survive a crash between migration
// and acknowledgment and be re-fetched on the next cycle.
package mailbox

import (
	"context"

	"scholarshelf/pkg/domain"
)

// Mailbox is the receiver-addressed transient envelope store.
type Mailbox interface {
	// Append writes one envelope into the receiver's buffer.
	Append(ctx context.Context, receiverID string, env domain.Envelope) error
	// Fetch returns every buffered envelope addressed to the receiver.
	// The buffer is expected to stay small, so there is no pagination.
	Fetch(ctx context.Context, receiverID string) ([]domain.Envelope, error)
	// Delete acknowledges the given message ids in one batch. Unknown ids
	// are ignored so overlapping drain cycles can ack the same entry.
	Delete(ctx context.Context, receiverID string, ids []string) error
}
