package app

import (
	"context"
	"fmt"

	"scholarshelf/pkg/domain"
)

// Claim converts a received envelope into an independently-owned library
// reference exactly once. The status precondition is enforced at the store
// boundary with a conditional update inside the same transaction that
// persists the reference, so concurrent claims on the same message produce
// exactly one reference; the losers get ErrAlreadyClaimed and no side
// effects. A failed reference write leaves the status unclaimed, so the
// call is safely retryable.
func (a *App) Claim(ctx context.Context, userID, messageID string) (domain.Reference, error) {
	env, ok, err := a.store.GetInbox(ctx, userID, messageID)
	if err != nil {
		return domain.Reference{}, fmt.Errorf("load inbox record: %w", err)
	}
	if !ok {
		return domain.Reference{}, ErrNotFound
	}
	if env.Status != domain.ShareUnclaimed {
		return domain.Reference{}, ErrAlreadyClaimed
	}

	// Only the descriptive snapshot crosses over; identity blocks, message
	// text, timestamps and flags stay behind.
	ref := domain.NewClaimedReference(userID, env.Snapshot)

	claimed, err := a.store.ClaimInbox(ctx, userID, messageID, ref)
	if err != nil {
		return domain.Reference{}, fmt.Errorf("claim %s: %w", messageID, err)
	}
	if !claimed {
		// Lost the race after the cached read above; the store-level
		// conditional is authoritative.
		return domain.Reference{}, ErrAlreadyClaimed
	}
	_ = a.broadcaster.Publish(ctx, userID)
	return ref, nil
}
