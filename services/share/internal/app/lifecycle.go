package app

import (
	"context"
	"fmt"

	"scholarshelf/pkg/domain"
	"scholarshelf/pkg/storage"
	"scholarshelf/pkg/store"
)

// MarkRead flips only the inbox record's read flag. Claim status and the
// sender's sent record are untouched.
func (a *App) MarkRead(ctx context.Context, userID, messageID string) error {
	_, ok, err := a.store.GetInbox(ctx, userID, messageID)
	if err != nil {
		return fmt.Errorf("load inbox record: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return a.store.MarkInboxRead(ctx, userID, messageID)
}

// Delete removes the record from exactly one side's registry. Inbox and
// sent copies of the same message id are uncoupled after delivery, so no
// cascade ever happens.
func (a *App) Delete(ctx context.Context, userID, messageID string, side store.Side) error {
	switch side {
	case store.SideInbox:
		return a.store.DeleteInbox(ctx, userID, messageID)
	case store.SideSent:
		return a.store.DeleteSent(ctx, userID, messageID)
	default:
		return fmt.Errorf("unknown side %q", side)
	}
}

// Inbox lists the user's inbox envelopes newest first.
func (a *App) Inbox(ctx context.Context, userID string) ([]domain.Envelope, error) {
	return a.store.ListInbox(ctx, userID)
}

// Sent lists the user's sent history newest first.
func (a *App) Sent(ctx context.Context, userID string) ([]domain.Envelope, error) {
	return a.store.ListSent(ctx, userID)
}

// SourceReference loads one of the sender's own library references for
// submission.
func (a *App) SourceReference(ctx context.Context, userID, refID string) (domain.Reference, error) {
	ref, ok, err := a.store.GetReference(ctx, userID, refID)
	if err != nil {
		return domain.Reference{}, fmt.Errorf("load reference: %w", err)
	}
	if !ok {
		return domain.Reference{}, ErrNotFound
	}
	return ref, nil
}

// ContentURL resolves a pre-signed URL for an inbox envelope's blob content.
// Only viewing code calls this; the drain cycle never touches blobs.
func (a *App) ContentURL(ctx context.Context, userID, messageID, kind string) (string, error) {
	if a.content == nil {
		return "", fmt.Errorf("content store not configured")
	}
	env, ok, err := a.store.GetInbox(ctx, userID, messageID)
	if err != nil {
		return "", fmt.Errorf("load inbox record: %w", err)
	}
	if !ok {
		return "", ErrNotFound
	}
	var key string
	switch kind {
	case storage.KindFullText:
		key = env.Snapshot.FullTextKey
	case storage.KindInsights:
		key = env.Snapshot.InsightsKey
	default:
		return "", fmt.Errorf("unknown content kind %q", kind)
	}
	if key == "" {
		return "", ErrNotFound
	}
	return a.content.PresignGet(ctx, key, a.presignExpiry)
}
