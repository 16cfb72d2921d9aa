package app

import (
	"context"
	"fmt"
	"time"

	"scholarshelf/internal/util"
)

// Drain runs one fetch → upsert → acknowledge cycle for the user's mailbox.
// The cycle is safe to run concurrently with itself: upserts are idempotent
// and never clobber local read/claim state, and only the ids this cycle
// successfully persisted are acknowledged, so an overlapping cycle
// re-processing a not-yet-deleted entry is harmless. Per-entry upsert
// failures leave the entry buffered for the next cycle; only a fetch
// failure fails the whole call.
func (a *App) Drain(ctx context.Context, userID string) error {
	logger := util.LoggerFromContext(ctx)

	entries, err := a.mailbox.Fetch(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	if len(entries) == 0 {
		return nil
	}

	ackIDs := make([]string, 0, len(entries))
	newCount := 0
	for _, env := range entries {
		_, existed, err := a.store.GetInbox(ctx, userID, env.ID)
		if err != nil {
			logger.Warn("inbox lookup failed, entry stays buffered", "message_id", env.ID, "err", err)
			continue
		}
		if err := a.store.UpsertInbox(ctx, userID, env); err != nil {
			logger.Warn("inbox upsert failed, entry stays buffered", "message_id", env.ID, "err", err)
			continue
		}
		ackIDs = append(ackIDs, env.ID)
		if !existed {
			newCount++
		}
	}

	if len(ackIDs) > 0 {
		// Acknowledgment never precedes durable persistence: only ids
		// upserted above are deleted. A failed ack just means the next
		// cycle re-acks.
		if err := a.mailbox.Delete(ctx, userID, ackIDs); err != nil {
			logger.Warn("mailbox acknowledge failed, entries retried next cycle",
				"count", len(ackIDs), "err", err)
		}
	}
	if newCount > 0 {
		_ = a.broadcaster.Publish(ctx, userID)
	}
	return nil
}

// AutoDrain runs Drain immediately and then on a fixed interval until ctx
// is done. Drain errors are logged and the loop keeps going; a transient
// transport outage is retried on the next tick.
func (a *App) AutoDrain(ctx context.Context, userID string, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	logger := util.LoggerFromContext(ctx)
	if err := a.Drain(ctx, userID); err != nil {
		logger.Warn("drain cycle failed", "user_id", userID, "err", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Drain(ctx, userID); err != nil {
				logger.Warn("drain cycle failed", "user_id", userID, "err", err)
			}
		}
	}
}
