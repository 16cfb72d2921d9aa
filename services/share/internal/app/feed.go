package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"scholarshelf/internal/util"
	"scholarshelf/pkg/domain"
)

// Feed recomputes the notification projection: unread inbox envelopes
// newest first, plus open tasks whose deadline falls inside the urgency
// horizon. Both registries are read concurrently; a failing source degrades
// to an empty list instead of failing the whole feed.
func (a *App) Feed(ctx context.Context, userID string) domain.NotificationFeed {
	logger := util.LoggerFromContext(ctx)
	feed := domain.NotificationFeed{
		InboxAlerts: []domain.Envelope{},
		TaskAlerts:  []domain.TaskAlert{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		unread, err := a.store.ListUnreadInbox(gctx, userID)
		if err != nil {
			logger.Warn("inbox registry unavailable, feed degrades", "err", err)
			return nil
		}
		feed.InboxAlerts = unread
		return nil
	})
	g.Go(func() error {
		tasks, err := a.store.ListOpenTasks(gctx, userID)
		if err != nil {
			logger.Warn("task registry unavailable, feed degrades", "err", err)
			return nil
		}
		now := time.Now()
		alerts := make([]domain.TaskAlert, 0, len(tasks))
		for _, t := range tasks {
			if alert, ok := domain.ClassifyTask(t, now, a.horizonDays); ok {
				alerts = append(alerts, alert)
			}
		}
		feed.TaskAlerts = alerts
		return nil
	})
	_ = g.Wait()
	return feed
}
