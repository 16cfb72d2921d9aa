package domain

import "time"

// Task is a deadline-bound to-do in the owner's task registry.
type Task struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	Done      bool      `json:"done"`
	Deadline  time.Time `json:"deadline"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TaskUrgency string

const (
	UrgencyOverdue  TaskUrgency = "overdue"
	UrgencyDueToday TaskUrgency = "due_today"
	UrgencyUpcoming TaskUrgency = "upcoming"
)

// TaskAlert is a task surfaced in the notification feed, tagged with its
// urgency tier.
type TaskAlert struct {
	Task     Task        `json:"task"`
	Urgency  TaskUrgency `json:"urgency"`
	DaysLeft int         `json:"daysLeft"`
}

// NotificationFeed is a transient projection recomputed per request; it is
// never persisted.
type NotificationFeed struct {
	InboxAlerts []Envelope  `json:"inboxAlerts"`
	TaskAlerts  []TaskAlert `json:"taskAlerts"`
}

// ClassifyTask decides whether an open task belongs in the feed and with
// which urgency tier. Comparison is at calendar-day granularity in UTC:
// days-left < 0 is overdue, 0 is due today, 1..horizonDays is upcoming.
// Tasks past the horizon are excluded (ok=false); they remain visible in the
// task registry itself.
func ClassifyTask(t Task, now time.Time, horizonDays int) (TaskAlert, bool) {
	days := daysUntil(t.Deadline, now)
	switch {
	case days < 0:
		return TaskAlert{Task: t, Urgency: UrgencyOverdue, DaysLeft: days}, true
	case days == 0:
		return TaskAlert{Task: t, Urgency: UrgencyDueToday, DaysLeft: 0}, true
	case days <= horizonDays:
		return TaskAlert{Task: t, Urgency: UrgencyUpcoming, DaysLeft: days}, true
	default:
		return TaskAlert{}, false
	}
}

func daysUntil(deadline, now time.Time) int {
	d := truncateToDay(deadline)
	n := truncateToDay(now)
	return int(d.Sub(n).Hours() / 24)
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
