package store

import (
	"context"

	"scholarshelf/pkg/domain"
)

// Side selects which per-user registry an operation targets. Inbox and sent
// records for the same message id are intentionally uncoupled after
// delivery.
type Side string

const (
	SideInbox Side = "inbox"
	SideSent  Side = "sent"
)

// Store defines persistence for the per-user share registries: inbox, sent,
// library and tasks. All lookups use the (value, ok, error) convention;
// absence is not an error.
type Store interface {
	// inbox
	// UpsertInbox inserts or refreshes the inbox record for env.ID. The
	// envelope content is immutable, so re-running the upsert for an
	// already-migrated entry is a no-op in effect: the local status and
	// read flag are never clobbered by a re-delivered buffer entry.
	UpsertInbox(ctx context.Context, ownerID string, env domain.Envelope) error
	GetInbox(ctx context.Context, ownerID, id string) (domain.Envelope, bool, error)
	ListInbox(ctx context.Context, ownerID string) ([]domain.Envelope, error)
	ListUnreadInbox(ctx context.Context, ownerID string) ([]domain.Envelope, error)
	MarkInboxRead(ctx context.Context, ownerID, id string) error
	DeleteInbox(ctx context.Context, ownerID, id string) error

	// ClaimInbox atomically flips the record's status to claimed and
	// persists the new library reference. The flip is conditional on the
	// status still being unclaimed at the store boundary; a lost race
	// returns (false, nil) with no side effects, and a failed reference
	// write leaves the status unclaimed so the claim can be retried.
	ClaimInbox(ctx context.Context, ownerID, id string, ref domain.Reference) (bool, error)

	// sent
	SaveSent(ctx context.Context, ownerID string, env domain.Envelope) error
	GetSent(ctx context.Context, ownerID, id string) (domain.Envelope, bool, error)
	ListSent(ctx context.Context, ownerID string) ([]domain.Envelope, error)
	DeleteSent(ctx context.Context, ownerID, id string) error

	// library
	SaveReference(ctx context.Context, ref domain.Reference) error
	GetReference(ctx context.Context, ownerID, id string) (domain.Reference, bool, error)
	ListReferences(ctx context.Context, ownerID string) ([]domain.Reference, error)

	// tasks
	SaveTask(ctx context.Context, t domain.Task) error
	ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error)
	ListOpenTasks(ctx context.Context, ownerID string) ([]domain.Task, error)
	DeleteTask(ctx context.Context, ownerID, id string) error
}
