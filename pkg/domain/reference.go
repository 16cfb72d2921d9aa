package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewClaimedReference materializes a received snapshot into an independent
// library entry. Identity blocks, message text, read flag and envelope
// timestamps are deliberately left behind; only the descriptive snapshot
// carries over. The entry gets a fresh id and fresh timestamps, with
// ownership flags at their defaults.
func NewClaimedReference(ownerID string, snap ReferenceSnapshot) Reference {
	now := time.Now().UTC()
	return Reference{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Snapshot:  snap.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
