package domain

import "time"

type ShareStatus string

const (
	// ShareUnclaimed marks an inbox envelope the receiver has not claimed yet.
	ShareUnclaimed ShareStatus = "unclaimed"
	// ShareClaimed marks an inbox envelope already converted into a library entry.
	ShareClaimed ShareStatus = "claimed"
	// ShareSent is the terminal status of the sender's own history copy.
	ShareSent ShareStatus = "sent"
)

// Party is an identity block attached to an envelope. The same shape is used
// for sender and receiver; UserID is the opaque application id, never a
// storage address.
type Party struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	PhotoKey    string `json:"photoKey,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// ReferenceSnapshot is the descriptive content of a shared reference, frozen
// at submission time. FullTextKey and InsightsKey point into the content
// store; the snapshot never embeds the large blobs themselves.
type ReferenceSnapshot struct {
	Title       string   `json:"title"`
	Category    string   `json:"category,omitempty"`
	Topic       string   `json:"topic,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Abstract    string   `json:"abstract,omitempty"`
	DOI         string   `json:"doi,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	FullTextKey string   `json:"fullTextKey,omitempty"`
	InsightsKey string   `json:"insightsKey,omitempty"`
}

// Clone returns a deep copy so later edits to the source never leak into an
// already-built envelope.
func (s ReferenceSnapshot) Clone() ReferenceSnapshot {
	out := s
	if s.Authors != nil {
		out.Authors = append([]string(nil), s.Authors...)
	}
	if s.Tags != nil {
		out.Tags = append([]string(nil), s.Tags...)
	}
	return out
}

// Envelope is the canonical shared-message shape. The ID is fixed at
// submission and keys every downstream copy: the transport buffer entry, the
// receiver's inbox record and the sender's sent record.
type Envelope struct {
	ID           string            `json:"id"`
	Snapshot     ReferenceSnapshot `json:"snapshot"`
	Sender       Party             `json:"sender"`
	Receiver     Party             `json:"receiver"`
	Message      string            `json:"message,omitempty"`
	Status       ShareStatus       `json:"status"`
	Read         bool              `json:"read"`
	OriginItemID string            `json:"originItemId,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// Clone deep-copies the envelope.
func (e Envelope) Clone() Envelope {
	out := e
	out.Snapshot = e.Snapshot.Clone()
	return out
}

// SentCopy builds the sender-side history projection: status becomes SENT,
// the read flag is dropped and the sender identity block is scrubbed so the
// record can never be confused with an inbox copy. The receiver block stays
// so the sender recalls whom they addressed.
func (e Envelope) SentCopy() Envelope {
	out := e.Clone()
	out.Status = ShareSent
	out.Read = false
	out.Sender = Party{}
	return out
}

// Reference is a library entry owned by exactly one user. Claimed references
// get a fresh identity and default ownership flags; they never inherit
// mutable state from the envelope they came from.
type Reference struct {
	ID           string            `json:"id"`
	OwnerID      string            `json:"ownerId"`
	Snapshot     ReferenceSnapshot `json:"snapshot"`
	IsFavorite   bool              `json:"isFavorite"`
	IsBookmarked bool              `json:"isBookmarked"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}
