package domain

import (
	"testing"
	"time"
)

func TestSnapshotCloneIsDeep(t *testing.T) {
	original := ReferenceSnapshot{
		Title:   "Paper A",
		Authors: []string{"Ada Lovelace", "Alan Turing"},
		Tags:    []string{"computing"},
	}
	copied := original.Clone()

	original.Authors[0] = "changed"
	original.Tags[0] = "changed"

	if copied.Authors[0] != "Ada Lovelace" {
		t.Fatalf("authors not deep-copied: %q", copied.Authors[0])
	}
	if copied.Tags[0] != "computing" {
		t.Fatalf("tags not deep-copied: %q", copied.Tags[0])
	}
}

func TestSentCopyScrubsSenderAndRead(t *testing.T) {
	env := Envelope{
		ID:       "tx-1",
		Snapshot: ReferenceSnapshot{Title: "Paper A"},
		Sender:   Party{UserID: "u-send", Name: "Sender", Email: "s@example.org"},
		Receiver: Party{UserID: "XN-001", Name: "Receiver"},
		Message:  "enjoy",
		Status:   ShareUnclaimed,
		Read:     true,
	}

	sent := env.SentCopy()
	if sent.Status != ShareSent {
		t.Fatalf("status = %q, want %q", sent.Status, ShareSent)
	}
	if sent.Read {
		t.Fatalf("sent copy must not carry a read flag")
	}
	if sent.Sender != (Party{}) {
		t.Fatalf("sender block not scrubbed: %+v", sent.Sender)
	}
	if sent.Receiver.UserID != "XN-001" {
		t.Fatalf("receiver block must be retained, got %+v", sent.Receiver)
	}
	// The original envelope is untouched.
	if env.Status != ShareUnclaimed || env.Sender.UserID != "u-send" {
		t.Fatalf("SentCopy mutated the original: %+v", env)
	}
}

func TestNewClaimedReference(t *testing.T) {
	snap := ReferenceSnapshot{Title: "Paper A", Authors: []string{"Ada Lovelace"}}
	before := time.Now().UTC()

	ref := NewClaimedReference("XN-001", snap)
	if ref.ID == "" || ref.ID == "tx-1" {
		t.Fatalf("expected a fresh id, got %q", ref.ID)
	}
	if ref.OwnerID != "XN-001" {
		t.Fatalf("owner = %q", ref.OwnerID)
	}
	if ref.IsFavorite || ref.IsBookmarked {
		t.Fatalf("ownership flags must reset to defaults")
	}
	if ref.CreatedAt.Before(before) {
		t.Fatalf("expected fresh timestamps, got %v", ref.CreatedAt)
	}

	// Deep copy: editing the source snapshot must not leak in.
	snap.Authors[0] = "changed"
	if ref.Snapshot.Authors[0] != "Ada Lovelace" {
		t.Fatalf("snapshot not deep-copied")
	}

	other := NewClaimedReference("XN-001", snap)
	if other.ID == ref.ID {
		t.Fatalf("two claims produced the same id %q", ref.ID)
	}
}
