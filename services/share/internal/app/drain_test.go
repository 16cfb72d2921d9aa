package app

import (
	"context"
	"errors"
	"testing"

	"scholarshelf/pkg/domain"
)

func TestDrainMovesBufferIntoInbox(t *testing.T) {
	f := newTestApp(t)
	ctx := context.Background()

	if _, err := f.app.Submit(ctx, senderID, submitRequest("ref-1")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.app.Submit(ctx, senderID, submitRequest("ref-2")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := f.app.Drain(ctx, receiverID); err != nil {
		t.Fatalf("drain: %v", err)
	}

	inbox, err := f.app.Inbox(ctx, receiverID)
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if len(inbox) != 2 {
		t.Fatalf("expected 2 inbox records, got %d", len(inbox))
	}
	for _, env := range inbox {
		if env.Status != domain.ShareUnclaimed || env.Read {
			t.Fatalf("fresh record must be unclaimed and unread: %+v", env)
		}
	}

	buffered, _ := f.box.Fetch(ctx, receiverID)
	if len(buffered) != 0 {
		t.Fatalf("buffer not acknowledged: %+v", buffered)
	}
}

func TestDrainRedeliveryPreservesReadAndClaim(t *testing.T) {
	f := newTestApp(t)
	ctx := context.Background()
	env := deliver(t, f)

	if err := f.app.MarkRead(ctx, receiverID, env.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if _, err := f.app.Claim(ctx, receiverID, env.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// At-least-once transport: the same envelope shows up again because an
	// earlier acknowledgment was lost.
	if err := f.box.Append(ctx, receiverID, env); err != nil {
		t.Fatalf("re-append: %v", err)
	}
	if err := f.app.Drain(ctx, receiverID); err != nil {
		t.Fatalf("drain: %v", err)
	}

	got, ok, err := f.store.GetInbox(ctx, receiverID, env.ID)
	if err != nil || !ok {
		t.Fatalf("get inbox: ok=%v err=%v", ok, err)
	}
	if !got.Read {
		t.Fatalf("redelivery reset the read flag")
	}
	if got.Status != domain.ShareClaimed {
		t.Fatalf("redelivery reset the status to %q", got.Status)
	}
	refs, _ := f.store.ListReferences(ctx, receiverID)
	if len(refs) != 1 {
		t.Fatalf("redelivery duplicated the library entry: %d", len(refs))
	}
}

func TestDrainAckFailureKeepsEntriesForNextCycle(t *testing.T) {
	f := newTestApp(t)
	ctx := context.Background()

	if _, err := f.app.Submit(ctx, senderID, submitRequest("ref-1")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	f.box.failDelete = true
	if err := f.app.Drain(ctx, receiverID); err != nil {
		t.Fatalf("drain must tolerate a failed ack: %v", err)
	}
	inbox, _ := f.app.Inbox(ctx, receiverID)
	if len(inbox) != 1 {
		t.Fatalf("record must be persisted despite failed ack, got %d", len(inbox))
	}

	f.box.failDelete = false
	if err := f.app.Drain(ctx, receiverID); err != nil {
		t.Fatalf("second drain: %v", err)
	}
	buffered, _ := f.box.Fetch(ctx, receiverID)
	if len(buffered) != 0 {
		t.Fatalf("buffer not cleared on retry: %+v", buffered)
	}
	inbox, _ = f.app.Inbox(ctx, receiverID)
	if len(inbox) != 1 {
		t.Fatalf("retry duplicated the inbox record: %d", len(inbox))
	}
}

func TestDrainFetchFailure(t *testing.T) {
	f := newTestApp(t)
	f.box.failFetch = true

	err := f.app.Drain(context.Background(), receiverID)
	if !errors.Is(err, ErrTransportUnavailable) {
		t.Fatalf("err = %v, want ErrTransportUnavailable", err)
	}
}

func TestDrainPartialUpsertFailureAcksOnlyPersisted(t *testing.T) {
	f := newTestApp(t)
	ctx := context.Background()

	good, err := f.app.Submit(ctx, senderID, submitRequest("ref-1"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	bad, err := f.app.Submit(ctx, senderID, submitRequest("ref-2"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	f.store.failUpsertIDs[bad.ID] = true
	if err := f.app.Drain(ctx, receiverID); err != nil {
		t.Fatalf("drain must not fail on a per-entry error: %v", err)
	}

	inbox, _ := f.app.Inbox(ctx, receiverID)
	if len(inbox) != 1 || inbox[0].ID != good.ID {
		t.Fatalf("only the persisted entry may land, got %+v", inbox)
	}
	buffered, _ := f.box.Fetch(ctx, receiverID)
	if len(buffered) != 1 || buffered[0].ID != bad.ID {
		t.Fatalf("failed entry must stay buffered, got %+v", buffered)
	}

	// Registry recovers; the next cycle picks the entry up.
	delete(f.store.failUpsertIDs, bad.ID)
	if err := f.app.Drain(ctx, receiverID); err != nil {
		t.Fatalf("second drain: %v", err)
	}
	inbox, _ = f.app.Inbox(ctx, receiverID)
	if len(inbox) != 2 {
		t.Fatalf("expected both entries after recovery, got %d", len(inbox))
	}
}

func TestDrainSignalsRefreshOnlyForNewRecords(t *testing.T) {
	f := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals, err := f.app.Broadcaster().Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	env, err := f.app.Submit(ctx, senderID, submitRequest("ref-1"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := f.app.Drain(ctx, receiverID); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if got := waitSignal(t, signals); got != receiverID {
		t.Fatalf("signal for %q, want %q", got, receiverID)
	}

	// A redelivered entry that is already in the inbox is not news.
	if err := f.box.Append(ctx, receiverID, env); err != nil {
		t.Fatalf("re-append: %v", err)
	}
	if err := f.app.Drain(ctx, receiverID); err != nil {
		t.Fatalf("drain: %v", err)
	}
	assertNoSignal(t, signals)

	// Nor is an empty cycle.
	if err := f.app.Drain(ctx, receiverID); err != nil {
		t.Fatalf("empty drain: %v", err)
	}
	assertNoSignal(t, signals)
}
