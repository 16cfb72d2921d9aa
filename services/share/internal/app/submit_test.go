package app

import (
	"context"
	"errors"
	"testing"

	"scholarshelf/pkg/domain"
)

func TestSubmitDeliversEnvelopeAndRecordsSent(t *testing.T) {
	f := newTestApp(t)
	ctx := context.Background()

	env, err := f.app.Submit(ctx, senderID, submitRequest("ref-1"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if env.ID == "" || env.ID == "ref-1" {
		t.Fatalf("expected a fresh message id, got %q", env.ID)
	}
	if env.OriginItemID != "ref-1" {
		t.Fatalf("origin item id = %q", env.OriginItemID)
	}
	if env.Status != domain.ShareUnclaimed {
		t.Fatalf("status = %q", env.Status)
	}
	if env.Sender.Name != "Dr. Send" || env.Sender.Email != "send@example.org" {
		t.Fatalf("sender block not resolved from profile: %+v", env.Sender)
	}
	if env.Receiver.UserID != receiverID || env.Receiver.Name != "Prof. Receive" {
		t.Fatalf("receiver block = %+v", env.Receiver)
	}

	buffered, err := f.box.Fetch(ctx, receiverID)
	if err != nil {
		t.Fatalf("fetch buffer: %v", err)
	}
	if len(buffered) != 1 || buffered[0].ID != env.ID {
		t.Fatalf("envelope not buffered for receiver: %+v", buffered)
	}

	sent, ok, err := f.store.GetSent(ctx, senderID, env.ID)
	if err != nil || !ok {
		t.Fatalf("sent record: ok=%v err=%v", ok, err)
	}
	if sent.Status != domain.ShareSent {
		t.Fatalf("sent status = %q", sent.Status)
	}
	if sent.Read {
		t.Fatalf("sent record must not carry a read flag")
	}
	if sent.Sender != (domain.Party{}) {
		t.Fatalf("sent record must scrub the sender block: %+v", sent.Sender)
	}
}

func TestSubmitDeepCopiesSnapshot(t *testing.T) {
	f := newTestApp(t)
	ctx := context.Background()

	req := submitRequest("ref-1")
	if _, err := f.app.Submit(ctx, senderID, req); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// The sender keeps editing their own copy after sharing.
	req.Source.Snapshot.Authors[0] = "changed"
	req.Source.Snapshot.Tags[0] = "changed"

	buffered, _ := f.box.Fetch(ctx, receiverID)
	if len(buffered) != 1 {
		t.Fatalf("expected one buffered entry")
	}
	if buffered[0].Snapshot.Authors[0] != "Ashish Vaswani" {
		t.Fatalf("snapshot shares memory with the source: %+v", buffered[0].Snapshot)
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	f := newTestApp(t)
	f.box.failAppend = true

	_, err := f.app.Submit(context.Background(), senderID, submitRequest("ref-1"))
	if !errors.Is(err, ErrTransportUnavailable) {
		t.Fatalf("err = %v, want ErrTransportUnavailable", err)
	}
	sent, err := f.store.ListSent(context.Background(), senderID)
	if err != nil {
		t.Fatalf("list sent: %v", err)
	}
	if len(sent) != 0 {
		t.Fatalf("no sent record may exist for a failed delivery, got %+v", sent)
	}
}

func TestSubmitSucceedsWhenSentWriteFails(t *testing.T) {
	f := newTestApp(t)
	f.store.failSaveSent = true
	ctx := context.Background()

	env, err := f.app.Submit(ctx, senderID, submitRequest("ref-1"))
	if err != nil {
		t.Fatalf("delivery already happened, submit must succeed: %v", err)
	}
	buffered, _ := f.box.Fetch(ctx, receiverID)
	if len(buffered) != 1 || buffered[0].ID != env.ID {
		t.Fatalf("envelope missing from buffer: %+v", buffered)
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newTestApp(t)
	ctx := context.Background()

	req := submitRequest("ref-1")
	req.ReceiverID = "  "
	if _, err := f.app.Submit(ctx, senderID, req); err == nil {
		t.Fatalf("expected error for missing receiver id")
	}

	req = submitRequest("ref-1")
	req.Source = domain.Reference{}
	if _, err := f.app.Submit(ctx, senderID, req); err == nil {
		t.Fatalf("expected error for missing source reference")
	}
}

func TestSubmitFailsWhenSenderProfileUnresolvable(t *testing.T) {
	f := newTestApp(t)
	f.profiles.err = errors.New("profile service down")

	if _, err := f.app.Submit(context.Background(), senderID, submitRequest("ref-1")); err == nil {
		t.Fatalf("expected error when the sender profile cannot be resolved")
	}
}
