package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"scholarshelf/pkg/domain"
	"scholarshelf/pkg/mailbox"
	"scholarshelf/pkg/store"
)

const (
	senderID   = "u-send"
	receiverID = "XN-001"
)

type stubProfiles struct {
	parties map[string]domain.Party
	err     error
}

func (s *stubProfiles) Profile(_ context.Context, userID string) (domain.Party, error) {
	if s.err != nil {
		return domain.Party{}, s.err
	}
	p, ok := s.parties[userID]
	if !ok {
		return domain.Party{}, fmt.Errorf("no profile for %s", userID)
	}
	return p, nil
}

// flakyMailbox wraps the in-process mailbox with switchable failures so
// transport outages can be simulated per operation.
type flakyMailbox struct {
	mailbox.Mailbox
	failAppend bool
	failFetch  bool
	failDelete bool

	deleted [][]string
}

func (m *flakyMailbox) Append(ctx context.Context, receiverID string, env domain.Envelope) error {
	if m.failAppend {
		return errors.New("mailbox down")
	}
	return m.Mailbox.Append(ctx, receiverID, env)
}

func (m *flakyMailbox) Fetch(ctx context.Context, receiverID string) ([]domain.Envelope, error) {
	if m.failFetch {
		return nil, errors.New("mailbox down")
	}
	return m.Mailbox.Fetch(ctx, receiverID)
}

func (m *flakyMailbox) Delete(ctx context.Context, receiverID string, ids []string) error {
	if m.failDelete {
		return errors.New("mailbox down")
	}
	m.deleted = append(m.deleted, ids)
	return m.Mailbox.Delete(ctx, receiverID, ids)
}

// flakyStore wraps the in-memory store with switchable failures for the
// degradation paths.
type flakyStore struct {
	store.Store
	failSaveSent  bool
	failUpsertIDs map[string]bool
	failUnread    bool
	failOpenTasks bool
}

func (s *flakyStore) SaveSent(ctx context.Context, ownerID string, env domain.Envelope) error {
	if s.failSaveSent {
		return errors.New("sent registry down")
	}
	return s.Store.SaveSent(ctx, ownerID, env)
}

func (s *flakyStore) UpsertInbox(ctx context.Context, ownerID string, env domain.Envelope) error {
	if s.failUpsertIDs[env.ID] {
		return errors.New("inbox registry down")
	}
	return s.Store.UpsertInbox(ctx, ownerID, env)
}

func (s *flakyStore) ListUnreadInbox(ctx context.Context, ownerID string) ([]domain.Envelope, error) {
	if s.failUnread {
		return nil, errors.New("inbox registry down")
	}
	return s.Store.ListUnreadInbox(ctx, ownerID)
}

func (s *flakyStore) ListOpenTasks(ctx context.Context, ownerID string) ([]domain.Task, error) {
	if s.failOpenTasks {
		return nil, errors.New("task registry down")
	}
	return s.Store.ListOpenTasks(ctx, ownerID)
}

type fixture struct {
	app      *App
	store    *flakyStore
	box      *flakyMailbox
	profiles *stubProfiles
}

func newTestApp(t *testing.T) *fixture {
	t.Helper()
	st := &flakyStore{Store: store.NewMemoryStore(), failUpsertIDs: map[string]bool{}}
	box := &flakyMailbox{Mailbox: mailbox.NewMemoryMailbox()}
	profiles := &stubProfiles{parties: map[string]domain.Party{
		senderID: {UserID: senderID, Name: "Dr. Send", Email: "send@example.org"},
	}}
	a, err := New(Config{
		Store:    st,
		Mailbox:  box,
		Profiles: profiles,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return &fixture{app: a, store: st, box: box, profiles: profiles}
}

func sourceReference(id string) domain.Reference {
	return domain.Reference{
		ID:      id,
		OwnerID: senderID,
		Snapshot: domain.ReferenceSnapshot{
			Title:    "Attention Is All You Need",
			Category: "paper",
			Topic:    "ml",
			Authors:  []string{"Ashish Vaswani"},
			Abstract: "Transformers.",
			DOI:      "10.1000/example",
			Tags:     []string{"nlp"},
		},
		IsFavorite:   true,
		IsBookmarked: true,
	}
}

func submitRequest(refID string) SubmitRequest {
	return SubmitRequest{
		ReceiverID: receiverID,
		Receiver:   domain.Party{Name: "Prof. Receive"},
		Message:    "worth a read",
		Source:     sourceReference(refID),
	}
}

// deliver pushes one envelope through submit and drain so lifecycle tests
// start from a settled inbox record.
func deliver(t *testing.T, f *fixture) domain.Envelope {
	t.Helper()
	ctx := context.Background()
	env, err := f.app.Submit(ctx, senderID, submitRequest("ref-1"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := f.app.Drain(ctx, receiverID); err != nil {
		t.Fatalf("drain: %v", err)
	}
	return env
}

func waitSignal(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case got := <-ch:
		return got
	case <-time.After(time.Second):
		t.Fatalf("refresh signal never arrived")
		return ""
	}
}

func assertNoSignal(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case got := <-ch:
		t.Fatalf("unexpected refresh signal for %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}
