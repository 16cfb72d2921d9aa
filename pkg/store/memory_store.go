package store

import (
	"context"
	"sort"
	"sync"

	"scholarshelf/pkg/domain"
)

// MemoryStore keeps all registries in-process. It mirrors the GormStore
// semantics, including the conditional claim flip, and is safe for
// concurrent use.
type MemoryStore struct {
	mu    sync.Mutex
	inbox map[string]map[string]domain.Envelope // owner -> message id -> envelope
	sent  map[string]map[string]domain.Envelope
	refs  map[string]map[string]domain.Reference // owner -> reference id -> reference
	tasks map[string]map[string]domain.Task
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		inbox: make(map[string]map[string]domain.Envelope),
		sent:  make(map[string]map[string]domain.Envelope),
		refs:  make(map[string]map[string]domain.Reference),
		tasks: make(map[string]map[string]domain.Task),
	}
}

// UpsertInbox inserts the envelope or refreshes its content. An existing
// record keeps its local status and read flag.
func (m *MemoryStore) UpsertInbox(_ context.Context, ownerID string, env domain.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	box := m.inbox[ownerID]
	if box == nil {
		box = make(map[string]domain.Envelope)
		m.inbox[ownerID] = box
	}
	incoming := env.Clone()
	if existing, ok := box[env.ID]; ok {
		incoming.Status = existing.Status
		incoming.Read = existing.Read
	}
	box[env.ID] = incoming
	return nil
}

func (m *MemoryStore) GetInbox(_ context.Context, ownerID, id string) (domain.Envelope, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	env, ok := m.inbox[ownerID][id]
	if !ok {
		return domain.Envelope{}, false, nil
	}
	return env.Clone(), true, nil
}

func (m *MemoryStore) ListInbox(_ context.Context, ownerID string) ([]domain.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return collectEnvelopes(m.inbox[ownerID], nil), nil
}

func (m *MemoryStore) ListUnreadInbox(_ context.Context, ownerID string) ([]domain.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return collectEnvelopes(m.inbox[ownerID], func(e domain.Envelope) bool { return !e.Read }), nil
}

func (m *MemoryStore) MarkInboxRead(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	env, ok := m.inbox[ownerID][id]
	if !ok {
		return nil
	}
	env.Read = true
	m.inbox[ownerID][id] = env
	return nil
}

func (m *MemoryStore) DeleteInbox(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inbox[ownerID], id)
	return nil
}

// ClaimInbox flips status to claimed and stores the reference under one
// lock, so exactly one of any number of concurrent callers wins.
func (m *MemoryStore) ClaimInbox(_ context.Context, ownerID, id string, ref domain.Reference) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	env, ok := m.inbox[ownerID][id]
	if !ok || env.Status != domain.ShareUnclaimed {
		return false, nil
	}
	env.Status = domain.ShareClaimed
	m.inbox[ownerID][id] = env
	lib := m.refs[ref.OwnerID]
	if lib == nil {
		lib = make(map[string]domain.Reference)
		m.refs[ref.OwnerID] = lib
	}
	lib[ref.ID] = ref
	return true, nil
}

func (m *MemoryStore) SaveSent(_ context.Context, ownerID string, env domain.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	box := m.sent[ownerID]
	if box == nil {
		box = make(map[string]domain.Envelope)
		m.sent[ownerID] = box
	}
	box[env.ID] = env.Clone()
	return nil
}

func (m *MemoryStore) GetSent(_ context.Context, ownerID, id string) (domain.Envelope, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	env, ok := m.sent[ownerID][id]
	if !ok {
		return domain.Envelope{}, false, nil
	}
	return env.Clone(), true, nil
}

func (m *MemoryStore) ListSent(_ context.Context, ownerID string) ([]domain.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return collectEnvelopes(m.sent[ownerID], nil), nil
}

func (m *MemoryStore) DeleteSent(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sent[ownerID], id)
	return nil
}

func (m *MemoryStore) SaveReference(_ context.Context, ref domain.Reference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lib := m.refs[ref.OwnerID]
	if lib == nil {
		lib = make(map[string]domain.Reference)
		m.refs[ref.OwnerID] = lib
	}
	lib[ref.ID] = ref
	return nil
}

func (m *MemoryStore) GetReference(_ context.Context, ownerID, id string) (domain.Reference, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.refs[ownerID][id]
	if !ok {
		return domain.Reference{}, false, nil
	}
	return ref, true, nil
}

func (m *MemoryStore) ListReferences(_ context.Context, ownerID string) ([]domain.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs := make([]domain.Reference, 0, len(m.refs[ownerID]))
	for _, ref := range m.refs[ownerID] {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].CreatedAt.After(refs[j].CreatedAt) })
	return refs, nil
}

func (m *MemoryStore) SaveTask(_ context.Context, t domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	box := m.tasks[t.OwnerID]
	if box == nil {
		box = make(map[string]domain.Task)
		m.tasks[t.OwnerID] = box
	}
	box[t.ID] = t
	return nil
}

func (m *MemoryStore) ListTasks(_ context.Context, ownerID string) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return collectTasks(m.tasks[ownerID], nil), nil
}

func (m *MemoryStore) ListOpenTasks(_ context.Context, ownerID string) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return collectTasks(m.tasks[ownerID], func(t domain.Task) bool { return !t.Done }), nil
}

func (m *MemoryStore) DeleteTask(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks[ownerID], id)
	return nil
}

func collectEnvelopes(box map[string]domain.Envelope, keep func(domain.Envelope) bool) []domain.Envelope {
	envs := make([]domain.Envelope, 0, len(box))
	for _, env := range box {
		if keep != nil && !keep(env) {
			continue
		}
		envs = append(envs, env.Clone())
	}
	sort.Slice(envs, func(i, j int) bool {
		if envs[i].CreatedAt.Equal(envs[j].CreatedAt) {
			return envs[i].ID < envs[j].ID
		}
		return envs[i].CreatedAt.After(envs[j].CreatedAt)
	})
	return envs
}

func collectTasks(box map[string]domain.Task, keep func(domain.Task) bool) []domain.Task {
	tasks := make([]domain.Task, 0, len(box))
	for _, t := range box {
		if keep != nil && !keep(t) {
			continue
		}
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Deadline.Equal(tasks[j].Deadline) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].Deadline.Before(tasks[j].Deadline)
	})
	return tasks
}
