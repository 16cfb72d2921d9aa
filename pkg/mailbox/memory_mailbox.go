package mailbox

import (
	"context"
	"sync"

	"scholarshelf/pkg/domain"
)

// MemoryMailbox keeps buffered envelopes in-process. It mirrors the Redis
// mailbox semantics and is used by tests and single-node setups.
type MemoryMailbox struct {
	mu      sync.Mutex
	buffers map[string]map[string]domain.Envelope // receiver -> message id -> envelope
}

// NewMemoryMailbox initializes an empty in-memory mailbox.
func NewMemoryMailbox() *MemoryMailbox {
	return &MemoryMailbox{buffers: make(map[string]map[string]domain.Envelope)}
}

func (m *MemoryMailbox) Append(_ context.Context, receiverID string, env domain.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := m.buffers[receiverID]
	if buf == nil {
		buf = make(map[string]domain.Envelope)
		m.buffers[receiverID] = buf
	}
	buf[env.ID] = env.Clone()
	return nil
}

func (m *MemoryMailbox) Fetch(_ context.Context, receiverID string) ([]domain.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := m.buffers[receiverID]
	envs := make([]domain.Envelope, 0, len(buf))
	for _, env := range buf {
		envs = append(envs, env.Clone())
	}
	return envs, nil
}

func (m *MemoryMailbox) Delete(_ context.Context, receiverID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := m.buffers[receiverID]
	for _, id := range ids {
		delete(buf, id)
	}
	return nil
}
