package mailbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"scholarshelf/pkg/domain"
)

// RedisMailbox stores each buffered envelope as a JSON value keyed by
// message id, with a per-receiver id set for fetching. A generous TTL
// bounds leakage if a receiver never drains; normal operation deletes
// entries long before it fires.
type RedisMailbox struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisMailboxConfig configures the Redis-backed mailbox.
type RedisMailboxConfig struct {
	Addr     string
	Password string
	TTL      time.Duration
}

// NewRedisMailbox builds a Redis-backed mailbox.
func NewRedisMailbox(cfg RedisMailboxConfig) (*RedisMailbox, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisMailbox{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password}),
		ttl:    ttl,
	}, nil
}

// Append writes the envelope payload and registers its id, atomically via a
// transactional pipeline.
func (m *RedisMailbox) Append(ctx context.Context, receiverID string, env domain.Envelope) error {
	receiverID = strings.TrimSpace(receiverID)
	if receiverID == "" {
		return errors.New("receiver id required")
	}
	if env.ID == "" {
		return errors.New("envelope id required")
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	pipe := m.client.TxPipeline()
	pipe.Set(ctx, messageKey(receiverID, env.ID), payload, m.ttl)
	pipe.SAdd(ctx, idsKey(receiverID), env.ID)
	pipe.Expire(ctx, idsKey(receiverID), m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append to mailbox: %w", err)
	}
	return nil
}

// Fetch loads every buffered envelope for the receiver. Ids whose payload
// already expired are pruned from the id set as a side effect.
func (m *RedisMailbox) Fetch(ctx context.Context, receiverID string) ([]domain.Envelope, error) {
	ids, err := m.client.SMembers(ctx, idsKey(receiverID)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("read mailbox ids: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Envelope{}, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, messageKey(receiverID, id))
	}
	values, err := m.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read mailbox entries: %w", err)
	}
	envs := make([]domain.Envelope, 0, len(values))
	var orphans []any
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			orphans = append(orphans, ids[i])
			continue
		}
		var env domain.Envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			orphans = append(orphans, ids[i])
			continue
		}
		envs = append(envs, env)
	}
	if len(orphans) > 0 {
		_ = m.client.SRem(ctx, idsKey(receiverID), orphans...).Err()
	}
	return envs, nil
}

// Delete removes the given entries and their ids in one batch.
func (m *RedisMailbox) Delete(ctx context.Context, receiverID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pipe := m.client.TxPipeline()
	members := make([]any, 0, len(ids))
	for _, id := range ids {
		pipe.Del(ctx, messageKey(receiverID, id))
		members = append(members, id)
	}
	pipe.SRem(ctx, idsKey(receiverID), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete from mailbox: %w", err)
	}
	return nil
}

func idsKey(receiverID string) string {
	return fmt.Sprintf("mailbox:%s:ids", receiverID)
}

func messageKey(receiverID, id string) string {
	return fmt.Sprintf("mailbox:%s:msg:%s", receiverID, id)
}
