package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glenroe/tenant-intake/internal/core/errx"
	"github.com/glenroe/tenant-intake/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis. Each conversation is one JSON
// blob under its session key, expiring after the configured TTL; every save
// refreshes the TTL.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed conversation store.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("chat:session:%s", sessionID)
}

// Load loads a conversation from Redis.
func (r *RedisStore) Load(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	key := r.sessionKey(sessionID)

	data, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errx.WrapRedis(err)
	}

	var state models.ConversationState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("parse session data: %w", err)
	}

	return &state, nil
}

// Save persists the conversation state with a refreshed TTL.
func (r *RedisStore) Save(ctx context.Context, state *models.ConversationState) error {
	key := r.sessionKey(state.SessionID)

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return errx.WrapRedis(err)
	}

	return nil
}

// Delete removes a session from Redis.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.sessionKey(sessionID)).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

// Exists checks if a session exists in Redis.
func (r *RedisStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.sessionKey(sessionID)).Result()
	if err != nil {
		return false, errx.WrapRedis(err)
	}
	return n > 0, nil
}
