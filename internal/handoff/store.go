// Package handoff implements the prefill contract between the conversation
// engine and the tenant report form: a payload written once per handoff and
// consumed exactly once by the destination. A second handoff before the first
// payload is consumed overwrites it (last-write-wins, no queuing).
package handoff

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

// ErrNoPrefill is returned when no payload is staged for the session. The
// destination form then falls back to its URL query parameters.
var ErrNoPrefill = errors.New("no prefill staged")

// Store is the transient key-value port the payload passes through.
type Store interface {
	// Write stages the payload for the session, replacing any previous one.
	Write(ctx context.Context, sessionID string, payload models.PrefillPayload) error

	// Consume reads and removes the payload in one step (read-once), so
	// stale data cannot leak into a later, unrelated session.
	Consume(ctx context.Context, sessionID string) (*models.PrefillPayload, error)
}

// RedisStore implements Store on Redis with a short TTL.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// prefillKey scopes the browser's fixed "tenant_prefill" key by session.
func (r *RedisStore) prefillKey(sessionID string) string {
	return fmt.Sprintf("tenant_prefill:%s", sessionID)
}

func (r *RedisStore) Write(ctx context.Context, sessionID string, payload models.PrefillPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal prefill: %w", err)
	}

	if err := r.client.Set(ctx, r.prefillKey(sessionID), data, r.ttl).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisStore) Consume(ctx context.Context, sessionID string) (*models.PrefillPayload, error) {
	data, err := r.client.GetDel(ctx, r.prefillKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoPrefill
	}
	if err != nil {
		return nil, errx.WrapRedis(err)
	}

	var payload models.PrefillPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, fmt.Errorf("parse prefill: %w", err)
	}

	return &payload, nil
}
