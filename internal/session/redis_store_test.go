package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glenroe/tenant-intake/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client, 30*time.Minute), mr
}

func sampleState(sessionID string) *models.ConversationState {
	return &models.ConversationState{
		SessionID: sessionID,
		State:     models.StateCollecting,
		Pending:   models.FieldContact,
		Intent:    models.IntentMovingOut,
		Fields:    models.CollectedFields{Name: "Jane"},
		Transcript: []models.Turn{
			{Role: models.RoleAssistant, Text: "Hi"},
			{Role: models.RoleUser, Text: "I'm moving out"},
		},
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	state := sampleState("sess-1")
	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, state, loaded)
}

func TestRedisStoreLoadMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreSaveRefreshesTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleState("sess-1")))
	ttl := mr.TTL("chat:session:sess-1")
	assert.Equal(t, 30*time.Minute, ttl)

	mr.FastForward(10 * time.Minute)
	require.NoError(t, store.Save(ctx, sampleState("sess-1")))
	assert.Equal(t, 30*time.Minute, mr.TTL("chat:session:sess-1"))
}

func TestRedisStoreDeleteAndExists(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleState("sess-1")))

	exists, err := store.Exists(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, "sess-1"))

	exists, err = store.Exists(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleState("sess-1")))
	mr.FastForward(31 * time.Minute)

	_, err := store.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
