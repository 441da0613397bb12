package session

import (
	"context"
	"errors"

	"github.com/glenroe/tenant-intake/internal/models"
)

// ErrNotFound is returned when a session does not exist in storage.
var ErrNotFound = errors.New("session not found")

// Store defines the interface for conversation storage.
// This allows us to swap between Redis, in-memory, etc.
type Store interface {
	// Load loads a conversation from storage. Returns ErrNotFound when the
	// session does not exist.
	Load(ctx context.Context, sessionID string) (*models.ConversationState, error)

	// Save persists the full conversation state, refreshing its TTL.
	Save(ctx context.Context, state *models.ConversationState) error

	// Delete removes a session from storage.
	Delete(ctx context.Context, sessionID string) error

	// Exists checks if a session exists.
	Exists(ctx context.Context, sessionID string) (bool, error)
}
