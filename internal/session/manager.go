package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	logx "github.com/glenroe/tenant-intake/pkg/logger"

	"github.com/glenroe/tenant-intake/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
)

// Manager orchestrates conversation storage and mirrors each transcript into
// a LangChainGo conversation buffer, so formatted history comes from the same
// buffer machinery regardless of which store backs the session.
type Manager struct {
	store Store

	mu      sync.Mutex
	buffers map[string]*memory.ConversationBuffer
}

// NewManager creates a new session manager.
func NewManager(store Store) *Manager {
	return &Manager{
		store:   store,
		buffers: make(map[string]*memory.ConversationBuffer),
	}
}

// Load loads a conversation from the underlying store. Returns ErrNotFound
// when the session does not exist; that also evicts any cached buffer, so a
// session expiring in Redis does not strand its mirror in memory.
func (m *Manager) Load(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	state, err := m.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			m.evict(sessionID)
		}
		return nil, err
	}
	return state, nil
}

func (m *Manager) evict(sessionID string) {
	m.mu.Lock()
	delete(m.buffers, sessionID)
	m.mu.Unlock()
}

// Save persists the conversation and refreshes its buffer mirror. A mirror
// failure is logged and swallowed: it must never interrupt the chat flow.
func (m *Manager) Save(ctx context.Context, state *models.ConversationState) error {
	if err := m.store.Save(ctx, state); err != nil {
		return err
	}

	if err := m.mirror(ctx, state); err != nil {
		logx.Warn().Err(err).Str("session_id", state.SessionID).Msg("failed to mirror transcript into buffer")
	}
	return nil
}

// mirror rebuilds the LangChainGo buffer from the full transcript.
func (m *Manager) mirror(ctx context.Context, state *models.ConversationState) error {
	m.mu.Lock()
	buf, exists := m.buffers[state.SessionID]
	if !exists {
		buf = memory.NewConversationBuffer()
		m.buffers[state.SessionID] = buf
	}
	m.mu.Unlock()

	if err := buf.Clear(ctx); err != nil {
		return fmt.Errorf("clear buffer: %w", err)
	}

	for _, turn := range state.Transcript {
		var chatMsg llms.ChatMessage
		switch turn.Role {
		case models.RoleUser:
			chatMsg = llms.HumanChatMessage{Content: turn.Text}
		case models.RoleAssistant:
			chatMsg = llms.AIChatMessage{Content: turn.Text}
		default:
			continue
		}
		if err := buf.ChatHistory.AddMessage(ctx, chatMsg); err != nil {
			return fmt.Errorf("add message to buffer: %w", err)
		}
	}
	return nil
}

// FormattedHistory returns the conversation as "User:"/"Assistant:" lines
// from the buffer mirror, rebuilding it from storage when needed. This backs
// the text variant of the history endpoint.
func (m *Manager) FormattedHistory(ctx context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	buf, exists := m.buffers[sessionID]
	m.mu.Unlock()

	if !exists {
		state, err := m.store.Load(ctx, sessionID)
		if err != nil {
			return "", err
		}
		if err := m.mirror(ctx, state); err != nil {
			return "", err
		}
		m.mu.Lock()
		buf = m.buffers[sessionID]
		m.mu.Unlock()
	}

	messages, err := buf.ChatHistory.Messages(ctx)
	if err != nil {
		return "", fmt.Errorf("get messages: %w", err)
	}

	if len(messages) == 0 {
		return "No previous conversation.", nil
	}

	var formatted string
	for _, msg := range messages {
		switch m := msg.(type) {
		case llms.HumanChatMessage:
			formatted += fmt.Sprintf("User: %s\n", m.Content)
		case llms.AIChatMessage:
			formatted += fmt.Sprintf("Assistant: %s\n", m.Content)
		case llms.SystemChatMessage:
			formatted += fmt.Sprintf("System: %s\n", m.Content)
		}
	}

	return formatted, nil
}

// Clear removes a session from both the buffer cache and storage. Restart
// goes through here so the old transcript's mirror is dropped with it.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	m.evict(sessionID)

	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// ActiveBufferCount returns the number of cached conversation buffers.
func (m *Manager) ActiveBufferCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffers)
}
