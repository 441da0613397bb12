package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/glenroe/tenant-intake/internal/engine"
	"github.com/glenroe/tenant-intake/internal/handoff"
	"github.com/glenroe/tenant-intake/internal/models"
	"github.com/glenroe/tenant-intake/internal/observability/metrics"
	"github.com/glenroe/tenant-intake/internal/replies"
	"github.com/glenroe/tenant-intake/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore keeps conversations in memory, cloning on both paths the way a
// real store's JSON round trip does.
type memStore struct {
	states map[string]*models.ConversationState
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]*models.ConversationState)}
}

func clone(state *models.ConversationState) *models.ConversationState {
	data, _ := json.Marshal(state)
	var out models.ConversationState
	_ = json.Unmarshal(data, &out)
	return &out
}

func (m *memStore) Load(_ context.Context, sessionID string) (*models.ConversationState, error) {
	state, ok := m.states[sessionID]
	if !ok {
		return nil, session.ErrNotFound
	}
	return clone(state), nil
}

func (m *memStore) Save(_ context.Context, state *models.ConversationState) error {
	m.states[state.SessionID] = clone(state)
	return nil
}

func (m *memStore) Delete(_ context.Context, sessionID string) error {
	delete(m.states, sessionID)
	return nil
}

func (m *memStore) Exists(_ context.Context, sessionID string) (bool, error) {
	_, ok := m.states[sessionID]
	return ok, nil
}

// memPrefill records staged payloads with read-once consumption.
type memPrefill struct {
	payloads map[string]models.PrefillPayload
	writes   int
}

func newMemPrefill() *memPrefill {
	return &memPrefill{payloads: make(map[string]models.PrefillPayload)}
}

func (m *memPrefill) Write(_ context.Context, sessionID string, payload models.PrefillPayload) error {
	m.payloads[sessionID] = payload
	m.writes++
	return nil
}

func (m *memPrefill) Consume(_ context.Context, sessionID string) (*models.PrefillPayload, error) {
	payload, ok := m.payloads[sessionID]
	if !ok {
		return nil, handoff.ErrNoPrefill
	}
	delete(m.payloads, sessionID)
	return &payload, nil
}

func newTestHandler(t *testing.T) (*ChatHandler, *memStore, *memPrefill) {
	t.Helper()
	store := newMemStore()
	prefill := newMemPrefill()
	m := metrics.NewChatMetrics(prometheus.NewRegistry())
	h := NewChatHandler(engine.New(), session.NewManager(store), prefill, m, "customerservices@glenroe.co.uk")
	return h, store, prefill
}

func sendAll(t *testing.T, h *ChatHandler, sessionID string, texts ...string) *models.ChatResponse {
	t.Helper()
	var response *models.ChatResponse
	for _, text := range texts {
		var err error
		response, err = h.ProcessMessage(context.Background(), &models.ChatRequest{SessionID: sessionID, Text: text})
		require.NoError(t, err)
	}
	return response
}

func TestProcessMessageRequiresSessionID(t *testing.T) {
	h, _, _ := newTestHandler(t)

	response, err := h.ProcessMessage(context.Background(), &models.ChatRequest{Text: "hello"})
	require.NoError(t, err)
	require.NotNil(t, response.ErrorCode)
	assert.Equal(t, models.ErrorParseError, *response.ErrorCode)
}

func TestProcessMessageSeedsNewSession(t *testing.T) {
	h, store, _ := newTestHandler(t)

	response := sendAll(t, h, "sess-1", "my heating is broken")

	assert.Equal(t, models.IntentReportRepair, response.Intent)
	require.NotEmpty(t, response.Replies)

	saved, ok := store.states["sess-1"]
	require.True(t, ok, "conversation persisted after the turn")
	assert.Equal(t, replies.Greeting, saved.Transcript[0].Text)
	assert.Equal(t, models.RoleUser, saved.Transcript[1].Role)
}

func TestProcessMessageWhitespaceDoesNotPersist(t *testing.T) {
	h, store, _ := newTestHandler(t)

	response, err := h.ProcessMessage(context.Background(), &models.ChatRequest{SessionID: "sess-1", Text: "   "})
	require.NoError(t, err)

	assert.Empty(t, response.Replies)
	_, ok := store.states["sess-1"]
	assert.False(t, ok, "a no-op turn leaves nothing to persist")
}

func TestProcessQuickSelectUnknownKey(t *testing.T) {
	h, _, _ := newTestHandler(t)

	response, err := h.ProcessQuickSelect(context.Background(), &models.QuickSelectRequest{SessionID: "sess-1", Key: "bogus"})
	require.NoError(t, err)
	require.NotNil(t, response.ErrorCode)
	assert.Equal(t, models.ErrorUnknownIntent, *response.ErrorCode)
}

func TestProcessQuickSelectStartsFlow(t *testing.T) {
	h, _, _ := newTestHandler(t)

	response, err := h.ProcessQuickSelect(context.Background(), &models.QuickSelectRequest{SessionID: "sess-1", Key: models.IntentMovingOut})
	require.NoError(t, err)

	assert.Equal(t, models.IntentMovingOut, response.Intent)
	assert.Equal(t, models.StateCollecting, response.State)
}

func TestHandoffRejectedUntilReady(t *testing.T) {
	h, _, prefill := newTestHandler(t)

	sendAll(t, h, "sess-1", "I'm moving out", "Jane")

	response, err := h.ProcessHandoff(context.Background(), &models.HandoffRequest{SessionID: "sess-1"})
	require.NoError(t, err)
	assert.False(t, response.Ready)
	require.NotNil(t, response.ErrorCode)
	assert.Equal(t, models.ErrorNotReady, *response.ErrorCode)
	assert.Zero(t, prefill.writes)
}

func TestHandoffStagesPayloadAndReturnsRoute(t *testing.T) {
	h, _, prefill := newTestHandler(t)

	sendAll(t, h, "sess-1", "I'm moving out", "Jane", "jane@x.com", "123 Main St", "end of June")

	response, err := h.ProcessHandoff(context.Background(), &models.HandoffRequest{SessionID: "sess-1"})
	require.NoError(t, err)
	assert.True(t, response.Ready)
	assert.Equal(t, "/tenant?action=moving-out", response.Route)
	assert.Equal(t, 1, prefill.writes)

	payload, err := h.ConsumePrefill(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, models.PrefillPayload{
		Name:    "Jane",
		Contact: "jane@x.com",
		Address: "123 Main St",
		Details: "end of June",
		Intent:  models.IntentMovingOut,
	}, *payload)

	// Read-once: the payload is gone after consumption.
	_, err = h.ConsumePrefill(context.Background(), "sess-1")
	assert.Error(t, err)
}

func TestHandoffDoesNotRequireConfirmation(t *testing.T) {
	h, _, _ := newTestHandler(t)

	// All fields collected, summary pending but never confirmed.
	response := sendAll(t, h, "sess-1", "I'm moving out", "Jane", "jane@x.com", "123 Main St", "end of June")
	assert.Equal(t, models.StateAwaitingConfirmation, response.State)
	assert.True(t, response.Ready)

	handoffResp, err := h.ProcessHandoff(context.Background(), &models.HandoffRequest{SessionID: "sess-1"})
	require.NoError(t, err)
	assert.True(t, handoffResp.Ready)
}

func TestProcessRestart(t *testing.T) {
	h, store, _ := newTestHandler(t)

	sendAll(t, h, "sess-1", "I'm moving out", "Jane")

	response, err := h.ProcessRestart(context.Background(), &models.RestartRequest{SessionID: "sess-1"})
	require.NoError(t, err)

	assert.Equal(t, models.StateDetectingIntent, response.State)
	assert.Empty(t, response.Intent)
	require.Len(t, response.Replies, 1)
	assert.Equal(t, replies.RestartAck, response.Replies[0].Text)

	saved := store.states["sess-1"]
	assert.Len(t, saved.Transcript, 1)
	assert.Equal(t, models.CollectedFields{}, saved.Fields)
}

func TestHistoryTextFormatsTranscript(t *testing.T) {
	h, _, _ := newTestHandler(t)

	sendAll(t, h, "sess-1", "I'm moving out")

	formatted, err := h.HistoryText(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Contains(t, formatted, "Assistant: "+replies.Greeting)
	assert.Contains(t, formatted, "User: I'm moving out")
}

func TestHistoryTextUnknownSession(t *testing.T) {
	h, _, _ := newTestHandler(t)

	formatted, err := h.HistoryText(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, "No previous conversation.", formatted)
}

func TestRestartDropsOldTranscriptFromHistory(t *testing.T) {
	h, _, _ := newTestHandler(t)

	sendAll(t, h, "sess-1", "I'm moving out", "Jane")

	_, err := h.ProcessRestart(context.Background(), &models.RestartRequest{SessionID: "sess-1"})
	require.NoError(t, err)

	formatted, err := h.HistoryText(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Contains(t, formatted, "Assistant: "+replies.RestartAck)
	assert.NotContains(t, formatted, "Jane", "restart clears the mirrored transcript")
}

func TestHistoryUnknownSessionIsEmpty(t *testing.T) {
	h, _, _ := newTestHandler(t)

	history, err := h.History(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMailtoFromTranscript(t *testing.T) {
	h, _, _ := newTestHandler(t)

	sendAll(t, h, "sess-1", "just a question")

	href, err := h.Mailto(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(href, "mailto:customerservices@glenroe.co.uk?subject="))
	assert.Contains(t, href, "just%20a%20question")
}