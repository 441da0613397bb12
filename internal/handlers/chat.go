package handlers

import (
	"context"
	"errors"
	"fmt"

	logx "github.com/glenroe/tenant-intake/pkg/logger"

	"github.com/glenroe/tenant-intake/internal/engine"
	"github.com/glenroe/tenant-intake/internal/handoff"
	"github.com/glenroe/tenant-intake/internal/models"
	"github.com/glenroe/tenant-intake/internal/observability/metrics"
	"github.com/glenroe/tenant-intake/internal/replies"
	"github.com/glenroe/tenant-intake/internal/session"
)

// ChatHandler orchestrates the intake engine, session storage and the
// handoff channel for every transport (NATS and HTTP alike).
type ChatHandler struct {
	engine       *engine.Engine
	sessions     *session.Manager
	prefill      handoff.Store
	metrics      *metrics.ChatMetrics
	contactEmail string
}

func NewChatHandler(eng *engine.Engine, sessions *session.Manager, prefill handoff.Store, m *metrics.ChatMetrics, contactEmail string) *ChatHandler {
	return &ChatHandler{
		engine:       eng,
		sessions:     sessions,
		prefill:      prefill,
		metrics:      m,
		contactEmail: contactEmail,
	}
}

// loadOrCreate fetches the conversation, seeding a fresh greeted one when the
// session is unknown. Storage read failures are logged and swallowed with a
// fresh conversation: environmental failures never interrupt the chat flow.
func (h *ChatHandler) loadOrCreate(ctx context.Context, sessionID string) *models.ConversationState {
	st, err := h.sessions.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to load session, starting fresh")
		}
		return engine.NewConversation(sessionID)
	}
	return st
}

// persist saves the conversation, logging and continuing on failure.
func (h *ChatHandler) persist(ctx context.Context, st *models.ConversationState) {
	if err := h.sessions.Save(ctx, st); err != nil {
		logx.Error().Err(err).Str("session_id", st.SessionID).Msg("failed to persist session")
	}
}

// ProcessMessage handles one free-text user turn.
func (h *ChatHandler) ProcessMessage(ctx context.Context, request *models.ChatRequest) (*models.ChatResponse, error) {
	if request.SessionID == "" {
		return errorResponse(request.SessionID, models.ErrorParseError, "session_id is required"), nil
	}

	st := h.loadOrCreate(ctx, request.SessionID)
	turns := h.engine.SubmitText(st, request.Text)
	if len(turns) > 0 {
		h.persist(ctx, st)
		h.metrics.ObserveTurn(string(st.Intent), string(st.State))
	}

	return h.chatResponse(st, turns), nil
}

// ProcessQuickSelect handles a quick-select button press.
func (h *ChatHandler) ProcessQuickSelect(ctx context.Context, request *models.QuickSelectRequest) (*models.ChatResponse, error) {
	if request.SessionID == "" {
		return errorResponse(request.SessionID, models.ErrorParseError, "session_id is required"), nil
	}
	if !request.Key.Valid() {
		return errorResponse(request.SessionID, models.ErrorUnknownIntent,
			fmt.Sprintf("unknown intent key %q", request.Key)), nil
	}

	st := h.loadOrCreate(ctx, request.SessionID)
	turns := h.engine.QuickSelect(st, request.Key)
	h.persist(ctx, st)
	h.metrics.ObserveTurn(string(st.Intent), string(st.State))

	return h.chatResponse(st, turns), nil
}

// ProcessRestart throws away the conversation and starts over.
func (h *ChatHandler) ProcessRestart(ctx context.Context, request *models.RestartRequest) (*models.ChatResponse, error) {
	if request.SessionID == "" {
		return errorResponse(request.SessionID, models.ErrorParseError, "session_id is required"), nil
	}

	st := h.loadOrCreate(ctx, request.SessionID)
	fresh := h.engine.Restart(st)

	// Drop the stored session and its buffer mirror before persisting the
	// fresh conversation, so no stale transcript survives the restart.
	if err := h.sessions.Clear(ctx, request.SessionID); err != nil {
		logx.Warn().Err(err).Str("session_id", request.SessionID).Msg("failed to clear session on restart")
	}
	h.persist(ctx, fresh)
	h.metrics.ObserveRestart()

	return h.chatResponse(fresh, fresh.Transcript), nil
}

// ProcessHandoff stages the prefill payload and returns the destination
// route. The handoff itself is fire-and-forget: a staging failure is logged
// and the route still returned, since the destination form falls back to its
// URL parameters.
func (h *ChatHandler) ProcessHandoff(ctx context.Context, request *models.HandoffRequest) (*models.HandoffResponse, error) {
	if request.SessionID == "" {
		code := models.ErrorParseError
		message := "session_id is required"
		return &models.HandoffResponse{ErrorCode: &code, ErrorMessage: &message}, nil
	}

	st := h.loadOrCreate(ctx, request.SessionID)
	if !h.engine.Ready(st) {
		code := models.ErrorNotReady
		message := "conversation is not fully collected yet"
		h.metrics.ObserveHandoff(string(st.Intent), "rejected")
		return &models.HandoffResponse{
			SessionID:    st.SessionID,
			Ready:        false,
			ErrorCode:    &code,
			ErrorMessage: &message,
		}, nil
	}

	if err := h.prefill.Write(ctx, st.SessionID, h.engine.Prefill(st)); err != nil {
		logx.Error().Err(err).Str("session_id", st.SessionID).Msg("failed to stage prefill payload")
		h.metrics.ObserveHandoff(string(st.Intent), "stage_failed")
	} else {
		h.metrics.ObserveHandoff(string(st.Intent), "staged")
	}

	return &models.HandoffResponse{
		SessionID: st.SessionID,
		Route:     handoff.RouteFor(st.Intent),
		Ready:     true,
	}, nil
}

// ConsumePrefill hands the staged payload to the destination form, removing
// it in the same step.
func (h *ChatHandler) ConsumePrefill(ctx context.Context, sessionID string) (*models.PrefillPayload, error) {
	return h.prefill.Consume(ctx, sessionID)
}

// History returns the transcript for widget reconnects. Unknown sessions
// yield an empty transcript.
func (h *ChatHandler) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	st, err := h.sessions.Load(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return []models.Turn{}, nil
	}
	if err != nil {
		return nil, err
	}
	return st.Transcript, nil
}

// HistoryText returns the transcript as "User:"/"Assistant:" lines from the
// session manager's buffer mirror. Unknown sessions get the same sentence the
// mirror uses for an empty buffer.
func (h *ChatHandler) HistoryText(ctx context.Context, sessionID string) (string, error) {
	formatted, err := h.sessions.FormattedHistory(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return "No previous conversation.", nil
	}
	if err != nil {
		return "", err
	}
	return formatted, nil
}

// Mailto derives the fallback email link from the transcript.
func (h *ChatHandler) Mailto(ctx context.Context, sessionID string) (string, error) {
	st := h.loadOrCreate(ctx, sessionID)
	return replies.BuildMailto(h.contactEmail, st.Transcript), nil
}

func (h *ChatHandler) chatResponse(st *models.ConversationState, turns []models.Turn) *models.ChatResponse {
	if turns == nil {
		turns = []models.Turn{}
	}
	return &models.ChatResponse{
		SessionID: st.SessionID,
		Replies:   turns,
		State:     st.State,
		Intent:    st.Intent,
		Ready:     h.engine.Ready(st),
	}
}

func errorResponse(sessionID, errorCode, errorMessage string) *models.ChatResponse {
	return &models.ChatResponse{
		SessionID:    sessionID,
		Replies:      []models.Turn{},
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	}
}
