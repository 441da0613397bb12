package gateway

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	logx "github.com/glenroe/tenant-intake/pkg/logger"

	"github.com/glenroe/tenant-intake/internal/handlers"
	"github.com/glenroe/tenant-intake/internal/handoff"
	"github.com/glenroe/tenant-intake/internal/models"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

// Handler serves the tenant assistant widget over WebSocket and plain HTTP.
type Handler struct {
	chat *handlers.ChatHandler
}

func NewHandler(chat *handlers.ChatHandler) *Handler {
	return &Handler{chat: chat}
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string        `json:"type"` // "message", "quick", "handoff", "restart", "ping"
	SessionID string        `json:"session_id"`
	Text      string        `json:"text,omitempty"`
	Key       models.Intent `json:"key,omitempty"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string        `json:"type"` // "session", "message", "history", "handoff", "pong", "error"
	SessionID string        `json:"session_id,omitempty"`
	Replies   []models.Turn `json:"replies,omitempty"`
	Messages  []models.Turn `json:"messages,omitempty"`
	State     models.State  `json:"state,omitempty"`
	Intent    models.Intent `json:"intent,omitempty"`
	Ready     bool          `json:"ready,omitempty"`
	Route     string        `json:"route,omitempty"`
	Text      string        `json:"text,omitempty"`
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time chat.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "session",
		SessionID: sessionID,
	})

	// Replay the transcript so a reconnecting widget can re-render it.
	if history, err := h.chat.History(r.Context(), sessionID); err == nil && len(history) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
	}

	logx.Info().Str("session_id", sessionID).Msg("webchat connection opened")

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			logx.Debug().Err(err).Str("session_id", sessionID).Msg("webchat connection closed")
			return
		}
		msg.SessionID = sessionID

		switch msg.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
		case "message":
			response, err := h.chat.ProcessMessage(r.Context(), &models.ChatRequest{SessionID: sessionID, Text: msg.Text})
			h.sendChat(conn, response, err)
		case "quick":
			response, err := h.chat.ProcessQuickSelect(r.Context(), &models.QuickSelectRequest{SessionID: sessionID, Key: msg.Key})
			h.sendChat(conn, response, err)
		case "restart":
			response, err := h.chat.ProcessRestart(r.Context(), &models.RestartRequest{SessionID: sessionID})
			h.sendChat(conn, response, err)
		case "handoff":
			response, err := h.chat.ProcessHandoff(r.Context(), &models.HandoffRequest{SessionID: sessionID})
			if err != nil || response.ErrorCode != nil {
				_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "handoff is not ready yet"})
				continue
			}
			_ = websocket.JSON.Send(conn, OutboundMessage{
				Type:      "handoff",
				SessionID: sessionID,
				Route:     response.Route,
				Ready:     response.Ready,
			})
		}
	}
}

func (h *Handler) sendChat(conn *websocket.Conn, response *models.ChatResponse, err error) {
	if err != nil {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
		return
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "message",
		SessionID: response.SessionID,
		Replies:   response.Replies,
		State:     response.State,
		Intent:    response.Intent,
		Ready:     response.Ready,
	})
}

// HandleMessage is the HTTP fallback for sending messages.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var request models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if request.SessionID == "" {
		request.SessionID = generateSessionID()
	}

	response, err := h.chat.ProcessMessage(r.Context(), &request)
	h.writeChat(w, response, err)
}

// HandleQuickSelect handles a quick-select button press over HTTP.
func (h *Handler) HandleQuickSelect(w http.ResponseWriter, r *http.Request) {
	var request models.QuickSelectRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if request.SessionID == "" {
		request.SessionID = generateSessionID()
	}

	response, err := h.chat.ProcessQuickSelect(r.Context(), &request)
	h.writeChat(w, response, err)
}

// HandleRestart resets the conversation.
func (h *Handler) HandleRestart(w http.ResponseWriter, r *http.Request) {
	var request models.RestartRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if request.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	response, err := h.chat.ProcessRestart(r.Context(), &request)
	h.writeChat(w, response, err)
}

// HandleHandoff stages the prefill payload and returns the destination route.
func (h *Handler) HandleHandoff(w http.ResponseWriter, r *http.Request) {
	var request models.HandoffRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if request.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	response, err := h.chat.ProcessHandoff(r.Context(), &request)
	if err != nil {
		http.Error(w, "failed to process handoff", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if response.ErrorCode != nil && *response.ErrorCode == models.ErrorNotReady {
		status = http.StatusConflict
	}
	writeJSON(w, status, response)
}

// HandleHistory returns the transcript for a session. With format=text the
// transcript comes as one "User:"/"Assistant:" labelled string, rendered
// through the session manager's buffer mirror for operator tooling.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		formatted, err := h.chat.HistoryText(r.Context(), sessionID)
		if err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to format history")
			http.Error(w, "failed to load history", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"history": formatted})
		return
	}

	history, err := h.chat.History(r.Context(), sessionID)
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to load history")
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": history})
}

// HandleMailto returns the fallback email link for the session transcript.
func (h *Handler) HandleMailto(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	href, err := h.chat.Mailto(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "failed to build mailto link", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"href": href})
}

// HandlePrefill lets the destination form consume the staged payload.
// Consumption removes it, so a second read returns 404 and the form falls
// back to its URL parameters.
func (h *Handler) HandlePrefill(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	payload, err := h.chat.ConsumePrefill(r.Context(), sessionID)
	if errors.Is(err, handoff.ErrNoPrefill) {
		http.Error(w, "no prefill staged", http.StatusNotFound)
		return
	}
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to consume prefill")
		http.Error(w, "failed to read prefill", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

// HandleHealthz is the liveness probe.
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeChat(w http.ResponseWriter, response *models.ChatResponse, err error) {
	if err != nil {
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}
	status := http.StatusOK
	if response.ErrorCode != nil {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, response)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
