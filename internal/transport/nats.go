package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	logx "github.com/glenroe/tenant-intake/pkg/logger"

	"github.com/glenroe/tenant-intake/internal/config"
	"github.com/glenroe/tenant-intake/internal/handlers"
	"github.com/glenroe/tenant-intake/internal/models"
	"github.com/nats-io/nats.go"
)

// NATSTransport exposes the chat handler over request/reply subjects for the
// portal backend: <prefix>.message, <prefix>.quick, <prefix>.handoff and
// <prefix>.restart.
type NATSTransport struct {
	conn    *nats.Conn
	config  *config.Config
	handler *handlers.ChatHandler
}

func NewNATSTransport(cfg *config.Config, handler *handlers.ChatHandler) (*NATSTransport, error) {
	conn, err := nats.Connect(cfg.NATS.URL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NATS.Timeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logx.Info().Str("url", cfg.NATS.URL).Msg("connected to NATS server")

	return &NATSTransport{
		conn:    conn,
		config:  cfg,
		handler: handler,
	}, nil
}

func (nt *NATSTransport) subject(op string) string {
	return fmt.Sprintf("%s.%s", nt.config.NATS.SubjectPrefix, op)
}

func (nt *NATSTransport) Start() error {
	subs := map[string]nats.MsgHandler{
		nt.subject("message"): nt.handleMessage,
		nt.subject("quick"):   nt.handleQuickSelect,
		nt.subject("handoff"): nt.handleHandoff,
		nt.subject("restart"): nt.handleRestart,
	}

	for subject, handler := range subs {
		if _, err := nt.conn.Subscribe(subject, handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		logx.Info().Str("subject", subject).Msg("subscribed")
	}
	return nil
}

func (nt *NATSTransport) handleMessage(msg *nats.Msg) {
	var request models.ChatRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		logx.Error().Err(err).Msg("error parsing chat request")
		nt.sendChatError(msg, request.SessionID, models.ErrorParseError, "invalid request format")
		return
	}

	ctx, cancel := nt.requestContext()
	defer cancel()

	response, err := nt.handler.ProcessMessage(ctx, &request)
	if err != nil {
		logx.Error().Err(err).Str("session_id", request.SessionID).Msg("error processing message")
		nt.sendChatError(msg, request.SessionID, models.ErrorSessionFailed, err.Error())
		return
	}
	nt.respond(msg, response)
}

func (nt *NATSTransport) handleQuickSelect(msg *nats.Msg) {
	var request models.QuickSelectRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		logx.Error().Err(err).Msg("error parsing quick-select request")
		nt.sendChatError(msg, request.SessionID, models.ErrorParseError, "invalid request format")
		return
	}

	ctx, cancel := nt.requestContext()
	defer cancel()

	response, err := nt.handler.ProcessQuickSelect(ctx, &request)
	if err != nil {
		logx.Error().Err(err).Str("session_id", request.SessionID).Msg("error processing quick-select")
		nt.sendChatError(msg, request.SessionID, models.ErrorSessionFailed, err.Error())
		return
	}
	nt.respond(msg, response)
}

func (nt *NATSTransport) handleHandoff(msg *nats.Msg) {
	var request models.HandoffRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		logx.Error().Err(err).Msg("error parsing handoff request")
		code := models.ErrorParseError
		message := "invalid request format"
		nt.respond(msg, &models.HandoffResponse{ErrorCode: &code, ErrorMessage: &message})
		return
	}

	ctx, cancel := nt.requestContext()
	defer cancel()

	response, err := nt.handler.ProcessHandoff(ctx, &request)
	if err != nil {
		logx.Error().Err(err).Str("session_id", request.SessionID).Msg("error processing handoff")
		code := models.ErrorSessionFailed
		message := err.Error()
		nt.respond(msg, &models.HandoffResponse{SessionID: request.SessionID, ErrorCode: &code, ErrorMessage: &message})
		return
	}
	nt.respond(msg, response)
}

func (nt *NATSTransport) handleRestart(msg *nats.Msg) {
	var request models.RestartRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		logx.Error().Err(err).Msg("error parsing restart request")
		nt.sendChatError(msg, request.SessionID, models.ErrorParseError, "invalid request format")
		return
	}

	ctx, cancel := nt.requestContext()
	defer cancel()

	response, err := nt.handler.ProcessRestart(ctx, &request)
	if err != nil {
		logx.Error().Err(err).Str("session_id", request.SessionID).Msg("error processing restart")
		nt.sendChatError(msg, request.SessionID, models.ErrorSessionFailed, err.Error())
		return
	}
	nt.respond(msg, response)
}

func (nt *NATSTransport) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), nt.config.NATS.Timeout)
}

func (nt *NATSTransport) respond(msg *nats.Msg, response any) {
	responseData, err := json.Marshal(response)
	if err != nil {
		logx.Error().Err(err).Msg("failed to marshal response")
		return
	}

	if err := msg.Respond(responseData); err != nil {
		logx.Error().Err(err).Msg("failed to send response")
	}
}

func (nt *NATSTransport) sendChatError(msg *nats.Msg, sessionID, errorCode, errorMessage string) {
	response := &models.ChatResponse{
		SessionID:    sessionID,
		Replies:      []models.Turn{},
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	}
	nt.respond(msg, response)
}

func (nt *NATSTransport) Close() error {
	if nt.conn != nil {
		nt.conn.Close()
		logx.Info().Msg("NATS connection closed")
	}
	return nil
}
