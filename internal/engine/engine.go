package engine

import (
	"strings"
	"time"

	"github.com/glenroe/tenant-intake/internal/models"
	"github.com/glenroe/tenant-intake/internal/replies"
)

// Engine is the turn-based intake state machine. It holds no conversation
// state of its own; every operation mutates the ConversationState it is
// given and returns the assistant turns produced by that transition.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// NewConversation creates a fresh conversation seeded with the greeting.
func NewConversation(sessionID string) *models.ConversationState {
	now := time.Now().UTC()
	st := &models.ConversationState{
		SessionID: sessionID,
		State:     models.StateDetectingIntent,
		Metadata: models.Metadata{
			StartedAt:    now,
			LastActivity: now,
		},
	}
	appendTurn(st, models.RoleAssistant, replies.Greeting)
	return st
}

// fieldOrder is the per-intent question sequence. The next question asked is
// always the first unset field in this order.
func fieldOrder(intent models.Intent) []models.Field {
	switch intent {
	case models.IntentReportRepair:
		return []models.Field{models.FieldAddress, models.FieldDetails, models.FieldPriority, models.FieldName, models.FieldContact}
	case models.IntentMovingOut:
		return []models.Field{models.FieldName, models.FieldContact, models.FieldAddress, models.FieldDetails}
	default:
		return []models.Field{models.FieldName, models.FieldContact, models.FieldDetails}
	}
}

// SubmitText processes one free-text user turn. Whitespace-only input is a
// no-op: no turn is appended and the state is unchanged. Every other input is
// accepted as-is; transitions are total.
func (e *Engine) SubmitText(st *models.ConversationState, text string) []models.Turn {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	appendTurn(st, models.RoleUser, text)

	switch st.State {
	case models.StateDetectingIntent:
		return e.handleDetect(st, text)
	case models.StateCollecting:
		return e.handleCollect(st, text)
	case models.StateAwaitingConfirmation:
		return e.handleConfirm(st, text)
	case models.StateCorrecting:
		return e.handleCorrection(st, text)
	case models.StateReady:
		return say(st, replies.CallToAction(st.Intent))
	}
	return say(st, replies.FallbackMessage)
}

// QuickSelect declares intent via one of the three quick buttons. Intent is
// first-wins: once set, a quick-select for another flow only points the user
// at restart.
func (e *Engine) QuickSelect(st *models.ConversationState, key models.Intent) []models.Turn {
	if !key.Valid() {
		return nil
	}
	appendTurn(st, models.RoleUser, replies.QuickLabel(key))

	if st.Intent != "" {
		return say(st, replies.IntentLocked)
	}

	st.Intent = key
	turns := say(st, replies.IntentAck(key))
	return append(turns, e.advance(st)...)
}

// Restart resets the conversation to a fresh greeting, keeping the session ID.
func (e *Engine) Restart(st *models.ConversationState) *models.ConversationState {
	fresh := NewConversation(st.SessionID)
	fresh.Transcript[0] = models.Turn{Role: models.RoleAssistant, Text: replies.RestartAck}
	return fresh
}

func (e *Engine) handleDetect(st *models.ConversationState, text string) []models.Turn {
	st.Intent = DetectIntent(text)
	turns := say(st, replies.IntentAck(st.Intent))
	return append(turns, e.advance(st)...)
}

func (e *Engine) handleCollect(st *models.ConversationState, text string) []models.Turn {
	field := st.Pending

	value := text
	if field == models.FieldPriority {
		value = string(classifyPriorityAnswer(text))
		st.PriorityInferred = false
	}
	st.Fields.Set(field, value)

	// Opportunistic priority capture from the repair description.
	if st.Intent == models.IntentReportRepair && field == models.FieldDetails && st.Fields.Priority == "" {
		if p := DetectPriority(text); p != "" {
			st.Fields.Priority = p
			st.PriorityInferred = true
		}
	}

	st.Pending = ""
	return e.advance(st)
}

func (e *Engine) handleConfirm(st *models.ConversationState, text string) []models.Turn {
	if isAffirmative(text) {
		st.State = models.StateReady
		return say(st, replies.ConfirmAck(st.Intent), replies.CallToAction(st.Intent))
	}

	// Rejection: clear the summary guard so a revised summary renders again,
	// but leave every field value untouched.
	st.State = models.StateCorrecting
	st.SummaryShown = false
	return say(st, replies.RejectionPrompt)
}

func (e *Engine) handleCorrection(st *models.ConversationState, text string) []models.Turn {
	t := strings.ToLower(text)

	for _, field := range fieldOrder(st.Intent) {
		if strings.Contains(t, string(field)) {
			st.Fields.Clear(field)
			if field == models.FieldPriority {
				st.PriorityInferred = false
			}
			st.State = models.StateCollecting
			st.Pending = field
			return say(st, replies.Reopen(st.Intent, field))
		}
	}
	return say(st, replies.CorrectionRetry)
}

// advance moves to the first unset field for the active intent, or to the
// summary once every slot is filled. The summary renders at most once per
// fully-collected state.
func (e *Engine) advance(st *models.ConversationState) []models.Turn {
	for _, field := range fieldOrder(st.Intent) {
		if !fieldSettled(st, field) {
			st.State = models.StateCollecting
			st.Pending = field
			return say(st, replies.Question(st.Intent, field))
		}
	}

	st.State = models.StateAwaitingConfirmation
	if st.SummaryShown {
		return say(st, replies.ConfirmPrompt)
	}
	st.SummaryShown = true
	return say(st, replies.Summary(st.Intent, st.Fields))
}

// ReadyForRepair reports whether all five repair fields are filled. It does
// not depend on confirmation state.
func (e *Engine) ReadyForRepair(st *models.ConversationState) bool {
	return e.readyFor(st, models.IntentReportRepair)
}

// ReadyForMoving reports whether all move-out fields are filled.
func (e *Engine) ReadyForMoving(st *models.ConversationState) bool {
	return e.readyFor(st, models.IntentMovingOut)
}

// ReadyForOther reports whether all general-enquiry fields are filled.
func (e *Engine) ReadyForOther(st *models.ConversationState) bool {
	return e.readyFor(st, models.IntentOther)
}

// Ready reports whether the conversation's own intent is fully collected.
func (e *Engine) Ready(st *models.ConversationState) bool {
	if st.Intent == "" {
		return false
	}
	return e.readyFor(st, st.Intent)
}

func (e *Engine) readyFor(st *models.ConversationState, intent models.Intent) bool {
	if st.Intent != intent {
		return false
	}
	for _, field := range fieldOrder(intent) {
		if st.Fields.Get(field) == "" {
			return false
		}
	}
	return true
}

// Prefill serializes the collected fields plus intent for the handoff store.
func (e *Engine) Prefill(st *models.ConversationState) models.PrefillPayload {
	return models.PrefillPayload{
		Name:     st.Fields.Name,
		Contact:  st.Fields.Contact,
		Address:  st.Fields.Address,
		Details:  st.Fields.Details,
		Priority: st.Fields.Priority,
		Intent:   st.Intent,
	}
}

// fieldSettled reports whether a slot no longer needs its question. An
// inferred priority below urgent is not settled: the dedicated question is
// still asked and the explicit answer wins.
func fieldSettled(st *models.ConversationState, field models.Field) bool {
	value := st.Fields.Get(field)
	if value == "" {
		return false
	}
	if field == models.FieldPriority && st.PriorityInferred && st.Fields.Priority != models.PriorityUrgent {
		return false
	}
	return true
}

// appendTurn appends to the transcript and touches the session metadata.
// The transcript is append-only; turns are never reordered or deleted.
func appendTurn(st *models.ConversationState, role models.Role, text string) {
	st.Transcript = append(st.Transcript, models.Turn{Role: role, Text: text})
	st.Metadata.LastActivity = time.Now().UTC()
	st.Metadata.TurnCount = len(st.Transcript)
}

func say(st *models.ConversationState, texts ...string) []models.Turn {
	turns := make([]models.Turn, 0, len(texts))
	for _, text := range texts {
		appendTurn(st, models.RoleAssistant, text)
		turns = append(turns, models.Turn{Role: models.RoleAssistant, Text: text})
	}
	return turns
}
