package models

import "time"

// Role identifies who produced a transcript turn.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Intent is the categorical purpose of a tenant's conversation.
type Intent string

const (
	IntentReportRepair Intent = "report-repair"
	IntentMovingOut    Intent = "moving-out"
	IntentOther        Intent = "other"
)

// Valid reports whether the intent is one of the three known values.
func (i Intent) Valid() bool {
	switch i {
	case IntentReportRepair, IntentMovingOut, IntentOther:
		return true
	}
	return false
}

// Priority classifies how fast a repair needs attention.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Field names one of the collectable slots.
type Field string

const (
	FieldName     Field = "name"
	FieldContact  Field = "contact"
	FieldAddress  Field = "address"
	FieldDetails  Field = "details"
	FieldPriority Field = "priority"
)

// Turn is an entry in the transcript. Immutable once appended.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// CollectedFields holds the slots gathered during a conversation.
// Empty string means the slot has not been filled yet.
type CollectedFields struct {
	Name     string   `json:"name,omitempty"`
	Contact  string   `json:"contact,omitempty"`
	Address  string   `json:"address,omitempty"`
	Details  string   `json:"details,omitempty"`
	Priority Priority `json:"priority,omitempty"`
}

// Get returns the value of the named slot.
func (f CollectedFields) Get(field Field) string {
	switch field {
	case FieldName:
		return f.Name
	case FieldContact:
		return f.Contact
	case FieldAddress:
		return f.Address
	case FieldDetails:
		return f.Details
	case FieldPriority:
		return string(f.Priority)
	}
	return ""
}

// Set stores the value into the named slot.
func (f *CollectedFields) Set(field Field, value string) {
	switch field {
	case FieldName:
		f.Name = value
	case FieldContact:
		f.Contact = value
	case FieldAddress:
		f.Address = value
	case FieldDetails:
		f.Details = value
	case FieldPriority:
		f.Priority = Priority(value)
	}
}

// Clear empties the named slot.
func (f *CollectedFields) Clear(field Field) {
	f.Set(field, "")
}

// State names the conversation machine's current position.
type State string

const (
	StateDetectingIntent      State = "detecting-intent"
	StateCollecting           State = "collecting"
	StateAwaitingConfirmation State = "awaiting-confirmation"
	StateCorrecting           State = "correcting"
	StateReady                State = "ready"
)

// Metadata contains session bookkeeping.
type Metadata struct {
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	TurnCount    int       `json:"turn_count"`
}

// ConversationState is the machine's full state, owned by one conversation.
type ConversationState struct {
	SessionID string          `json:"session_id"`
	State     State           `json:"state"`
	Pending   Field           `json:"pending,omitempty"` // slot being collected while State == StateCollecting
	Intent    Intent          `json:"intent,omitempty"`
	Fields    CollectedFields `json:"fields"`

	// PriorityInferred marks a priority captured from the repair description
	// rather than the dedicated question. An inferred non-urgent priority
	// still gets the question, and the explicit answer overwrites it.
	PriorityInferred bool `json:"priority_inferred,omitempty"`
	SummaryShown     bool `json:"summary_shown"`

	Transcript []Turn   `json:"transcript"`
	Metadata   Metadata `json:"metadata"`
}

// AwaitingConfirm reports whether the next user turn is a yes/no answer.
func (s *ConversationState) AwaitingConfirm() bool {
	return s.State == StateAwaitingConfirmation
}

// PrefillPayload is the handoff object the destination form consumes once.
type PrefillPayload struct {
	Name     string   `json:"name,omitempty"`
	Contact  string   `json:"contact,omitempty"`
	Address  string   `json:"address,omitempty"`
	Details  string   `json:"details,omitempty"`
	Priority Priority `json:"priority,omitempty"`
	Intent   Intent   `json:"intent"`
}

// ChatRequest is a user message for an existing or new session.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// QuickSelectRequest declares intent via one of the three quick buttons.
type QuickSelectRequest struct {
	SessionID string `json:"session_id"`
	Key       Intent `json:"key"`
}

// ChatResponse carries the assistant's reply turns and the machine position.
type ChatResponse struct {
	SessionID    string  `json:"session_id"`
	Replies      []Turn  `json:"replies"`
	State        State   `json:"state"`
	Intent       Intent  `json:"intent,omitempty"`
	Ready        bool    `json:"ready"`
	ErrorCode    *string `json:"error_code,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// RestartRequest resets a conversation to a fresh greeting.
type RestartRequest struct {
	SessionID string `json:"session_id"`
}

// HandoffRequest asks the engine to stage prefill data for the form.
type HandoffRequest struct {
	SessionID string `json:"session_id"`
}

// HandoffResponse returns the destination route after a successful handoff.
type HandoffResponse struct {
	SessionID    string  `json:"session_id"`
	Route        string  `json:"route,omitempty"`
	Ready        bool    `json:"ready"`
	ErrorCode    *string `json:"error_code,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// Error codes
const (
	ErrorParseError    = "PARSE_ERROR"
	ErrorSessionFailed = "SESSION_FAILED"
	ErrorUnknownIntent = "UNKNOWN_INTENT"
	ErrorNotReady      = "NOT_READY"
)
