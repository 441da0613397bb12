package replies

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/glenroe/tenant-intake/internal/models"
)

// Greeting seeds every new conversation.
const Greeting = "Hi, how can we help today? You can report a repair, tell us you're moving out, or ask something else."

const FallbackMessage = "Thanks. You can continue here, or email us and we'll follow up."

// ConfirmPrompt closes every summary.
const ConfirmPrompt = "Does that look right? (yes/no)"

// RejectionPrompt asks which slot to re-enter after a rejected summary.
const RejectionPrompt = "No problem. Which detail should we change: name, contact, address, details or priority?"

// CorrectionRetry is sent when the correction selector cannot match a field.
const CorrectionRetry = "Sorry, I didn't catch that. Please tell me one of: name, contact, address, details or priority."

// RestartAck opens a conversation after an explicit restart.
const RestartAck = "Okay, let's start over. " + Greeting

// IntentLocked is sent when a quick-select arrives after intent is already set.
const IntentLocked = "We're already working on your current request. If you'd like to start a different one, tap restart and we'll begin again."

// MailSubject is the fixed subject of the fallback email channel.
const MailSubject = "Tenant enquiry"

// QuickLabel returns the canonical button label echoed as the user turn.
func QuickLabel(intent models.Intent) string {
	switch intent {
	case models.IntentReportRepair:
		return "Report a repair"
	case models.IntentMovingOut:
		return "Moving out"
	default:
		return "Other"
	}
}

// IntentAck acknowledges a detected or selected intent.
func IntentAck(intent models.Intent) string {
	switch intent {
	case models.IntentReportRepair:
		return "Great. I can guide you through a repair report. If you've received a magic link, have it handy to auto-fill your token."
	case models.IntentMovingOut:
		return "Thanks for letting us know. We'll ask a couple of questions to get this started."
	default:
		return "No problem. You can send us a quick note here, or email us and we'll get back to you."
	}
}

// Question returns the prompt for the slot being collected.
func Question(intent models.Intent, field models.Field) string {
	switch field {
	case models.FieldAddress:
		return "What's the property address?"
	case models.FieldPriority:
		return "How urgent is it? (low, medium, high or urgent)"
	case models.FieldName:
		return "What's your name?"
	case models.FieldContact:
		return "What's the best way to contact you? (email or phone)"
	case models.FieldDetails:
		switch intent {
		case models.IntentReportRepair:
			return "Please describe the problem."
		case models.IntentMovingOut:
			return "When are you planning to leave, and is there anything we should know?"
		default:
			return "What would you like to ask us?"
		}
	}
	return FallbackMessage
}

// Reopen introduces a re-asked question on the correction path.
func Reopen(intent models.Intent, field models.Field) string {
	return fmt.Sprintf("Sure, let's update the %s. %s", field, Question(intent, field))
}

// summaryRows gives the intent-specific field ordering of the summary.
func summaryRows(intent models.Intent) []models.Field {
	switch intent {
	case models.IntentReportRepair:
		return []models.Field{models.FieldAddress, models.FieldDetails, models.FieldPriority, models.FieldName, models.FieldContact}
	case models.IntentMovingOut:
		return []models.Field{models.FieldName, models.FieldContact, models.FieldAddress, models.FieldDetails}
	default:
		return []models.Field{models.FieldName, models.FieldContact, models.FieldDetails}
	}
}

func summaryLabel(field models.Field) string {
	switch field {
	case models.FieldName:
		return "Name"
	case models.FieldContact:
		return "Contact"
	case models.FieldAddress:
		return "Address"
	case models.FieldDetails:
		return "Details"
	case models.FieldPriority:
		return "Priority"
	}
	return string(field)
}

// Summary renders the deterministic confirmation summary. Empty slots show a
// placeholder dash.
func Summary(intent models.Intent, fields models.CollectedFields) string {
	var builder strings.Builder

	builder.WriteString("Here's what I've got:\n")
	for _, field := range summaryRows(intent) {
		value := fields.Get(field)
		if value == "" {
			value = "-"
		}
		builder.WriteString(fmt.Sprintf("%s: %s\n", summaryLabel(field), value))
	}
	builder.WriteString(ConfirmPrompt)

	return builder.String()
}

// ConfirmAck acknowledges an accepted summary.
func ConfirmAck(intent models.Intent) string {
	switch intent {
	case models.IntentReportRepair:
		return "Perfect, your repair details are ready."
	case models.IntentMovingOut:
		return "Thanks, your move-out notice is ready."
	default:
		return "Thanks, your enquiry is ready."
	}
}

// CallToAction tells the user how to reach the submission form.
func CallToAction(intent models.Intent) string {
	switch intent {
	case models.IntentReportRepair:
		return "Tap \"Start repair report\" below and we'll carry your answers over."
	case models.IntentMovingOut:
		return "Tap \"Start moving out\" below and we'll carry your answers over."
	default:
		return "Tap \"Ask about something else\" below and we'll carry your answers over."
	}
}

// RenderTranscript formats the transcript for the fallback email body,
// one "{Speaker}: {text}" line per turn.
func RenderTranscript(turns []models.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		speaker := "Me"
		if turn.Role == models.RoleAssistant {
			speaker = "Glenroe"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, turn.Text))
	}
	return strings.Join(lines, "\n")
}

// encodeComponent percent-encodes a mailto query component. QueryEscape
// alone encodes spaces as "+", which mail clients render literally.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// BuildMailto derives the mailto fallback link from the full transcript.
func BuildMailto(email string, turns []models.Turn) string {
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s",
		email,
		encodeComponent(MailSubject),
		encodeComponent(RenderTranscript(turns)))
}
