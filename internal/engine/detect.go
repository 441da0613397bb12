package engine

import (
	"strings"

	"github.com/glenroe/tenant-intake/internal/models"
)

// Keyword sets for intent routing. Repair keywords are checked first; the
// first match wins.
var repairKeywords = []string{"repair", "fix", "broken", "leak", "heating"}
var movingKeywords = []string{"move", "moving", "leave", "notice"}

// DetectIntent classifies free text into one of the three intents by
// case-insensitive substring match. It is total: anything that matches
// neither keyword set is an "other" enquiry.
func DetectIntent(text string) models.Intent {
	t := strings.ToLower(text)

	for _, kw := range repairKeywords {
		if strings.Contains(t, kw) {
			return models.IntentReportRepair
		}
	}
	for _, kw := range movingKeywords {
		if strings.Contains(t, kw) {
			return models.IntentMovingOut
		}
	}
	return models.IntentOther
}

var urgentSignals = []string{"danger", "gas", "carbon", "monoxide", "sparks", "fire", "flood", "burst"}

// "no heat" also covers "no heating".
var highSignals = []string{"leak", "no heat", "no hot water", "electrics", "soon", "asap", "priority"}

// DetectPriority infers a priority from repair description text. It returns
// the empty priority when the text carries no signal, leaving the dedicated
// priority question to fill the slot.
func DetectPriority(text string) models.Priority {
	t := strings.ToLower(text)

	for _, kw := range urgentSignals {
		if strings.Contains(t, kw) {
			return models.PriorityUrgent
		}
	}
	for _, kw := range highSignals {
		if strings.Contains(t, kw) {
			return models.PriorityHigh
		}
	}
	return ""
}

// classifyPriorityAnswer interprets the answer to the dedicated priority
// question. Ambiguous answers default to medium.
func classifyPriorityAnswer(text string) models.Priority {
	t := strings.ToLower(strings.TrimSpace(text))

	switch {
	case strings.Contains(t, "urgent"), strings.Contains(t, "emergency"):
		return models.PriorityUrgent
	case strings.Contains(t, "high"):
		return models.PriorityHigh
	case strings.Contains(t, "low"):
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}

var affirmativePhrases = []string{"correct", "looks good", "confirm"}

// isAffirmative interprets a confirmation answer. Anything that is not
// affirmative counts as a rejection, and a negated phrase like "no, that's
// not correct" rejects even though it contains an affirmative word.
func isAffirmative(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))

	if t == "yes" || t == "y" {
		return true
	}
	if t == "no" || t == "n" || strings.HasPrefix(t, "no,") || strings.HasPrefix(t, "no ") || strings.Contains(t, "not ") {
		return false
	}
	for _, phrase := range affirmativePhrases {
		if strings.Contains(t, phrase) {
			return true
		}
	}
	return false
}
