package replies

import (
	"net/url"
	"strings"
	"testing"

	"github.com/glenroe/tenant-intake/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryRendersIntentSpecificOrder(t *testing.T) {
	fields := models.CollectedFields{
		Name:     "Jane",
		Contact:  "jane@x.com",
		Address:  "123 Main St",
		Details:  "tap is leaking",
		Priority: models.PriorityUrgent,
	}

	summary := Summary(models.IntentReportRepair, fields)
	lines := strings.Split(summary, "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "Here's what I've got:", lines[0])
	assert.Equal(t, "Address: 123 Main St", lines[1])
	assert.Equal(t, "Details: tap is leaking", lines[2])
	assert.Equal(t, "Priority: urgent", lines[3])
	assert.Equal(t, "Name: Jane", lines[4])
	assert.Equal(t, "Contact: jane@x.com", lines[5])
	assert.Equal(t, ConfirmPrompt, lines[6])
}

func TestSummaryShowsDashForEmptySlots(t *testing.T) {
	summary := Summary(models.IntentOther, models.CollectedFields{Name: "Jane"})

	assert.Contains(t, summary, "Name: Jane")
	assert.Contains(t, summary, "Contact: -")
	assert.Contains(t, summary, "Details: -")
	assert.NotContains(t, summary, "Address:", "general enquiries do not collect an address")
}

func TestRenderTranscriptSpeakerLabels(t *testing.T) {
	turns := []models.Turn{
		{Role: models.RoleAssistant, Text: "Hi, how can we help today?"},
		{Role: models.RoleUser, Text: "my tap is leaking"},
	}

	body := RenderTranscript(turns)
	assert.Equal(t, "Glenroe: Hi, how can we help today?\nMe: my tap is leaking", body)
}

func TestBuildMailto(t *testing.T) {
	turns := []models.Turn{
		{Role: models.RoleAssistant, Text: "Hello there"},
		{Role: models.RoleUser, Text: "leaking tap & no hot water"},
	}

	href := BuildMailto("customerservices@glenroe.co.uk", turns)

	assert.True(t, strings.HasPrefix(href, "mailto:customerservices@glenroe.co.uk?subject=Tenant%20enquiry&body="))
	assert.NotContains(t, href, " ", "subject and body must be percent-encoded")
	assert.NotContains(t, href, "+", "spaces encode as %20, not +")

	// The body decodes back to the rendered transcript, ampersand included.
	bodyParam := href[strings.Index(href, "&body=")+len("&body="):]
	assert.NotContains(t, bodyParam, "&")
	decoded, err := url.QueryUnescape(bodyParam)
	require.NoError(t, err)
	assert.Equal(t, RenderTranscript(turns), decoded)
}

func TestQuickLabels(t *testing.T) {
	assert.Equal(t, "Report a repair", QuickLabel(models.IntentReportRepair))
	assert.Equal(t, "Moving out", QuickLabel(models.IntentMovingOut))
	assert.Equal(t, "Other", QuickLabel(models.IntentOther))
}

func TestQuestionCopyVariesByIntent(t *testing.T) {
	assert.Equal(t, "Please describe the problem.", Question(models.IntentReportRepair, models.FieldDetails))
	assert.NotEqual(t,
		Question(models.IntentReportRepair, models.FieldDetails),
		Question(models.IntentMovingOut, models.FieldDetails))
	assert.Equal(t, Question(models.IntentReportRepair, models.FieldName), Question(models.IntentMovingOut, models.FieldName))
}
