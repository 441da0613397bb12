package handoff

import "github.com/glenroe/tenant-intake/internal/models"

// RouteFor maps an intent to its destination form route. The action query
// parameter is the destination's fallback when no prefill payload is present.
func RouteFor(intent models.Intent) string {
	switch intent {
	case models.IntentReportRepair:
		return "/tenant?action=report-repair"
	case models.IntentMovingOut:
		return "/tenant?action=moving-out"
	default:
		return "/tenant?action=other"
	}
}
