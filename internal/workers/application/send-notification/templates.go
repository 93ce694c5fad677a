// internal/workers/application/send-notification/templates.go
package sendnotification

import (
	"fmt"
	"regexp"
	"strconv"

	"agritour-certification/internal/models"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// templates are keyed by notification type. SMS carries only the short text.
var templates = map[string]models.NotificationTemplate{
	TypeApplicationSubmitted: {
		Type:    TypeApplicationSubmitted,
		Subject: "Certification application {{applicationId}} received",
		Body: "Dear {{ownerName}},\n\n" +
			"We have received the certification application for {{farmName}}. " +
			"Your self-assessment total is {{totalScore}}. A reviewer will contact you once the review starts.\n\n" +
			"Track your application at {{portalUrl}}",
		HTMLBody: "Application {{applicationId}} for {{farmName}} was received.",
	},
	TypeNewApplication: {
		Type:    TypeNewApplication,
		Subject: "[{{priority}}] New application from {{farmName}}",
		Body: "A new {{category}} application ({{applicationId}}) is waiting in queue {{reviewerQueue}}.\n" +
			"Self-assessment total: {{totalScore}}. Priority: {{priority}}.\n\n" +
			"Review it at {{portalUrl}}",
	},
	TypeReviewDecision: {
		Type:    TypeReviewDecision,
		Subject: "Review decision for {{farmName}}: {{decision}}",
		Body: "Dear {{ownerName}},\n\n" +
			"The review of application {{applicationId}} is complete. Decision: {{decision}}.\n" +
			"{{note}}\n\n" +
			"Details are available at {{portalUrl}}",
		HTMLBody: "Application {{applicationId}}: {{decision}}. {{note}}",
	},
}

// render substitutes {{key}} placeholders from data. Unknown keys render empty.
func render(tmpl string, data map[string]interface{}) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		switch v := data[key].(type) {
		case nil:
			return ""
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return fmt.Sprint(v)
		}
	})
}
