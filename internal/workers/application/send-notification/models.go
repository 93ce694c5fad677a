// internal/workers/application/send-notification/models.go
package sendnotification

import "agritour-certification/internal/models"

type Input struct {
	NotificationType string                 `json:"notificationType"`
	ApplicationID    string                 `json:"applicationId"`
	ApplicantID      string                 `json:"applicantId,omitempty"`
	FormData         *models.FormState      `json:"formData,omitempty"`
	Reviewers        []string               `json:"reviewers,omitempty"`
	ReviewerQueue    string                 `json:"reviewerQueue,omitempty"`
	Priority         string                 `json:"priority,omitempty"`
	TotalScore       float64                `json:"totalScore,omitempty"`
	Decision         string                 `json:"decision,omitempty"`
	DecisionNote     string                 `json:"decisionNote,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"` // "sent", "failed", "disabled"
	Channels       []string `json:"channels"`
	SentAt         string   `json:"sentAt"` // RFC 3339
}

// Notification types
const (
	TypeApplicationSubmitted = "application_submitted"
	TypeNewApplication       = "new_application"
	TypeReviewDecision       = "review_decision"
)

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// contact is where one recipient is reached.
type contact struct {
	Email string
	Phone string
}
