// internal/workers/application/create-application-record/models.go
package createapplicationrecord

import (
	"time"

	"agritour-certification/internal/models"
)

type Input struct {
	ApplicationID string            `json:"applicationId"`
	ApplicantID   string            `json:"applicantId"`
	FormData      *models.FormState `json:"formData"`
	TotalScore    float64           `json:"totalScore"`
	Readiness     string            `json:"readiness"`
	Priority      string            `json:"priority"`
	ReviewerQueue string            `json:"reviewerQueue"`
	SubmittedAt   time.Time         `json:"submittedAt"`
}

type Output struct {
	ApplicationID     string `json:"applicationId"`
	ApplicationStatus string `json:"applicationStatus"`
	CreatedAt         string `json:"createdAt"` // RFC 3339
}
