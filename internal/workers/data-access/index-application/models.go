// internal/workers/data-access/index-application/models.go
package indexapplication

import (
	"time"

	"agritour-certification/internal/models"
)

type Input struct {
	ApplicationID     string            `json:"applicationId"`
	ApplicantID       string            `json:"applicantId"`
	FormData          *models.FormState `json:"formData"`
	TotalScore        float64           `json:"totalScore"`
	Readiness         string            `json:"readiness"`
	Priority          string            `json:"priority"`
	ApplicationStatus string            `json:"applicationStatus"`
	Decision          string            `json:"decision,omitempty"`
	SubmittedAt       time.Time         `json:"submittedAt"`
}

type Output struct {
	Indexed   bool   `json:"indexed"`
	IndexName string `json:"indexName"`
}

// Document is what the admin dashboard searches.
type Document struct {
	ApplicationID string           `json:"applicationId"`
	ApplicantID   string           `json:"applicantId"`
	FarmName      string           `json:"farmName"`
	CompanyName   string           `json:"companyName"`
	OwnerName     string           `json:"ownerName"`
	City          string           `json:"city"`
	Category      models.Category  `json:"category"`
	AddOns        []models.AddOnID `json:"addOns"`
	Status        string           `json:"status"`
	Decision      string           `json:"decision,omitempty"`
	Priority      string           `json:"priority"`
	Readiness     string           `json:"readiness"`
	Year          int              `json:"year"`
	TotalScore    float64          `json:"totalScore"`
	SubmittedAt   time.Time        `json:"submittedAt"`
}
