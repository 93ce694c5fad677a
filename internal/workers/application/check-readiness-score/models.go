// internal/workers/application/check-readiness-score/models.go
package checkreadinessscore

import (
	"agritour-certification/internal/assessment/scoring"
	"agritour-certification/internal/models"
)

type Input struct {
	ApplicationID string            `json:"applicationId"`
	FormData      *models.FormState `json:"formData"`
}

type Output struct {
	TotalScore   float64                `json:"totalScore"`
	VisibleTotal float64                `json:"visibleTotal"`
	MaxScore     float64                `json:"maxScore"`
	Percentage   float64                `json:"percentage"`
	Completion   scoring.Completion     `json:"completion"`
	Readiness    string                 `json:"readiness"`
	Sections     []scoring.SectionScore `json:"sections"`
}

// Readiness levels, by share of the best possible visible total.
const (
	ReadinessExcellent    = "excellent"
	ReadinessGood         = "good"
	ReadinessFair         = "fair"
	ReadinessInsufficient = "insufficient"
)
