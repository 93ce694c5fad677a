// internal/workers/application/check-priority-routing/models.go
package checkpriorityrouting

import "agritour-certification/internal/models"

type Input struct {
	ApplicationID string           `json:"applicationId"`
	Category      models.Category  `json:"category"`
	AddOns        []models.AddOnID `json:"addOns"`
	Readiness     string           `json:"readiness"`
}

type Output struct {
	Priority      string   `json:"priority"`
	ReviewerQueue string   `json:"reviewerQueue"`
	Reviewers     []string `json:"reviewers"`
}

// Queue is a reviewer_queues row as cached in Redis.
type Queue struct {
	Name      string   `json:"name"`
	Reviewers []string `json:"reviewers"`
}

const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
)
