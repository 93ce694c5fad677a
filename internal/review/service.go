// internal/review/service.go
package review

import (
	"context"
	"strings"
	"time"

	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/common/messaging"
	"agritour-certification/internal/common/metrics"
	"agritour-certification/internal/models"
)

const (
	// DecisionMessage is correlated on the application id in the certification process.
	DecisionMessage = "review-decided"
	// DecisionRoutingKey is the AMQP routing key of DecisionEvent.
	DecisionRoutingKey = "certification.review.decided"
)

// MessagePublisher publishes a workflow message. *camunda.Client implements it.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, name, correlationKey, messageID string, vars interface{}) error
}

// ScoreInput is one reviewer score as submitted by the dashboard.
type ScoreInput struct {
	QuestionID string       `json:"questionId" validate:"required"`
	Score      models.Score `json:"score"`
	Comment    string       `json:"comment" validate:"max=2000"`
}

// Detail is an application with its review scores.
type Detail struct {
	Application *models.ApplicationRecord `json:"application"`
	Scores      []models.ReviewScore      `json:"scores"`
	ReviewTotal float64                   `json:"reviewTotal"`
}

// DecisionEvent is published once a decision is recorded.
type DecisionEvent struct {
	ApplicationID string          `json:"applicationId"`
	ApplicantID   string          `json:"applicantId"`
	Category      models.Category `json:"category"`
	Decision      models.Decision `json:"decision"`
	Note          string          `json:"note,omitempty"`
	ReviewerID    string          `json:"reviewerId"`
	SelfScore     float64         `json:"selfScore"`
	ReviewTotal   float64         `json:"reviewTotal"`
	DecidedAt     time.Time       `json:"decidedAt"`
}

// DecisionResult reports the stored decision and which downstream publishes went through.
// The decision is durable even when a publish fails.
type DecisionResult struct {
	Detail
	WorkflowNotified bool `json:"workflowNotified"`
	EventPublished   bool `json:"eventPublished"`
}

type Service struct {
	repo     Repository
	workflow MessagePublisher
	events   messaging.Publisher
	logger   logger.Logger
	now      func() time.Time
}

func NewService(repo Repository, workflow MessagePublisher, events messaging.Publisher, log logger.Logger) *Service {
	if events == nil {
		events = messaging.NopPublisher{}
	}
	return &Service{
		repo:     repo,
		workflow: workflow,
		events:   events,
		logger:   log.WithFields(map[string]interface{}{"component": "review"}),
		now:      time.Now,
	}
}

func (s *Service) Application(ctx context.Context, id string) (*Detail, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	scores, err := s.repo.Scores(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Application: rec, Scores: scores, ReviewTotal: Total(scores)}, nil
}

// SaveScores records reviewer scores. The first save moves a pending application to reviewing.
func (s *Service) SaveScores(ctx context.Context, id, reviewerID string, inputs []ScoreInput) (*Detail, error) {
	if len(inputs) == 0 {
		return nil, errors.NewAssessmentValidationError("no scores given")
	}
	seen := make(map[string]bool, len(inputs))
	scores := make([]models.ReviewScore, 0, len(inputs))
	for _, in := range inputs {
		qid := strings.TrimSpace(in.QuestionID)
		if qid == "" {
			return nil, errors.NewAssessmentValidationError("questionId is required")
		}
		if seen[qid] {
			return nil, errors.NewAssessmentValidationError("duplicate score for " + qid)
		}
		seen[qid] = true
		scores = append(scores, models.ReviewScore{
			QuestionID: qid,
			Score:      in.Score,
			Comment:    strings.TrimSpace(in.Comment),
			ReviewerID: reviewerID,
		})
	}

	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.StatusCompleted {
		return nil, errors.NewBusinessRuleError("Application is already decided", "id: "+id)
	}

	if err := s.repo.SaveScores(ctx, id, scores, s.now().UTC()); err != nil {
		return nil, err
	}
	s.logger.Info("Review scores saved", map[string]interface{}{
		"applicationId": id,
		"reviewerId":    reviewerID,
		"count":         len(scores),
	})
	return s.Application(ctx, id)
}

// Decide records the final decision, then tells the workflow and downstream consumers.
func (s *Service) Decide(ctx context.Context, id, reviewerID string, decision models.Decision, note string) (*DecisionResult, error) {
	note = strings.TrimSpace(note)
	if !decision.Valid() {
		return nil, errors.NewReviewDecisionInvalidError("unknown decision " + string(decision))
	}
	if decision == models.DecisionAmend && note == "" {
		return nil, errors.NewReviewDecisionInvalidError("amend requires a note")
	}

	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.StatusCompleted {
		return nil, errors.NewBusinessRuleError("Application is already decided", "id: "+id)
	}

	now := s.now().UTC()
	updated, err := s.repo.Decide(ctx, id, decision, note, reviewerID, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, errors.NewBusinessRuleError("Application is already decided", "id: "+id)
	}
	metrics.ReviewDecisions.WithLabelValues(string(decision)).Inc()

	detail, err := s.Application(ctx, id)
	if err != nil {
		return nil, err
	}
	result := &DecisionResult{Detail: *detail}
	log := s.logger.WithFields(map[string]interface{}{"applicationId": id, "decision": decision})

	if s.workflow != nil {
		vars := map[string]interface{}{
			"decision":      decision,
			"decisionNote":  note,
			"reviewTotal":   detail.ReviewTotal,
			"applicantId":   rec.ApplicantID,
			"email":         rec.Email,
			"phone":         rec.Phone,
			"farmName":      rec.FarmName,
			"applicationId": id,
		}
		if err := s.workflow.PublishMessage(ctx, DecisionMessage, id, DecisionMessage+":"+id, vars); err != nil {
			log.Error("Failed to publish decision message", map[string]interface{}{"error": err.Error()})
		} else {
			result.WorkflowNotified = true
		}
	}

	event := DecisionEvent{
		ApplicationID: id,
		ApplicantID:   rec.ApplicantID,
		Category:      rec.Category,
		Decision:      decision,
		Note:          note,
		ReviewerID:    reviewerID,
		SelfScore:     rec.TotalScore,
		ReviewTotal:   detail.ReviewTotal,
		DecidedAt:     now,
	}
	if err := s.events.Publish(ctx, DecisionRoutingKey, event); err != nil {
		log.Error("Failed to publish decision event", map[string]interface{}{"error": err.Error()})
	} else {
		result.EventPublished = true
	}

	log.Info("Review decided", nil)
	return result, nil
}

// Total sums the set reviewer scores, rounded to one decimal.
func Total(scores []models.ReviewScore) float64 {
	var sum float64
	for _, s := range scores {
		sum += s.Score.Value()
	}
	return float64(int64(sum*10+0.5)) / 10
}
