// internal/models/application.go
package models

import "time"

type ApplicationStatus string

const (
	StatusPending   ApplicationStatus = "pending"
	StatusReviewing ApplicationStatus = "reviewing"
	StatusCompleted ApplicationStatus = "completed"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionAmend   Decision = "amend"
)

func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject || d == DecisionAmend
}

// Submission is what the wizard hands to the certification process on submit.
type Submission struct {
	ApplicationID      string     `json:"applicationId"`
	ApplicantID        string     `json:"applicantId"`
	Category           Category   `json:"category"`
	AddOns             []AddOnID  `json:"addOns"`
	TotalScore         float64    `json:"totalScore"`
	VisibleQuestionIDs []string   `json:"visibleQuestionIds"`
	FormData           *FormState `json:"formData"`
	SubmittedAt        time.Time  `json:"submittedAt"`
}

// ApplicationRecord is the admin-side projection of a submitted application.
type ApplicationRecord struct {
	ID            string            `json:"id"`
	ApplicantID   string            `json:"applicantId"`
	Year          int               `json:"year"`
	FarmName      string            `json:"farmName"`
	CompanyName   string            `json:"companyName"`
	OwnerName     string            `json:"ownerName"`
	Email         string            `json:"email"`
	Phone         string            `json:"phone"`
	City          string            `json:"city"`
	Category      Category          `json:"category"`
	AddOns        []AddOnID         `json:"addOns"`
	TotalScore    float64           `json:"totalScore"`
	Readiness     string            `json:"readiness"`
	Priority      string            `json:"priority"`
	ReviewerQueue string            `json:"reviewerQueue"`
	Status        ApplicationStatus `json:"status"`
	Decision      Decision          `json:"decision,omitempty"`
	DecisionNote  string            `json:"decisionNote,omitempty"`
	Form          *FormState        `json:"formData,omitempty"`
	SubmittedAt   time.Time         `json:"submittedAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// ReviewScore is one reviewer score for one question.
type ReviewScore struct {
	QuestionID string `json:"questionId"`
	Score      Score  `json:"score"`
	Comment    string `json:"comment"`
	ReviewerID string `json:"reviewerId"`
}
