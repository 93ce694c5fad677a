// internal/models/form.go
package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryLeisureFarm      Category = "type1"
	CategoryTourismOperator  Category = "type2"
	CategoryAgriOrganization Category = "type3"
	CategoryRuralEnterprise  Category = "type4"
)

// Categories lists the applicant categories in display order.
var Categories = []Category{
	CategoryLeisureFarm,
	CategoryTourismOperator,
	CategoryAgriOrganization,
	CategoryRuralEnterprise,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type AddOnID string

const (
	AddOnSustainability AddOnID = "sustainability"
	AddOnFoodExperience AddOnID = "food-experience"
)

var AddOns = []AddOnID{AddOnSustainability, AddOnFoodExperience}

func (a AddOnID) Valid() bool {
	return a == AddOnSustainability || a == AddOnFoodExperience
}

type FormStatus string

const (
	FormStatusDraft     FormStatus = "draft"
	FormStatusSubmitted FormStatus = "submitted"
)

type BasicInfo struct {
	FarmName    string    `json:"farmName"`
	CompanyName string    `json:"companyName"`
	OwnerName   string    `json:"ownerName"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	Category    Category  `json:"category"`
	Specialty   []string  `json:"specialty"`
	AddOns      []AddOnID `json:"addOns"`
	Year        int       `json:"year"`
}

type ChecklistItem struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
}

// DefaultChecklist returns the document checklist every applicant confirms.
func DefaultChecklist() []ChecklistItem {
	return []ChecklistItem{
		{ID: "business-registration", Label: "Business registration certificate"},
		{ID: "land-use-proof", Label: "Farm land-use proof"},
		{ID: "liability-insurance", Label: "Public liability insurance policy"},
	}
}

// Attachment references an uploaded evidence file. The bytes live in object storage.
type Attachment struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	ObjectKey   string    `json:"objectKey"`
	UploadedAt  time.Time `json:"uploadedAt"`
	// DownloadURL is filled only in reviewer responses and is never stored.
	DownloadURL string `json:"downloadUrl,omitempty"`
}

type Answer struct {
	Score       Score        `json:"score"`
	Note        string       `json:"note"`
	Attachments []Attachment `json:"attachments"`
}

// Clone copies the attachment slice so edits never leak between copies.
func (a Answer) Clone() Answer {
	out := a
	out.Attachments = slices.Clone(a.Attachments)
	return out
}

// FormState is the whole application wizard. Every field is present from creation.
type FormState struct {
	ID          string            `json:"id"`
	ApplicantID string            `json:"applicantId"`
	BasicInfo   BasicInfo         `json:"basicInfo"`
	Checklist   []ChecklistItem   `json:"checklist"`
	Documents   []Attachment      `json:"documents"`
	Answers     map[string]Answer `json:"answers"`
	Confirmed   bool              `json:"confirmed"`
	Status      FormStatus        `json:"status"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func NewFormState(applicantID string, now time.Time) *FormState {
	return &FormState{
		ID:          uuid.NewString(),
		ApplicantID: applicantID,
		BasicInfo: BasicInfo{
			Specialty: []string{},
			AddOns:    []AddOnID{},
			Year:      now.Year(),
		},
		Checklist: DefaultChecklist(),
		Documents: []Attachment{},
		Answers:   map[string]Answer{},
		Status:    FormStatusDraft,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy.
func (f *FormState) Clone() *FormState {
	if f == nil {
		return nil
	}
	out := *f
	out.BasicInfo.Specialty = slices.Clone(f.BasicInfo.Specialty)
	out.BasicInfo.AddOns = slices.Clone(f.BasicInfo.AddOns)
	out.Checklist = slices.Clone(f.Checklist)
	out.Documents = slices.Clone(f.Documents)
	out.Answers = make(map[string]Answer, len(f.Answers))
	for k, v := range f.Answers {
		out.Answers[k] = v.Clone()
	}
	return &out
}

// ChecklistComplete reports whether every checklist item is ticked.
func (f *FormState) ChecklistComplete() bool {
	for _, item := range f.Checklist {
		if !item.Checked {
			return false
		}
	}
	return len(f.Checklist) > 0
}
