// internal/assessment/catalog/catalog.go
package catalog

import (
	"context"
	stderrors "errors"
	"fmt"

	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/models"
)

// ErrEmptyCatalog is returned when a source produced no questions. An empty catalog
// is a load failure, never "nothing applies".
var ErrEmptyCatalog = stderrors.New("CATALOG_EMPTY")

type SectionKind string

const (
	KindBase        SectionKind = "base"
	KindConditional SectionKind = "conditional"
	KindAddOn       SectionKind = "addon"
)

func (k SectionKind) Valid() bool {
	return k == KindBase || k == KindConditional || k == KindAddOn
}

// Rubric holds the guidance text for scores 0, 2.5 and 5.
type Rubric struct {
	Zero string `json:"zero" yaml:"zero"`
	Half string `json:"half" yaml:"half"`
	Full string `json:"full" yaml:"full"`
}

type Question struct {
	ID           string            `json:"id"`
	Number       int               `json:"number"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Rubric       Rubric            `json:"rubric"`
	ApplicableTo []models.Category `json:"applicableTo,omitempty"`
}

// AppliesTo reports whether the question is shown for category. An empty
// ApplicableTo means every category.
func (q Question) AppliesTo(category models.Category) bool {
	if len(q.ApplicableTo) == 0 {
		return true
	}
	for _, c := range q.ApplicableTo {
		if c == category {
			return true
		}
	}
	return false
}

type Section struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Kind        SectionKind       `json:"kind"`
	RequiredFor []models.Category `json:"requiredFor,omitempty"`
	AddOn       models.AddOnID    `json:"addOn,omitempty"`
	Questions   []Question        `json:"questions"`
}

// RequiredForCategory reports whether a conditional section is shown for category.
func (s Section) RequiredForCategory(category models.Category) bool {
	for _, c := range s.RequiredFor {
		if c == category {
			return true
		}
	}
	return false
}

// Catalog is the ordered list of sections.
type Catalog []Section

// ListQuestions returns questions in catalog order. An empty category returns all of
// them; otherwise questions restricted to other categories are left out.
func (c Catalog) ListQuestions(category models.Category) []Question {
	var out []Question
	for _, section := range c {
		for _, q := range section.Questions {
			if category == "" || q.AppliesTo(category) {
				out = append(out, q)
			}
		}
	}
	return out
}

func (c Catalog) QuestionCount() int {
	n := 0
	for _, section := range c {
		n += len(section.Questions)
	}
	return n
}

// Question finds a question by id.
func (c Catalog) Question(id string) (Question, bool) {
	for _, section := range c {
		for _, q := range section.Questions {
			if q.ID == id {
				return q, true
			}
		}
	}
	return Question{}, false
}

// Source produces a catalog. Implementations may return an empty catalog; Fetch
// is what turns that into an error.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Catalog, error)
}

// Fetch reads src and fails closed: source errors become CATALOG_LOAD_FAILED and a
// catalog without questions becomes ErrEmptyCatalog.
func Fetch(ctx context.Context, src Source) (Catalog, error) {
	cat, err := src.Fetch(ctx)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeCatalogLoadFailed) {
			return nil, err
		}
		return nil, errors.NewCatalogLoadFailedError(src.Name(), err)
	}
	if cat.QuestionCount() == 0 {
		return nil, fmt.Errorf("%w: %w", ErrEmptyCatalog, errors.NewCatalogEmptyError(src.Name()))
	}
	return cat, nil
}
