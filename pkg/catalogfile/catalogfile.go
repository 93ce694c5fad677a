// pkg/catalogfile/catalogfile.go
package catalogfile

import (
	stderrors "errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"agritour-certification/internal/assessment/catalog"
	"agritour-certification/internal/models"
)

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	return &f, nil
}

func Save(path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// FromCatalog converts a loaded catalog to its file form. Question numbers are not
// stored; they follow from the order.
func FromCatalog(cat catalog.Catalog, version string) *File {
	f := &File{Version: version, Sections: make([]Section, 0, len(cat))}
	for _, s := range cat {
		sec := Section{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Kind:        string(s.Kind),
			RequiredFor: fromCategories(s.RequiredFor),
			AddOn:       string(s.AddOn),
			Questions:   make([]Question, 0, len(s.Questions)),
		}
		for _, q := range s.Questions {
			sec.Questions = append(sec.Questions, Question{
				ID:           q.ID,
				Title:        q.Title,
				Criteria:     q.Description,
				Rubric:       q.Rubric,
				ApplicableTo: fromCategories(q.ApplicableTo),
			})
		}
		f.Sections = append(f.Sections, sec)
	}
	return f
}

// Rows flattens the file into template rows in file order.
func (f *File) Rows() []catalog.Row {
	var rows []catalog.Row
	for _, s := range f.Sections {
		kind := catalog.SectionKind(s.Kind)
		if kind == "" {
			kind = catalog.KindBase
		}
		for i, q := range s.Questions {
			rows = append(rows, catalog.Row{
				SectionID:            s.ID,
				SectionName:          s.Name,
				SectionDescription:   s.Description,
				SectionKind:          kind,
				RequiredFor:          toCategories(s.RequiredFor),
				AddOn:                models.AddOnID(s.AddOn),
				QuestionID:           q.ID,
				QuestionText:         q.Title,
				EvaluationCriteria:   q.Criteria,
				RubricZero:           q.Rubric.Zero,
				RubricHalf:           q.Rubric.Half,
				RubricFull:           q.Rubric.Full,
				OrderIndex:           i + 1,
				ApplicableCategories: toCategories(q.ApplicableTo),
			})
		}
	}
	return rows
}

func (f *File) Catalog() catalog.Catalog {
	return catalog.GroupRows(f.Rows())
}

// Validate reports every problem in f at once.
func Validate(f *File) error {
	if len(f.Sections) == 0 {
		return stderrors.New("catalog contains no sections")
	}

	var errs []error
	sectionIDs := map[string]bool{}
	questionIDs := map[string]string{}
	for i, s := range f.Sections {
		where := fmt.Sprintf("section %d (%s)", i+1, s.ID)
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("section %d: missing id", i+1))
		} else if sectionIDs[s.ID] {
			errs = append(errs, fmt.Errorf("duplicate section id %s", s.ID))
		}
		sectionIDs[s.ID] = true

		if s.Name == "" {
			errs = append(errs, fmt.Errorf("%s: missing name", where))
		}

		kind := catalog.SectionKind(s.Kind)
		if kind == "" {
			kind = catalog.KindBase
		}
		switch {
		case !kind.Valid():
			errs = append(errs, fmt.Errorf("%s: unknown kind %q", where, s.Kind))
		case kind == catalog.KindConditional && len(s.RequiredFor) == 0:
			errs = append(errs, fmt.Errorf("%s: conditional section needs requiredFor", where))
		case kind == catalog.KindAddOn && !models.AddOnID(s.AddOn).Valid():
			errs = append(errs, fmt.Errorf("%s: add-on section has unknown addOn %q", where, s.AddOn))
		}
		errs = append(errs, checkCategories(where, s.RequiredFor)...)

		if len(s.Questions) == 0 {
			errs = append(errs, fmt.Errorf("%s: no questions", where))
		}
		for _, q := range s.Questions {
			if q.ID == "" {
				errs = append(errs, fmt.Errorf("%s: question missing id", where))
				continue
			}
			if prev, ok := questionIDs[q.ID]; ok {
				errs = append(errs, fmt.Errorf("question %s appears in %s and %s", q.ID, prev, s.ID))
			}
			questionIDs[q.ID] = s.ID
			if q.Title == "" {
				errs = append(errs, fmt.Errorf("question %s: missing title", q.ID))
			}
			errs = append(errs, checkCategories("question "+q.ID, q.ApplicableTo)...)
		}
	}
	return stderrors.Join(errs...)
}

func checkCategories(where string, in []string) []error {
	var errs []error
	for _, c := range in {
		if !models.Category(c).Valid() {
			errs = append(errs, fmt.Errorf("%s: unknown category %q", where, c))
		}
	}
	return errs
}

func toCategories(in []string) []models.Category {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.Category, len(in))
	for i, c := range in {
		out[i] = models.Category(c)
	}
	return out
}

func fromCategories(in []models.Category) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, c := range in {
		out[i] = string(c)
	}
	return out
}
