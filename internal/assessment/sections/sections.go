// internal/assessment/sections/sections.go
package sections

import (
	"agritour-certification/internal/assessment/catalog"
	"agritour-certification/internal/models"
)

// Assemble returns the sections an applicant sees for a category and add-on
// selection: every base section in catalog order, then any conditional section
// the category requires, then one section per selected add-on in selection order.
// Repeated or unknown add-ons are ignored. Questions restricted to other categories
// are filtered out of every section, and a section left with no questions is dropped.
//
// Assemble has no side effects and returns fresh slices, so it is safe to call on
// every change.
func Assemble(cat catalog.Catalog, category models.Category, addOns []models.AddOnID) []catalog.Section {
	var out []catalog.Section
	add := func(s catalog.Section) {
		if s = filtered(s, category); len(s.Questions) > 0 {
			out = append(out, s)
		}
	}

	for _, s := range cat {
		if s.Kind == catalog.KindBase {
			add(s)
		}
	}

	for _, s := range cat {
		if s.Kind == catalog.KindConditional && s.RequiredForCategory(category) {
			add(s)
		}
	}

	seen := make(map[models.AddOnID]bool, len(addOns))
	for _, id := range addOns {
		if seen[id] {
			continue
		}
		seen[id] = true
		if s, ok := addOnSection(cat, id); ok {
			add(s)
		}
	}
	return out
}

func addOnSection(cat catalog.Catalog, id models.AddOnID) (catalog.Section, bool) {
	for _, s := range cat {
		if s.Kind == catalog.KindAddOn && s.AddOn == id {
			return s, true
		}
	}
	return catalog.Section{}, false
}

func filtered(s catalog.Section, category models.Category) catalog.Section {
	questions := make([]catalog.Question, 0, len(s.Questions))
	for _, q := range s.Questions {
		if category == "" || q.AppliesTo(category) {
			questions = append(questions, q)
		}
	}
	s.Questions = questions
	return s
}

// VisibleQuestionIDs lists question ids across sections in display order.
func VisibleQuestionIDs(secs []catalog.Section) []string {
	var ids []string
	for _, s := range secs {
		for _, q := range s.Questions {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// SectionIDs lists the section ids in order.
func SectionIDs(secs []catalog.Section) []string {
	ids := make([]string, len(secs))
	for i, s := range secs {
		ids[i] = s.ID
	}
	return ids
}
