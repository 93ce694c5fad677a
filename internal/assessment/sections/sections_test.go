package sections

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"agritour-certification/internal/assessment/catalog"
	"agritour-certification/internal/models"
)

var base = []string{"dimension1", "dimension2", "dimension3", "dimension4"}

func with(ids ...string) []string {
	return append(append([]string{}, base...), ids...)
}

func TestAssemble(t *testing.T) {
	cat := catalog.Builtin()

	tests := []struct {
		name     string
		category models.Category
		addOns   []models.AddOnID
		want     []string
	}{
		{
			name:     "type1 without add-ons shows base only",
			category: models.CategoryLeisureFarm,
			want:     base,
		},
		{
			name:     "type3 adds the extended dimension",
			category: models.CategoryAgriOrganization,
			want:     with("dimension5"),
		},
		{
			name:     "type4 adds the extended dimension",
			category: models.CategoryRuralEnterprise,
			want:     with("dimension5"),
		},
		{
			name:     "add-on after extended dimension",
			category: models.CategoryAgriOrganization,
			addOns:   []models.AddOnID{models.AddOnSustainability},
			want:     with("dimension5", "addon-sustainability"),
		},
		{
			name:     "duplicate add-on appears once",
			category: models.CategoryAgriOrganization,
			addOns:   []models.AddOnID{models.AddOnSustainability, models.AddOnSustainability},
			want:     with("dimension5", "addon-sustainability"),
		},
		{
			name:     "add-ons follow selection order",
			category: models.CategoryTourismOperator,
			addOns:   []models.AddOnID{models.AddOnFoodExperience, models.AddOnSustainability},
			want:     with("addon-food-experience", "addon-sustainability"),
		},
		{
			name:     "unknown add-on is skipped",
			category: models.CategoryLeisureFarm,
			addOns:   []models.AddOnID{"bird-watching"},
			want:     base,
		},
		{
			name: "no category yet",
			want: base,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assemble(cat, tt.category, tt.addOns)
			assert.Equal(t, tt.want, SectionIDs(got))
		})
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	cat := catalog.Builtin()
	addOns := []models.AddOnID{models.AddOnFoodExperience, models.AddOnSustainability, models.AddOnFoodExperience}

	first := Assemble(cat, models.CategoryRuralEnterprise, addOns)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, Assemble(cat, models.CategoryRuralEnterprise, addOns)); diff != "" {
			t.Fatalf("Assemble is not deterministic (-first +again):\n%s", diff)
		}
	}
}

func TestAssemble_DoesNotMutateCatalog(t *testing.T) {
	cat := catalog.Builtin()
	before := catalog.Builtin()

	secs := Assemble(cat, models.CategoryLeisureFarm, []models.AddOnID{models.AddOnSustainability})
	secs[0].Questions[0].Title = "edited"

	if diff := cmp.Diff(before, cat); diff != "" {
		t.Errorf("catalog changed (-before +after):\n%s", diff)
	}
}

func TestAssemble_FiltersQuestionsByCategory(t *testing.T) {
	cat := catalog.Catalog{
		{ID: "b", Kind: catalog.KindBase, Questions: []catalog.Question{
			{ID: "all"},
			{ID: "only-type2", ApplicableTo: []models.Category{models.CategoryTourismOperator}},
		}},
	}

	assert.Equal(t, []string{"all"}, VisibleQuestionIDs(Assemble(cat, models.CategoryLeisureFarm, nil)))
	assert.Equal(t, []string{"all", "only-type2"}, VisibleQuestionIDs(Assemble(cat, models.CategoryTourismOperator, nil)))
}

func TestAssemble_DropsSectionsEmptiedByCategory(t *testing.T) {
	// Remote rows carry no section kind, so a category-specific block arrives as base.
	rows := []catalog.Row{
		{QuestionID: "q1", SectionID: "s1", SectionName: "General", QuestionText: "Site safety", OrderIndex: 1},
		{QuestionID: "q2", SectionID: "s2", SectionName: "Organisation", QuestionText: "Member training", OrderIndex: 2,
			ApplicableCategories: []models.Category{models.CategoryAgriOrganization}},
	}
	cat := catalog.GroupRows(rows)

	type1 := Assemble(cat, models.CategoryLeisureFarm, nil)
	assert.Equal(t, []string{"s1"}, SectionIDs(type1))
	assert.Equal(t, []string{"q1"}, VisibleQuestionIDs(type1))

	type3 := Assemble(cat, models.CategoryAgriOrganization, nil)
	assert.Equal(t, []string{"s1", "s2"}, SectionIDs(type3))
}

func TestVisibleQuestionIDs(t *testing.T) {
	secs := Assemble(catalog.Builtin(), models.CategoryLeisureFarm, []models.AddOnID{models.AddOnFoodExperience})
	ids := VisibleQuestionIDs(secs)

	assert.Len(t, ids, 19)
	assert.Equal(t, "q1", ids[0])
	assert.Equal(t, "p_exp_03", ids[len(ids)-1])
}
