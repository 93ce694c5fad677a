package catalogfile

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agritour-certification/internal/assessment/catalog"
)

const sample = `
version: "2025.1"
sections:
  - id: basics
    name: Basics
    questions:
      - id: q1
        title: Facilities
        criteria: The site can receive visitors
        rubric: {zero: none, half: some, full: all}
      - id: q2
        title: Parking
        criteria: Enough space
  - id: farm-only
    name: Farm extras
    kind: conditional
    requiredFor: [type1]
    questions:
      - id: q3
        title: Animal welfare
        criteria: Animals are cared for
        applicableTo: [type1]
`

func TestParseAndGroup(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, Validate(f))

	cat := f.Catalog()
	require.Len(t, cat, 2)
	assert.Equal(t, catalog.KindBase, cat[0].Kind)
	assert.Equal(t, catalog.KindConditional, cat[1].Kind)
	assert.Equal(t, 3, cat[1].Questions[0].Number)
	assert.Equal(t, "some", cat[0].Questions[0].Rubric.Half)
	assert.Equal(t, "The site can receive visitors", cat[0].Questions[0].Description)
}

func TestBuiltinSurvivesFileRoundTrip(t *testing.T) {
	builtin := catalog.Builtin()
	path := filepath.Join(t.TempDir(), "catalog.yaml")

	require.NoError(t, Save(path, FromCatalog(builtin, "builtin")))
	f, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(f))

	if diff := cmp.Diff(builtin, f.Catalog()); diff != "" {
		t.Errorf("catalog changed through the file form (-want +got):\n%s", diff)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	f := &File{Sections: []Section{
		{ID: "a", Name: "A", Questions: []Question{{ID: "q1", Title: "One"}}},
		{ID: "a", Kind: "conditional", Questions: []Question{{ID: "q1"}}},
		{ID: "c", Name: "C", Kind: "addon", AddOn: "spa", Questions: []Question{{ID: "q9", Title: "Nine", ApplicableTo: []string{"castle"}}}},
		{ID: "d", Name: "D", Kind: "weird"},
	}}

	err := Validate(f)
	require.Error(t, err)
	for _, want := range []string{
		"duplicate section id a",
		"missing name",
		"conditional section needs requiredFor",
		"question q1 appears in a and a",
		"question q1: missing title",
		`unknown addOn "spa"`,
		`unknown category "castle"`,
		`unknown kind "weird"`,
		"section 4 (d): no questions",
	} {
		assert.Contains(t, err.Error(), want)
	}

	assert.EqualError(t, Validate(&File{}), "catalog contains no sections")
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("sections: [unclosed"))
	assert.Error(t, err)
}
