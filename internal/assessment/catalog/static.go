// internal/assessment/catalog/static.go
package catalog

import (
	"context"

	"agritour-certification/internal/models"
)

// StaticSource serves the built-in question table.
type StaticSource struct{}

func NewStaticSource() *StaticSource {
	return &StaticSource{}
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) Fetch(ctx context.Context) (Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Builtin(), nil
}

var extendedCategories = []models.Category{models.CategoryAgriOrganization, models.CategoryRuralEnterprise}

// Builtin returns a fresh copy of the compiled catalog.
func Builtin() Catalog {
	cat := Catalog{
		{
			ID:          "dimension1",
			Name:        "Dimension 1: Farm fundamentals",
			Description: "Site facilities and basic visitor readiness",
			Kind:        KindBase,
			Questions: []Question{
				{ID: "q1", Title: "Farm environment and facilities", Description: "The site is tidy and equipped to receive visitors",
					Rubric: Rubric{Zero: "Untidy site, facilities cannot receive visitors", Half: "Basic facilities, small groups only", Full: "Attractive, well equipped site with good visitor capacity"}},
				{ID: "q2", Title: "Accessibility", Description: "The farm is easy to reach and clearly signposted",
					Rubric: Rubric{Zero: "Hard to reach, no signage", Half: "Reachable with basic signage", Full: "Easy access with clear signage"}},
				{ID: "q3", Title: "Parking", Description: "Enough parking space with a sensible layout",
					Rubric: Rubric{Zero: "No parking or far too little", Half: "Parking exists but is short or poorly laid out", Full: "Ample, well planned parking"}},
				{ID: "q4", Title: "Restrooms and basic amenities", Description: "Clean restrooms and other basic amenities",
					Rubric: Rubric{Zero: "No restrooms or very poor ones", Half: "Restrooms need better cleaning or fittings", Full: "Clean, well equipped restrooms"}},
			},
		},
		{
			ID:          "dimension2",
			Name:        "Dimension 2: Agricultural character and experiences",
			Description: "Farming identity and the quality of hands-on activities",
			Kind:        KindBase,
			Questions: []Question{
				{ID: "q5", Title: "Distinctive production", Description: "Clear agricultural character with good product quality",
					Rubric: Rubric{Zero: "No distinct character, poor products", Half: "Some character, average products", Full: "Strong character, excellent products"}},
				{ID: "q6", Title: "Experience design", Description: "A varied programme of farm experiences",
					Rubric: Rubric{Zero: "No activities or very repetitive ones", Half: "Basic activities with little creativity", Full: "Rich, creative and educational activities"}},
				{ID: "q7", Title: "Seasonal programme", Description: "Activities planned around the production calendar",
					Rubric: Rubric{Zero: "No seasonal planning", Half: "Some simple seasonal activities", Full: "Full seasonal programme tied to the crop cycle"}},
				{ID: "q8", Title: "Guided interpretation", Description: "Professional guiding and interpretation",
					Rubric: Rubric{Zero: "No guiding", Half: "Basic guiding, limited expertise", Full: "Professional, detailed interpretation"}},
			},
		},
		{
			ID:          "dimension3",
			Name:        "Dimension 3: Service quality and safety",
			Description: "Service standards and safety management",
			Kind:        KindBase,
			Questions: []Question{
				{ID: "q9", Title: "Staff", Description: "Friendly staff with basic service skills",
					Rubric: Rubric{Zero: "Unfriendly staff lacking basic skills", Half: "Average attitude, skills need work", Full: "Friendly staff with strong service skills"}},
				{ID: "q10", Title: "Safety management", Description: "Documented safety procedures that are followed",
					Rubric: Rubric{Zero: "No safety measures", Half: "Basic but incomplete measures", Full: "Complete procedures in place"}},
				{ID: "q11", Title: "Insurance and liability", Description: "Liability insurance protects visitors",
					Rubric: Rubric{Zero: "No liability insurance", Half: "Basic cover only", Full: "Comprehensive liability cover"}},
				{ID: "q12", Title: "Emergency response", Description: "Ability and plans to handle emergencies",
					Rubric: Rubric{Zero: "No emergency plan", Half: "Some capability, plans incomplete", Full: "Strong capability with complete plans"}},
			},
		},
		{
			ID:          "dimension4",
			Name:        "Dimension 4: Sustainability and innovation",
			Description: "Sustainable operation and capacity to innovate",
			Kind:        KindBase,
			Questions: []Question{
				{ID: "q13", Title: "Environmental protection", Description: "Measures that protect the local ecology",
					Rubric: Rubric{Zero: "No awareness, damages the environment", Half: "Basic measures, weak follow through", Full: "Complete measures with ecological focus"}},
				{ID: "q14", Title: "Resource recycling", Description: "Farm waste is reused",
					Rubric: Rubric{Zero: "Waste handled improperly", Half: "Simple waste handling", Full: "Waste effectively recycled"}},
				{ID: "q15", Title: "Business innovation", Description: "Innovative business and marketing models",
					Rubric: Rubric{Zero: "Traditional model, no innovation", Half: "Some attempts, not outstanding", Full: "Innovative model, effective marketing"}},
				{ID: "q16", Title: "Brand building", Description: "A recognisable farm brand",
					Rubric: Rubric{Zero: "No brand awareness", Half: "Basic but unclear brand", Full: "Distinct, well known brand"}},
			},
		},
		{
			ID:          "dimension5",
			Name:        "Dimension 5: Community ties and cultural heritage",
			Description: "Links with the local community and cultural heritage (categories 3 and 4 only)",
			Kind:        KindConditional,
			RequiredFor: extendedCategories,
			Questions: []Question{
				{ID: "q17", Title: "Local culture", Description: "Shows local culture and passes on traditional skills", ApplicableTo: extendedCategories,
					Rubric: Rubric{Zero: "No local culture shown", Half: "Simple cultural displays", Full: "Distinct local culture, fully passed on"}},
				{ID: "q18", Title: "Community partnership", Description: "Good working relationships with the local community", ApplicableTo: extendedCategories,
					Rubric: Rubric{Zero: "No community partnership", Half: "Basic cooperation", Full: "Close, mutually beneficial partnership"}},
				{ID: "q19", Title: "Local ingredients", Description: "Uses local ingredients and supports local farming", ApplicableTo: extendedCategories,
					Rubric: Rubric{Zero: "No local ingredients", Half: "Partly local", Full: "Mostly local, supports local farming"}},
				{ID: "q20", Title: "Cultural education", Description: "Promotes rural culture through education", ApplicableTo: extendedCategories,
					Rubric: Rubric{Zero: "No educational role", Half: "Basic cultural introduction", Full: "Complete programme with good reach"}},
			},
		},
		{
			ID:          "addon-sustainability",
			Name:        "Plus: Sustainable practice",
			Description: "Optional sustainability certification track",
			Kind:        KindAddOn,
			AddOn:       models.AddOnSustainability,
			Questions: []Question{
				{ID: "p_sus_01", Title: "Energy saving and carbon reduction", Description: "For example efficient equipment or renewable energy",
					Rubric: Rubric{Zero: "No measures", Half: "Some measures", Full: "Concrete, documented measures"}},
				{ID: "p_sus_02", Title: "Waste reduction and reuse", Description: "For example composting or cutting single-use items",
					Rubric: Rubric{Zero: "No measures", Half: "Some measures", Full: "Systematic reduction and reuse"}},
				{ID: "p_sus_03", Title: "Conservation and eco-friendly farming", Description: "For example habitat creation or chemical-free farming",
					Rubric: Rubric{Zero: "No measures", Half: "Some measures", Full: "Established conservation practice"}},
			},
		},
		{
			ID:          "addon-food-experience",
			Name:        "Plus: Food and farming education",
			Description: "Optional food education certification track",
			Kind:        KindAddOn,
			AddOn:       models.AddOnFoodExperience,
			Questions: []Question{
				{ID: "p_exp_01", Title: "Food education content", Description: "Activities cover where food comes from, from field to table",
					Rubric: Rubric{Zero: "No food education", Half: "Some content", Full: "Food education built into every activity"}},
				{ID: "p_exp_02", Title: "Worksheets and lesson plans", Description: "A complete teaching flow with learning goals",
					Rubric: Rubric{Zero: "None", Half: "Partial material", Full: "Complete lesson plans"}},
				{ID: "p_exp_03", Title: "Cooking with local produce", Description: "Transparent sourcing with local character",
					Rubric: Rubric{Zero: "No cooking activity", Half: "Occasional local produce", Full: "Local produce with traceable sourcing"}},
			},
		},
	}

	number := 0
	for i := range cat {
		for j := range cat[i].Questions {
			number++
			cat[i].Questions[j].Number = number
		}
	}
	return cat
}

// Rows flattens a catalog back into template rows, the inverse of GroupRows.
func (c Catalog) Rows() []Row {
	var rows []Row
	for _, s := range c {
		for i, q := range s.Questions {
			rows = append(rows, Row{
				SectionID:            s.ID,
				SectionName:          s.Name,
				SectionDescription:   s.Description,
				SectionKind:          s.Kind,
				RequiredFor:          s.RequiredFor,
				AddOn:                s.AddOn,
				QuestionID:           q.ID,
				QuestionText:         q.Title,
				EvaluationCriteria:   q.Description,
				RubricZero:           q.Rubric.Zero,
				RubricHalf:           q.Rubric.Half,
				RubricFull:           q.Rubric.Full,
				OrderIndex:           i + 1,
				ApplicableCategories: q.ApplicableTo,
			})
		}
	}
	return rows
}
