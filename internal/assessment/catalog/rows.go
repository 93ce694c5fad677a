// internal/assessment/catalog/rows.go
package catalog

import (
	"sort"

	"agritour-certification/internal/models"
)

// Row is one question as stored in the remote template table. Rows arrive flat and
// are grouped into sections by GroupRows.
type Row struct {
	SectionID            string            `json:"sectionId"`
	SectionName          string            `json:"sectionName"`
	SectionDescription   string            `json:"sectionDescription,omitempty"`
	SectionKind          SectionKind       `json:"sectionKind,omitempty"`
	RequiredFor          []models.Category `json:"requiredFor,omitempty"`
	AddOn                models.AddOnID    `json:"addOn,omitempty"`
	QuestionID           string            `json:"questionId"`
	QuestionText         string            `json:"questionText"`
	EvaluationCriteria   string            `json:"evaluationCriteria"`
	RubricZero           string            `json:"rubricZero,omitempty"`
	RubricHalf           string            `json:"rubricHalf,omitempty"`
	RubricFull           string            `json:"rubricFull,omitempty"`
	OrderIndex           int               `json:"orderIndex"`
	ApplicableCategories []models.Category `json:"applicableCategories,omitempty"`
}

// GroupRows groups rows by section id. Sections keep the order in which their id
// first appears; questions inside a section are sorted by OrderIndex, ties keeping
// source order. Question numbers run across the whole catalog.
func GroupRows(rows []Row) Catalog {
	index := map[string]int{}
	grouped := [][]Row{}
	for _, r := range rows {
		i, ok := index[r.SectionID]
		if !ok {
			i = len(grouped)
			index[r.SectionID] = i
			grouped = append(grouped, nil)
		}
		grouped[i] = append(grouped[i], r)
	}

	cat := make(Catalog, 0, len(grouped))
	number := 0
	for _, group := range grouped {
		sort.SliceStable(group, func(a, b int) bool { return group[a].OrderIndex < group[b].OrderIndex })

		first := group[0]
		section := Section{
			ID:          first.SectionID,
			Name:        first.SectionName,
			Description: first.SectionDescription,
			Kind:        first.SectionKind,
			RequiredFor: first.RequiredFor,
			AddOn:       first.AddOn,
			Questions:   make([]Question, 0, len(group)),
		}
		if section.Kind == "" {
			section.Kind = KindBase
		}

		for _, r := range group {
			number++
			section.Questions = append(section.Questions, Question{
				ID:           r.QuestionID,
				Number:       number,
				Title:        r.QuestionText,
				Description:  r.EvaluationCriteria,
				Rubric:       Rubric{Zero: r.RubricZero, Half: r.RubricHalf, Full: r.RubricFull},
				ApplicableTo: r.ApplicableCategories,
			})
		}
		cat = append(cat, section)
	}
	return cat
}
