// internal/assessment/scoring/scoring.go
package scoring

import (
	"math"

	"agritour-certification/internal/assessment/catalog"
	"agritour-certification/internal/models"
)

type Completion struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Ratio returns Completed/Total, or 0 for an empty form.
func (c Completion) Ratio() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Completed) / float64(c.Total)
}

func (c Completion) Done() bool {
	return c.Total > 0 && c.Completed == c.Total
}

// TotalScore sums every recorded answer, unset counting as 0. Answers for questions
// that are no longer visible still count; use VisibleTotal to exclude them.
func TotalScore(answers map[string]models.Answer) float64 {
	total := 0.0
	for _, a := range answers {
		total += a.Score.Value()
	}
	return round(total)
}

// VisibleTotal sums only the answers for visibleIDs.
func VisibleTotal(answers map[string]models.Answer, visibleIDs []string) float64 {
	total := 0.0
	for _, id := range unique(visibleIDs) {
		total += answers[id].Score.Value()
	}
	return round(total)
}

// CompletionOf counts visible questions whose score is set.
func CompletionOf(answers map[string]models.Answer, visibleIDs []string) Completion {
	ids := unique(visibleIDs)
	c := Completion{Total: len(ids)}
	for _, id := range ids {
		if answers[id].Score.IsSet() {
			c.Completed++
		}
	}
	return c
}

// Missing returns the visible ids without a score, in order.
func Missing(answers map[string]models.Answer, visibleIDs []string) []string {
	var out []string
	for _, id := range unique(visibleIDs) {
		if !answers[id].Score.IsSet() {
			out = append(out, id)
		}
	}
	return out
}

type SectionScore struct {
	SectionID  string     `json:"sectionId"`
	Name       string     `json:"name"`
	Total      float64    `json:"total"`
	Max        float64    `json:"max"`
	Completion Completion `json:"completion"`
}

// SectionBreakdown scores each section on its own.
func SectionBreakdown(answers map[string]models.Answer, secs []catalog.Section) []SectionScore {
	out := make([]SectionScore, 0, len(secs))
	for _, s := range secs {
		ids := make([]string, len(s.Questions))
		for i, q := range s.Questions {
			ids[i] = q.ID
		}
		out = append(out, SectionScore{
			SectionID:  s.ID,
			Name:       s.Name,
			Total:      VisibleTotal(answers, ids),
			Max:        models.MaxScore * float64(len(ids)),
			Completion: CompletionOf(answers, ids),
		})
	}
	return out
}

// MaxScore is the best possible total for the visible questions.
func MaxScore(visibleIDs []string) float64 {
	return models.MaxScore * float64(len(unique(visibleIDs)))
}

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Scores carry one decimal; rounding keeps float sums stable.
func round(v float64) float64 {
	return math.Round(v*10) / 10
}
