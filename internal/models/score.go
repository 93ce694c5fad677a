// internal/models/score.go
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	MinScore = 0.0
	MaxScore = 5.0
)

// Score is a self-assessment or reviewer score. The zero value is unset, which is
// not the same as a score of 0.
type Score struct {
	value float64
	set   bool
}

// UnsetScore returns the unset score.
func UnsetScore() Score { return Score{} }

// NewScore clamps v into [0,5] and rounds it to one decimal place.
func NewScore(v float64) Score {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Score{}
	}
	v = math.Max(MinScore, math.Min(MaxScore, v))
	return Score{value: math.Round(v*10) / 10, set: true}
}

// ParseScore reads the score the way the scoring form submits it: blank input is
// unset, numbers are clamped into range.
func ParseScore(raw string) (Score, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Score{}, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Score{}, fmt.Errorf("score %q is not a number", raw)
	}
	return NewScore(v), nil
}

func (s Score) IsSet() bool { return s.set }

// Value returns the score, or 0 when unset.
func (s Score) Value() float64 {
	if !s.set {
		return 0
	}
	return s.value
}

func (s Score) String() string {
	if !s.set {
		return ""
	}
	return strconv.FormatFloat(s.value, 'f', 1, 64)
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(s.value, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts null, a number, or the string form produced by older drafts.
func (s *Score) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*s = Score{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		parsed, err := ParseScore(raw)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("score: %w", err)
	}
	*s = NewScore(v)
	return nil
}
