// internal/assessment/answers/store.go
package answers

import (
	"fmt"
	"sort"
	"sync"

	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/models"
)

// ParseScore reads a raw form value. Blank is unset; numbers outside [0,5] are
// clamped; anything else is a validation error.
func ParseScore(raw string) (models.Score, error) {
	s, err := models.ParseScore(raw)
	if err != nil {
		return models.Score{}, errors.NewAssessmentValidationError(err.Error())
	}
	return s, nil
}

// Store holds the answers of one form instance. It is safe for concurrent use,
// though a form is normally edited by a single session.
type Store struct {
	mu      sync.RWMutex
	answers map[string]models.Answer
}

func NewStore() *Store {
	return &Store{answers: map[string]models.Answer{}}
}

// FromMap builds a store over a copy of m.
func FromMap(m map[string]models.Answer) *Store {
	s := NewStore()
	for k, v := range m {
		s.answers[k] = v.Clone()
	}
	return s
}

// Get returns the recorded answer or an unset one.
func (s *Store) Get(questionID string) models.Answer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.answers[questionID]
	if !ok {
		return models.Answer{Attachments: []models.Attachment{}}
	}
	return a.Clone()
}

// SetScore parses raw and stores it. On error the previous score is kept.
func (s *Store) SetScore(questionID, raw string) error {
	score, err := ParseScore(raw)
	if err != nil {
		return err
	}
	s.update(questionID, func(a *models.Answer) { a.Score = score })
	return nil
}

// SetScoreValue stores v clamped into range.
func (s *Store) SetScoreValue(questionID string, v float64) {
	score := models.NewScore(v)
	s.update(questionID, func(a *models.Answer) { a.Score = score })
}

// ClearScore marks the score unset.
func (s *Store) ClearScore(questionID string) {
	s.update(questionID, func(a *models.Answer) { a.Score = models.UnsetScore() })
}

func (s *Store) SetNote(questionID, note string) {
	s.update(questionID, func(a *models.Answer) { a.Note = note })
}

// AddAttachments appends files in the order given.
func (s *Store) AddAttachments(questionID string, files ...models.Attachment) {
	s.update(questionID, func(a *models.Answer) { a.Attachments = append(a.Attachments, files...) })
}

// RemoveAttachment drops the attachment at index and returns it. The others keep
// their ids; only positions after index shift down.
func (s *Store) RemoveAttachment(questionID string, index int) (models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.answers[questionID]
	if index < 0 || index >= len(a.Attachments) {
		return models.Attachment{}, errors.NewAssessmentValidationError(
			fmt.Sprintf("question %s has no attachment at position %d", questionID, index))
	}

	removed := a.Attachments[index]
	kept := make([]models.Attachment, 0, len(a.Attachments)-1)
	kept = append(kept, a.Attachments[:index]...)
	kept = append(kept, a.Attachments[index+1:]...)
	a.Attachments = kept
	s.answers[questionID] = a
	return removed, nil
}

// IsComplete is true once a score is set. Notes and evidence do not count.
func (s *Store) IsComplete(questionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.answers[questionID].Score.IsSet()
}

// Keys returns the recorded question ids, sorted.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.answers))
	for k := range s.answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a deep copy of every recorded answer.
func (s *Store) Snapshot() map[string]models.Answer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Answer, len(s.answers))
	for k, v := range s.answers {
		out[k] = v.Clone()
	}
	return out
}

// Prune deletes answers for questions outside visible and returns their ids.
func (s *Store) Prune(visible []string) []string {
	keep := make(map[string]bool, len(visible))
	for _, id := range visible {
		keep[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for k := range s.answers {
		if !keep[k] {
			removed = append(removed, k)
			delete(s.answers, k)
		}
	}
	sort.Strings(removed)
	return removed
}

func (s *Store) update(questionID string, fn func(a *models.Answer)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.answers[questionID]
	if a.Attachments == nil {
		a.Attachments = []models.Attachment{}
	}
	fn(&a)
	s.answers[questionID] = a
}
