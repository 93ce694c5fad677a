// internal/assessment/draft/manager.go
package draft

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/common/metrics"
	"agritour-certification/internal/models"
)

type State string

const (
	StateEmpty     State = "empty"
	StateDrafting  State = "drafting"
	StateSaved     State = "saved"
	StateSubmitted State = "submitted"
	StateAbandoned State = "abandoned"
)

// SaveResult tells the caller how many files were left out of the snapshot, so it
// can warn that they must be uploaded again after a restore.
type SaveResult struct {
	AttachmentsDropped int       `json:"attachmentsDropped"`
	SavedAt            time.Time `json:"savedAt"`
}

// Manager runs the draft lifecycle of one applicant's form.
type Manager struct {
	store       Store
	applicantID string
	logger      logger.Logger
	now         func() time.Time

	mu    sync.Mutex
	state State
}

func NewManager(store Store, applicantID string, log logger.Logger) *Manager {
	return &Manager{
		store:       store,
		applicantID: applicantID,
		logger:      log.WithFields(map[string]interface{}{"component": "draft", "applicantId": applicantID}),
		now:         time.Now,
		state:       StateEmpty,
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Begin starts a new form instance.
func (m *Manager) Begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateDrafting
}

// Touch records an edit. A saved draft goes back to drafting.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateSaved || m.state == StateEmpty {
		m.state = StateDrafting
	}
}

// Save writes form without any attachments. form itself is not modified.
func (m *Manager) Save(ctx context.Context, form *models.FormState) (SaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateSubmitted {
		return SaveResult{}, errors.NewBusinessRuleError("Form already submitted", "start a new application to edit again")
	}

	snapshot, dropped := strip(form)
	snapshot.UpdatedAt = m.now().UTC()

	data, err := json.Marshal(snapshot)
	if err != nil {
		metrics.DraftSaves.WithLabelValues("failed").Inc()
		return SaveResult{}, errors.NewDraftPersistenceError(err)
	}
	if err := m.store.Put(ctx, Key(m.applicantID), data); err != nil {
		metrics.DraftSaves.WithLabelValues("failed").Inc()
		m.logger.Error("Draft save failed", map[string]interface{}{"error": err.Error()})
		return SaveResult{}, errors.NewDraftPersistenceError(err)
	}

	metrics.DraftSaves.WithLabelValues("saved").Inc()
	m.state = StateSaved
	m.logger.Debug("Draft saved", map[string]interface{}{
		"bytes":              len(data),
		"attachmentsDropped": dropped,
	})
	return SaveResult{AttachmentsDropped: dropped, SavedAt: snapshot.UpdatedAt}, nil
}

// Load restores the saved snapshot. Fields missing from the snapshot take their
// defaults and every attachment list comes back empty.
func (m *Manager) Load(ctx context.Context) (*models.FormState, bool, error) {
	data, ok, err := m.store.Get(ctx, Key(m.applicantID))
	if err != nil {
		return nil, false, errors.NewDraftPersistenceError(err)
	}
	if !ok {
		return nil, false, nil
	}

	form, err := Decode(data, m.applicantID, m.now())
	if err != nil {
		m.logger.Warn("Stored draft is corrupt", map[string]interface{}{"error": err.Error()})
		return nil, false, errors.NewDraftCorruptError(err)
	}

	m.mu.Lock()
	m.state = StateDrafting
	m.mu.Unlock()
	return form, true, nil
}

// Clear removes the saved snapshot. Clearing an empty slot is not an error.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, Key(m.applicantID)); err != nil {
		return errors.NewDraftPersistenceError(err)
	}
	return nil
}

// Submit ends the instance and deletes the draft. The state moves to submitted even
// when the delete fails, because the application has already been handed off.
func (m *Manager) Submit(ctx context.Context) error {
	m.mu.Lock()
	m.state = StateSubmitted
	m.mu.Unlock()
	return m.Clear(ctx)
}

// Reset abandons the instance, deletes the draft and returns a blank form.
func (m *Manager) Reset(ctx context.Context) (*models.FormState, error) {
	m.mu.Lock()
	m.state = StateAbandoned
	m.mu.Unlock()

	if err := m.Clear(ctx); err != nil {
		return nil, err
	}
	return models.NewFormState(m.applicantID, m.now()), nil
}

// strip copies form with every attachment removed and reports how many were dropped.
func strip(form *models.FormState) (*models.FormState, int) {
	out := form.Clone()
	dropped := len(out.Documents)
	out.Documents = []models.Attachment{}
	for id, a := range out.Answers {
		dropped += len(a.Attachments)
		a.Attachments = []models.Attachment{}
		out.Answers[id] = a
	}
	return out, dropped
}

// Decode reads a snapshot on top of a blank form, so unknown or missing fields
// never fail the restore.
func Decode(data []byte, applicantID string, now time.Time) (*models.FormState, error) {
	form := models.NewFormState(applicantID, now)
	if err := json.Unmarshal(data, form); err != nil {
		return nil, err
	}

	defaults := models.NewFormState(applicantID, now)
	if form.ID == "" {
		form.ID = defaults.ID
	}
	form.ApplicantID = applicantID
	form.Status = models.FormStatusDraft
	form.Documents = []models.Attachment{}
	if form.BasicInfo.Specialty == nil {
		form.BasicInfo.Specialty = []string{}
	}
	if form.BasicInfo.AddOns == nil {
		form.BasicInfo.AddOns = []models.AddOnID{}
	}
	if form.BasicInfo.Year == 0 {
		form.BasicInfo.Year = defaults.BasicInfo.Year
	}
	form.Checklist = mergeChecklist(defaults.Checklist, form.Checklist)
	if form.Answers == nil {
		form.Answers = map[string]models.Answer{}
	}
	for id, a := range form.Answers {
		a.Attachments = []models.Attachment{}
		form.Answers[id] = a
	}
	return form, nil
}

// mergeChecklist keeps the current item set and carries over ticks for items that
// still exist.
func mergeChecklist(defaults, saved []models.ChecklistItem) []models.ChecklistItem {
	checked := make(map[string]bool, len(saved))
	for _, item := range saved {
		checked[item.ID] = item.Checked
	}
	for i := range defaults {
		defaults[i].Checked = checked[defaults[i].ID]
	}
	return defaults
}
