// internal/portal/wizard/wizard.go
package wizard

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"agritour-certification/internal/assessment/answers"
	"agritour-certification/internal/assessment/catalog"
	"agritour-certification/internal/assessment/draft"
	"agritour-certification/internal/assessment/scoring"
	"agritour-certification/internal/assessment/sections"
	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/common/metrics"
	"agritour-certification/internal/evidence"
	"agritour-certification/internal/models"
)

type Step string

const (
	StepBasicInfo  Step = "basic-info"
	StepChecklist  Step = "checklist"
	StepAssessment Step = "assessment"
	StepConfirm    Step = "confirm"
)

// Steps lists the wizard steps in order.
var Steps = []Step{StepBasicInfo, StepChecklist, StepAssessment, StepConfirm}

func (s Step) Valid() bool {
	for _, known := range Steps {
		if s == known {
			return true
		}
	}
	return false
}

// documentsKey is the evidence path segment for checklist documents.
const documentsKey = "documents"

// Catalogs is the read side of the catalog loader.
type Catalogs interface {
	State() catalog.Snapshot
	Catalog() (catalog.Catalog, error)
}

// Evidence accepts and discards attachment bodies.
type Evidence interface {
	Accept(ctx context.Context, applicantID, questionID string, existing int, uploads ...evidence.Upload) ([]models.Attachment, error)
	Discard(ctx context.Context, att models.Attachment) error
}

// SectionsView is what the assessment step renders.
type SectionsView struct {
	State              catalog.LoadState `json:"state"`
	Sections           []catalog.Section `json:"sections"`
	VisibleQuestionIDs []string          `json:"visibleQuestionIds"`
}

// FormView is the form plus restore information.
type FormView struct {
	Form           *models.FormState `json:"form"`
	Step           Step              `json:"step"`
	DraftState     draft.State       `json:"draftState"`
	Restored       bool              `json:"restored"`
	RestoreWarning string            `json:"restoreWarning,omitempty"`
}

type Summary struct {
	TotalScore   float64                `json:"totalScore"`
	VisibleTotal float64                `json:"visibleTotal"`
	MaxScore     float64                `json:"maxScore"`
	Completion   scoring.Completion     `json:"completion"`
	Percentage   float64                `json:"percentage"`
	Sections     []scoring.SectionScore `json:"sections"`
	Missing      []string               `json:"missing"`
	Ready        bool                   `json:"ready"`
	Blockers     []string               `json:"blockers,omitempty"`
}

type SubmitResult struct {
	ApplicationID      string    `json:"applicationId"`
	ProcessInstanceKey int64     `json:"processInstanceKey"`
	TotalScore         float64   `json:"totalScore"`
	PrunedAnswers      []string  `json:"prunedAnswers,omitempty"`
	SubmittedAt        time.Time `json:"submittedAt"`
}

// Wizard is one applicant's form instance.
type Wizard struct {
	applicantID string
	catalogs    Catalogs
	evidence    Evidence
	submitter   Submitter
	drafts      *draft.Manager
	cfg         Config
	logger      logger.Logger
	now         func() time.Time

	mu             sync.Mutex
	form           *models.FormState
	answers        *answers.Store
	step           Step
	restored       bool
	restoreWarning string
}

// View returns a copy of the form with the current answers.
func (w *Wizard) View() FormView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return FormView{
		Form:           w.snapshot(),
		Step:           w.step,
		DraftState:     w.drafts.State(),
		Restored:       w.restored,
		RestoreWarning: w.restoreWarning,
	}
}

func (w *Wizard) snapshot() *models.FormState {
	out := w.form.Clone()
	out.Answers = w.answers.Snapshot()
	return out
}

// Sections assembles the visible sections for the current category and add-ons.
// While the catalog is loading the view is empty; a failed or empty catalog is an error.
func (w *Wizard) Sections() (SectionsView, error) {
	snap := w.catalogs.State()
	view := SectionsView{State: snap.State, Sections: []catalog.Section{}, VisibleQuestionIDs: []string{}}
	switch snap.State {
	case catalog.StateLoaded:
	case catalog.StateEmpty, catalog.StateFailed:
		return view, snap.Err
	default:
		return view, nil
	}

	w.mu.Lock()
	info := w.form.BasicInfo
	w.mu.Unlock()

	view.Sections = sections.Assemble(snap.Catalog, info.Category, info.AddOns)
	view.VisibleQuestionIDs = sections.VisibleQuestionIDs(view.Sections)
	return view, nil
}

// UpdateBasicInfo replaces the basic info. Changing the category or add-ons
// changes the visible sections; answers to hidden questions are kept.
func (w *Wizard) UpdateBasicInfo(info models.BasicInfo) error {
	info, err := normalizeBasicInfo(info)
	if err != nil {
		return errors.NewAssessmentValidationError(err.Error())
	}
	if info.Year == 0 {
		info.Year = w.now().Year()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	w.form.BasicInfo = info
	w.touch()
	return nil
}

func (w *Wizard) SetScore(questionID, raw string) (models.Answer, error) {
	if err := w.requireVisible(questionID); err != nil {
		return models.Answer{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return models.Answer{}, err
	}
	if err := w.answers.SetScore(questionID, raw); err != nil {
		return models.Answer{}, err
	}
	w.touch()
	return w.answers.Get(questionID), nil
}

func (w *Wizard) SetNote(questionID, note string) (models.Answer, error) {
	if err := w.requireVisible(questionID); err != nil {
		return models.Answer{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return models.Answer{}, err
	}
	w.answers.SetNote(questionID, strings.TrimSpace(note))
	w.touch()
	return w.answers.Get(questionID), nil
}

// AddAttachments stores the uploads and appends them to the answer. A rejected
// batch leaves the answer unchanged.
func (w *Wizard) AddAttachments(ctx context.Context, questionID string, uploads ...evidence.Upload) (models.Answer, error) {
	if err := w.requireVisible(questionID); err != nil {
		return models.Answer{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return models.Answer{}, err
	}

	existing := len(w.answers.Get(questionID).Attachments)
	atts, err := w.evidence.Accept(ctx, w.applicantID, questionID, existing, uploads...)
	if err != nil {
		return models.Answer{}, err
	}
	w.answers.AddAttachments(questionID, atts...)
	w.touch()
	return w.answers.Get(questionID), nil
}

func (w *Wizard) RemoveAttachment(ctx context.Context, questionID string, index int) (models.Answer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return models.Answer{}, err
	}

	removed, err := w.answers.RemoveAttachment(questionID, index)
	if err != nil {
		return models.Answer{}, err
	}
	w.discard(ctx, removed)
	w.touch()
	return w.answers.Get(questionID), nil
}

// AddDocuments attaches checklist documents to the form.
func (w *Wizard) AddDocuments(ctx context.Context, uploads ...evidence.Upload) ([]models.Attachment, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return nil, err
	}

	atts, err := w.evidence.Accept(ctx, w.applicantID, documentsKey, len(w.form.Documents), uploads...)
	if err != nil {
		return nil, err
	}
	w.form.Documents = append(w.form.Documents, atts...)
	w.touch()
	return append([]models.Attachment(nil), w.form.Documents...), nil
}

func (w *Wizard) SetChecklist(itemID string, checked bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	for i := range w.form.Checklist {
		if w.form.Checklist[i].ID == itemID {
			w.form.Checklist[i].Checked = checked
			w.touch()
			return nil
		}
	}
	return errors.NewAssessmentValidationError("unknown checklist item " + itemID)
}

func (w *Wizard) SetConfirmed(confirmed bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	w.form.Confirmed = confirmed
	w.touch()
	return nil
}

// Summary recomputes the totals from the current answers.
func (w *Wizard) Summary() (Summary, error) {
	cat, err := w.catalogs.Catalog()
	if err != nil {
		return Summary{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.summarize(cat), nil
}

func (w *Wizard) summarize(cat catalog.Catalog) Summary {
	secs := sections.Assemble(cat, w.form.BasicInfo.Category, w.form.BasicInfo.AddOns)
	visible := sections.VisibleQuestionIDs(secs)
	snap := w.answers.Snapshot()

	s := Summary{
		TotalScore:   scoring.TotalScore(snap),
		VisibleTotal: scoring.VisibleTotal(snap, visible),
		MaxScore:     scoring.MaxScore(visible),
		Completion:   scoring.CompletionOf(snap, visible),
		Sections:     scoring.SectionBreakdown(snap, secs),
		Missing:      scoring.Missing(snap, visible),
	}
	if s.MaxScore > 0 {
		s.Percentage = float64(int64(s.VisibleTotal/s.MaxScore*1000+0.5)) / 10
	}
	if s.Missing == nil {
		s.Missing = []string{}
	}
	s.Blockers = w.blockers(snap, visible)
	s.Ready = len(s.Blockers) == 0
	return s
}

func (w *Wizard) blockers(snap map[string]models.Answer, visible []string) []string {
	var out []string
	if len(visible) == 0 {
		out = append(out, "no questions apply yet, choose a category")
	}
	for _, p := range BasicInfoProblems(w.form.BasicInfo, w.now()) {
		out = append(out, "basic info: "+p)
	}
	for _, id := range scoring.Missing(snap, visible) {
		out = append(out, "unscored: "+id)
	}
	if w.cfg.RequireEvidenceNote {
		for _, id := range visible {
			if strings.TrimSpace(snap[id].Note) == "" {
				out = append(out, "evidence note missing: "+id)
			}
		}
	}
	if !w.form.Confirmed {
		out = append(out, "declaration not confirmed")
	}
	return out
}

// GoTo moves to step and saves the draft, as every step transition does.
func (w *Wizard) GoTo(ctx context.Context, step Step) (draft.SaveResult, error) {
	if !step.Valid() {
		return draft.SaveResult{}, errors.NewAssessmentValidationError("unknown step " + string(step))
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return draft.SaveResult{}, err
	}
	res, err := w.drafts.Save(ctx, w.snapshot())
	if err != nil {
		return draft.SaveResult{}, err
	}
	w.step = step
	return res, nil
}

// SaveDraft persists the form without attachment bodies.
func (w *Wizard) SaveDraft(ctx context.Context) (draft.SaveResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.drafts.Save(ctx, w.snapshot())
}

// Reset deletes the draft and every uploaded file and starts over. Files of a
// submitted form belong to the application and are kept.
func (w *Wizard) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	submitted := w.drafts.State() == draft.StateSubmitted
	form, err := w.drafts.Reset(ctx)
	if err != nil {
		return err
	}
	if !submitted {
		for _, a := range w.answers.Snapshot() {
			for _, att := range a.Attachments {
				w.discard(ctx, att)
			}
		}
		for _, att := range w.form.Documents {
			w.discard(ctx, att)
		}
	}

	w.form = form
	w.answers = answers.NewStore()
	w.step = StepBasicInfo
	w.restored, w.restoreWarning = false, ""
	w.drafts.Begin()
	w.logger.Info("Form reset", nil)
	return nil
}

// Submit checks every precondition, hands the application to the submitter and
// deletes the draft. Answers to questions that are no longer visible are dropped
// from the submitted form.
func (w *Wizard) Submit(ctx context.Context) (*SubmitResult, error) {
	cat, err := w.catalogs.Catalog()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return nil, err
	}

	category := string(w.form.BasicInfo.Category)
	summary := w.summarize(cat)
	if !summary.Ready {
		metrics.Submissions.WithLabelValues(category, "incomplete").Inc()
		return nil, errors.NewSubmissionIncompleteError(summary.Blockers)
	}

	secs := sections.Assemble(cat, w.form.BasicInfo.Category, w.form.BasicInfo.AddOns)
	visible := sections.VisibleQuestionIDs(secs)

	pruned := answers.FromMap(w.answers.Snapshot())
	dropped := pruned.Prune(visible)

	now := w.now().UTC()
	form := w.form.Clone()
	form.Answers = pruned.Snapshot()
	form.Status = models.FormStatusSubmitted
	form.UpdatedAt = now

	sub := models.Submission{
		ApplicationID:      uuid.NewString(),
		ApplicantID:        w.applicantID,
		Category:           form.BasicInfo.Category,
		AddOns:             form.BasicInfo.AddOns,
		TotalScore:         scoring.TotalScore(form.Answers),
		VisibleQuestionIDs: visible,
		FormData:           form,
		SubmittedAt:        now,
	}

	key, err := w.submitter.Submit(ctx, sub)
	if err != nil {
		metrics.Submissions.WithLabelValues(category, "failed").Inc()
		w.logger.Error("Submission failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	if err := w.drafts.Submit(ctx); err != nil {
		w.logger.Warn("Draft not deleted after submit", map[string]interface{}{"error": err.Error()})
	}
	w.form = form
	w.answers = answers.FromMap(form.Answers)
	metrics.Submissions.WithLabelValues(category, "submitted").Inc()

	w.logger.Info("Application submitted", map[string]interface{}{
		"applicationId":      sub.ApplicationID,
		"processInstanceKey": key,
		"totalScore":         sub.TotalScore,
	})
	return &SubmitResult{
		ApplicationID:      sub.ApplicationID,
		ProcessInstanceKey: key,
		TotalScore:         sub.TotalScore,
		PrunedAnswers:      dropped,
		SubmittedAt:        now,
	}, nil
}

// Submitted reports whether this instance has been handed off.
func (w *Wizard) Submitted() bool {
	return w.drafts.State() == draft.StateSubmitted
}

func (w *Wizard) editable() error {
	if w.drafts.State() == draft.StateSubmitted {
		return errors.NewBusinessRuleError("Form already submitted", "start a new application to edit again")
	}
	return nil
}

func (w *Wizard) touch() {
	w.form.UpdatedAt = w.now().UTC()
	w.drafts.Touch()
}

// requireVisible rejects edits to questions the applicant cannot see.
func (w *Wizard) requireVisible(questionID string) error {
	view, err := w.Sections()
	if err != nil {
		return err
	}
	if view.State != catalog.StateLoaded {
		return errors.NewCatalogNotReadyError(string(view.State))
	}
	for _, id := range view.VisibleQuestionIDs {
		if id == questionID {
			return nil
		}
	}
	return errors.NewAssessmentValidationError("question " + questionID + " is not part of this assessment")
}

func (w *Wizard) discard(ctx context.Context, att models.Attachment) {
	if err := w.evidence.Discard(ctx, att); err != nil {
		w.logger.Warn("Failed to delete attachment", map[string]interface{}{
			"objectKey": att.ObjectKey,
			"error":     err.Error(),
		})
	}
}
