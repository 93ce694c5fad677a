// internal/portal/wizard/service.go
package wizard

import (
	"context"
	"sync"
	"time"

	"agritour-certification/internal/assessment/answers"
	"agritour-certification/internal/assessment/draft"
	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/models"
)

type Config struct {
	RequireEvidenceNote bool
}

// Service keeps one live wizard per applicant. Uploaded files exist only in the
// live wizard, since drafts never carry them.
type Service struct {
	drafts    draft.Store
	catalogs  Catalogs
	evidence  Evidence
	submitter Submitter
	cfg       Config
	logger    logger.Logger
	now       func() time.Time

	mu      sync.Mutex
	wizards map[string]*Wizard
}

func NewService(drafts draft.Store, catalogs Catalogs, ev Evidence, submitter Submitter, cfg Config, log logger.Logger) *Service {
	return &Service{
		drafts:    drafts,
		catalogs:  catalogs,
		evidence:  ev,
		submitter: submitter,
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "wizard"}),
		now:       time.Now,
		wizards:   map[string]*Wizard{},
	}
}

// Open returns the applicant's live wizard, restoring the saved draft on first
// access. A submitted wizard is replaced by a fresh one.
func (s *Service) Open(ctx context.Context, applicantID string) (*Wizard, error) {
	if applicantID == "" {
		return nil, errors.NewSessionInvalidError("missing applicant")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wizards[applicantID]; ok && !w.Submitted() {
		return w, nil
	}

	w, err := s.restore(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	s.wizards[applicantID] = w
	return w, nil
}

func (s *Service) restore(ctx context.Context, applicantID string) (*Wizard, error) {
	log := s.logger.WithFields(map[string]interface{}{"applicantId": applicantID})
	mgr := draft.NewManager(s.drafts, applicantID, s.logger)
	w := &Wizard{
		applicantID: applicantID,
		catalogs:    s.catalogs,
		evidence:    s.evidence,
		submitter:   s.submitter,
		drafts:      mgr,
		cfg:         s.cfg,
		logger:      log,
		now:         s.now,
		step:        StepBasicInfo,
	}

	form, found, err := mgr.Load(ctx)
	switch {
	case errors.HasCode(err, errors.ErrCodeDraftCorrupt):
		log.Warn("Discarding corrupt draft", map[string]interface{}{"error": err.Error()})
		w.restoreWarning = "The saved draft could not be read and was discarded."
		if err := mgr.Clear(ctx); err != nil {
			log.Warn("Failed to delete corrupt draft", map[string]interface{}{"error": err.Error()})
		}
	case err != nil:
		return nil, err
	case found:
		w.form = form
		w.answers = answers.FromMap(form.Answers)
		w.restored = true
		w.restoreWarning = "Uploaded files are not kept in drafts. Please upload them again."
		log.Info("Draft restored", map[string]interface{}{"answers": len(form.Answers)})
		return w, nil
	}

	w.form = models.NewFormState(applicantID, s.now())
	w.answers = answers.NewStore()
	mgr.Begin()
	return w, nil
}

// Forget drops the live wizard, for example at logout. The saved draft stays.
func (s *Service) Forget(applicantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wizards, applicantID)
}
