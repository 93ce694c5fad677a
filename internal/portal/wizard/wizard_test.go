package wizard

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agritour-certification/internal/assessment/catalog"
	"agritour-certification/internal/assessment/draft"
	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/evidence"
	"agritour-certification/internal/models"
)

// ==========================
// Test Doubles
// ==========================

type fixedCatalogs struct {
	snap catalog.Snapshot
}

func loaded() *fixedCatalogs {
	return &fixedCatalogs{snap: catalog.Snapshot{State: catalog.StateLoaded, Catalog: catalog.Builtin()}}
}

func (f *fixedCatalogs) State() catalog.Snapshot { return f.snap }

func (f *fixedCatalogs) Catalog() (catalog.Catalog, error) {
	switch f.snap.State {
	case catalog.StateLoaded:
		return f.snap.Catalog, nil
	case catalog.StateFailed, catalog.StateEmpty:
		return nil, f.snap.Err
	default:
		return nil, errors.NewCatalogNotReadyError(string(f.snap.State))
	}
}

type fakeEvidence struct {
	mu        sync.Mutex
	next      int
	discarded []string
	reject    bool
}

func (f *fakeEvidence) Accept(ctx context.Context, applicantID, questionID string, existing int, uploads ...evidence.Upload) ([]models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject {
		return nil, errors.NewAttachmentRejectedError(uploads[0].FileName, "unsupported type")
	}
	out := make([]models.Attachment, 0, len(uploads))
	for _, up := range uploads {
		f.next++
		id := fmt.Sprintf("att-%d", f.next)
		out = append(out, models.Attachment{
			ID:        id,
			FileName:  up.FileName,
			ObjectKey: evidence.ObjectKey(applicantID, questionID, id),
		})
	}
	return out, nil
}

func (f *fakeEvidence) Discard(ctx context.Context, att models.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded = append(f.discarded, att.ObjectKey)
	return nil
}

type fakeSubmitter struct {
	subs []models.Submission
	err  error
}

func (f *fakeSubmitter) Submit(ctx context.Context, sub models.Submission) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.subs = append(f.subs, sub)
	return int64(1000 + len(f.subs)), nil
}

type fixture struct {
	svc       *Service
	catalogs  *fixedCatalogs
	evidence  *fakeEvidence
	submitter *fakeSubmitter
	mr        *miniredis.Miniredis
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{catalogs: loaded(), evidence: &fakeEvidence{}, submitter: &fakeSubmitter{}, mr: mr}
	f.svc = NewService(draft.NewRedisStore(rdb, 0), f.catalogs, f.evidence, f.submitter, cfg, logger.NewTestLogger(t))
	return f
}

func validInfo(category models.Category, addOns ...models.AddOnID) models.BasicInfo {
	return models.BasicInfo{
		FarmName:  " Green Valley Farm ",
		OwnerName: "Lin Mei",
		Phone:     "0912-345-678",
		Email:     "lin@example.com",
		Address:   "No. 1, Farm Rd.",
		City:      "Hualien",
		Category:  category,
		AddOns:    addOns,
	}
}

func scoreAll(t *testing.T, w *Wizard, score string) {
	t.Helper()
	view, err := w.Sections()
	require.NoError(t, err)
	for _, id := range view.VisibleQuestionIDs {
		_, err := w.SetScore(id, score)
		require.NoError(t, err)
	}
}

// ==========================
// Opening and sections
// ==========================

func TestOpen_FreshForm(t *testing.T) {
	f := newFixture(t, Config{})
	w, err := f.svc.Open(context.Background(), "user-1")
	require.NoError(t, err)

	view := w.View()
	assert.Equal(t, StepBasicInfo, view.Step)
	assert.Equal(t, draft.StateDrafting, view.DraftState)
	assert.False(t, view.Restored)
	assert.Equal(t, models.FormStatusDraft, view.Form.Status)
	assert.Len(t, view.Form.Checklist, 3)

	again, err := f.svc.Open(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Same(t, w, again)

	_, err = f.svc.Open(context.Background(), "")
	assert.True(t, errors.HasCode(err, errors.ErrCodeSessionInvalid))
}

func TestSections_FollowCatalogState(t *testing.T) {
	f := newFixture(t, Config{})
	w, err := f.svc.Open(context.Background(), "user-1")
	require.NoError(t, err)
	require.NoError(t, w.UpdateBasicInfo(validInfo(models.CategoryLeisureFarm, models.AddOnFoodExperience)))

	view, err := w.Sections()
	require.NoError(t, err)
	assert.Equal(t, catalog.StateLoaded, view.State)
	assert.Len(t, view.VisibleQuestionIDs, 19)

	f.catalogs.snap = catalog.Snapshot{State: catalog.StateLoading}
	view, err = w.Sections()
	require.NoError(t, err)
	assert.Empty(t, view.Sections)

	_, err = w.SetScore("q1", "3")
	assert.True(t, errors.HasCode(err, errors.ErrCodeCatalogNotReady))

	f.catalogs.snap = catalog.Snapshot{State: catalog.StateFailed, Err: errors.NewCatalogLoadFailedError("http", stderrors.New("502"))}
	_, err = w.Sections()
	assert.True(t, errors.HasCode(err, errors.ErrCodeCatalogLoadFailed))
}

// ==========================
// Editing
// ==========================

func TestUpdateBasicInfo(t *testing.T) {
	f := newFixture(t, Config{})
	w, err := f.svc.Open(context.Background(), "user-1")
	require.NoError(t, err)

	info := validInfo(models.CategoryAgriOrganization, models.AddOnSustainability, models.AddOnSustainability)
	require.NoError(t, w.UpdateBasicInfo(info))

	got := w.View().Form.BasicInfo
	assert.Equal(t, "Green Valley Farm", got.FarmName)
	assert.Equal(t, "0912345678", got.Phone)
	assert.Equal(t, []models.AddOnID{models.AddOnSustainability}, got.AddOns)
	assert.NotZero(t, got.Year)

	err = w.UpdateBasicInfo(validInfo("type9"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeAssessmentValidationFailed))
	err = w.UpdateBasicInfo(validInfo(models.CategoryLeisureFarm, "spa"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeAssessmentValidationFailed))
	assert.Equal(t, models.CategoryAgriOrganization, w.View().Form.BasicInfo.Category, "rejected input keeps prior state")
}

func TestSetScore(t *testing.T) {
	f := newFixture(t, Config{})
	w, err := f.svc.Open(context.Background(), "user-1")
	require.NoError(t, err)
	require.NoError(t, w.UpdateBasicInfo(validInfo(models.CategoryLeisureFarm)))

	a, err := w.SetScore("q1", "7")
	require.NoError(t, err)
	assert.Equal(t, 5.0, a.Score.Value())

	_, err = w.SetScore("q1", "abc")
	assert.True(t, errors.HasCode(err, errors.ErrCodeAssessmentValidationFailed))
	assert.Equal(t, 5.0, w.View().Form.Answers["q1"].Score.Value())

	_, err = w.SetScore("q17", "3")
	assert.True(t, errors.HasCode(err, errors.ErrCodeAssessmentValidationFailed), "q17 is only shown to type3 and type4")

	a, err = w.SetNote("q1", "  see permit  ")
	require.NoError(t, err)
	assert.Equal(t, "see permit", a.Note)
}

func TestAttachments(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	w, err := f.svc.Open(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, w.UpdateBasicInfo(validInfo(models.CategoryLeisureFarm)))

	a, err := w.AddAttachments(ctx, "q2",
		evidence.Upload{FileName: "a.pdf", Content: strings.NewReader("x")},
		evidence.Upload{FileName: "b.pdf", Content: strings.NewReader("y")},
	)
	require.NoError(t, err)
	require.Len(t, a.Attachments, 2)

	a, err = w.RemoveAttachment(ctx, "q2", 0)
	require.NoError(t, err)
	require.Len(t, a.Attachments, 1)
	assert.Equal(t, "b.pdf", a.Attachments[0].FileName)
	assert.Equal(t, []string{"evidence/user-1/q2/att-1"}, f.evidence.discarded)

	_, err = w.RemoveAttachment(ctx, "q2", 5)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAssessmentValidationFailed))

	f.evidence.reject = true
	_, err = w.AddAttachments(ctx, "q2", evidence.Upload{FileName: "c.exe", Content: strings.NewReader("z")})
	assert.True(t, errors.HasCode(err, errors.ErrCodeAttachmentRejected))
	assert.Len(t, w.View().Form.Answers["q2"].Attachments, 1)
}

func TestChecklistAndDocuments(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	w, err := f.svc.Open(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, w.SetChecklist("land-use-proof", true))
	assert.True(t, errors.HasCode(w.SetChecklist("passport", true), errors.ErrCodeAssessmentValidationFailed))

	docs, err := w.AddDocuments(ctx, evidence.Upload{FileName: "registration.pdf", Content: strings.NewReader("x")})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "evidence/user-1/documents/att-1", docs[0].ObjectKey)
}

// ==========================
// Drafts
// ==========================

func TestDraftRoundTrip(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	w, err := f.svc.Open(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, w.UpdateBasicInfo(validInfo(models.CategoryLeisureFarm)))
	_, err = w.SetScore("q3", "4.5")
	require.NoError(t, err)
	_, err = w.AddAttachments(ctx, "q3", evidence.Upload{FileName: "a.pdf", Content: strings.NewReader("x")})
	require.NoError(t, err)

	res, err := w.GoTo(ctx, StepAssessment)
	require.NoError(t, err)
	assert.Equal(t, 1, res.AttachmentsDropped)
	assert.Equal(t, draft.StateSaved, w.View().DraftState)
	assert.True(t, f.mr.Exists(draft.Key("user-1")))

	_, err = w.GoTo(ctx, "payment")
	assert.True(t, errors.HasCode(err, errors.ErrCodeAssessmentValidationFailed))

	f.svc.Forget("user-1")
	restored, err := f.svc.Open(ctx, "user-1")
	require.NoError(t, err)
	require.NotSame(t, w, restored)

	view := restored.View()
	assert.True(t, view.Restored)
	assert.NotEmpty(t, view.RestoreWarning)
	assert.Equal(t, 4.5, view.Form.Answers["q3"].Score.Value())
	assert.Empty(t, view.Form.Answers["q3"].Attachments)
	assert.Equal(t, "Green Valley Farm", view.Form.BasicInfo.FarmName)
}

func TestOpen_CorruptDraftStartsFresh(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.mr.Set(draft.Key("user-1"), "{broken"))

	w, err := f.svc.Open(context.Background(), "user-1")
	require.NoError(t, err)
	view := w.View()
	assert.False(t, view.Restored)
	assert.Contains(t, view.RestoreWarning, "could not be read")
	assert.False(t, f.mr.Exists(draft.Key("user-1")))
}

func TestSaveDraft_StorageFailure(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	w, err := f.svc.Open(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, w.UpdateBasicInfo(validInfo(models.CategoryLeisureFarm)))

	f.mr.Close()
	_, err = w.SaveDraft(ctx)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDraftPersistenceFailed))
	assert.Equal(t, "Green Valley Farm", w.View().Form.BasicInfo.FarmName)
}

func TestReset(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	w, err := f.svc.Open(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, w.UpdateBasicInfo(validInfo(models.CategoryLeisureFarm)))
	_, err = w.AddAttachments(ctx, "q1", evidence.Upload{FileName: "a.pdf", Content: strings.NewReader("x")})
	require.NoError(t, err)
	_, err = w.SaveDraft(ctx)
	require.NoError(t, err)

	require.NoError(t, w.Reset(ctx))
	view := w.View()
	assert.Empty(t, view.Form.BasicInfo.FarmName)
	assert.Empty(t, view.Form.Answers)
	assert.Equal(t, StepBasicInfo, view.Step)
	assert.Equal(t, draft.StateDrafting, view.DraftState)
	assert.False(t, f.mr.Exists(draft.Key("user-1")))
	assert.Equal(t, []string{"evidence/user-1/q1/att-1"}, f.evidence.discarded)
}

func TestReset_AfterSubmitKeepsFiles(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	w, err := f.svc.Open(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, w.UpdateBasicInfo(validInfo(models.CategoryLeisureFarm)))
	scoreAll(t, w, "4")
	_, err = w.AddAttachments(ctx, "q1", evidence.Upload{FileName: "barn.jpg", Content: strings.NewReader("x")})
	require.NoError(t, err)
	require.NoError(t, w.SetConfirmed(true))
	_, err = w.Submit(ctx)
	require.NoError(t, err)

	require.NoError(t, w.Reset(ctx))
	assert.Empty(t, f.evidence.discarded)
	assert.Empty(t, w.View().Form.Answers)
}

// ==========================
// Summary and submit
// ==========================

func TestSummary(t *testing.T) {
	f := newFixture(t, Config{})
	w, err := f.svc.Open(context.Background(), "user-1")
	require.NoError(t, err)
	require.NoError(t, w.UpdateBasicInfo(validInfo(models.CategoryLeisureFarm)))

	_, err = w.SetScore("q1", "4")
	require.NoError(t, err)
	_, err = w.SetScore("q2", "3.5")
	require.NoError(t, err)

	s, err := w.Summary()
	require.NoError(t, err)
	assert.Equal(t, 7.5, s.TotalScore)
	assert.Equal(t, 7.5, s.VisibleTotal)
	assert.Equal(t, 80.0, s.MaxScore)
	assert.Equal(t, 2, s.Completion.Completed)
	assert.Equal(t, 16, s.Completion.Total)
	assert.Len(t, s.Missing, 14)
	assert.False(t, s.Ready)
	assert.Contains(t, s.Blockers, "declaration not confirmed")
}

func TestSubmit_Incomplete(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	w, err := f.svc.Open(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, w.UpdateBasicInfo(validInfo(models.CategoryLeisureFarm)))
	require.NoError(t, w.SetConfirmed(true))
	_, err = w.SetScore("q1", "4")
	require.NoError(t, err)

	_, err = w.Submit(ctx)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSubmissionIncomplete))
	assert.Empty(t, f.submitter.subs)
}

func TestSubmit_CatalogNotReady(t *testing.T) {
	f := newFixture(t, Config{})
	f.catalogs.snap = catalog.Snapshot{State: catalog.StateLoading}
	w, err := f.svc.Open(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = w.Submit(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrCodeCatalogNotReady))
}

func TestSubmit_HandsOffAndPrunesHiddenAnswers(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	w, err := f.svc.Open(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, w.UpdateBasicInfo(validInfo(models.CategoryAgriOrganization)))
	_, err = w.SetScore("q17", "5")
	require.NoError(t, err)

	require.NoError(t, w.UpdateBasicInfo(validInfo(models.CategoryLeisureFarm)))
	scoreAll(t, w, "3")
	require.NoError(t, w.SetConfirmed(true))
	_, err = w.SaveDraft(ctx)
	require.NoError(t, err)

	res, err := w.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), res.ProcessInstanceKey)
	assert.Equal(t, 48.0, res.TotalScore)
	assert.Equal(t, []string{"q17"}, res.PrunedAnswers)

	require.Len(t, f.submitter.subs, 1)
	sub := f.submitter.subs[0]
	assert.Equal(t, res.ApplicationID, sub.ApplicationID)
	assert.Equal(t, models.CategoryLeisureFarm, sub.Category)
	assert.Len(t, sub.VisibleQuestionIDs, 16)
	assert.Equal(t, models.FormStatusSubmitted, sub.FormData.Status)
	assert.NotContains(t, sub.FormData.Answers, "q17")

	assert.False(t, f.mr.Exists(draft.Key("user-1")))
	assert.True(t, w.Submitted())
	_, err = w.SetScore("q1", "1")
	assert.True(t, errors.HasCode(err, errors.ErrCodeBusinessRule))

	next, err := f.svc.Open(ctx, "user-1")
	require.NoError(t, err)
	assert.NotSame(t, w, next)
	assert.Empty(t, next.View().Form.Answers)
}

func TestSubmit_EvidenceGate(t *testing.T) {
	f := newFixture(t, Config{RequireEvidenceNote: true})
	ctx := context.Background()
	w, err := f.svc.Open(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, w.UpdateBasicInfo(validInfo(models.CategoryLeisureFarm)))
	scoreAll(t, w, "4")
	require.NoError(t, w.SetConfirmed(true))

	_, err = w.Submit(ctx)
	require.True(t, errors.HasCode(err, errors.ErrCodeSubmissionIncomplete))

	view, err := w.Sections()
	require.NoError(t, err)
	for _, id := range view.VisibleQuestionIDs {
		_, err := w.SetNote(id, "evidence on site")
		require.NoError(t, err)
	}
	_, err = w.Submit(ctx)
	assert.NoError(t, err)
}

func TestSubmit_SubmitterFailureKeepsDraft(t *testing.T) {
	f := newFixture(t, Config{})
	f.submitter.err = errors.NewWorkflowFailedError(DefaultProcessID, stderrors.New("unavailable"))
	ctx := context.Background()
	w, err := f.svc.Open(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, w.UpdateBasicInfo(validInfo(models.CategoryLeisureFarm)))
	scoreAll(t, w, "2")
	require.NoError(t, w.SetConfirmed(true))
	_, err = w.SaveDraft(ctx)
	require.NoError(t, err)

	_, err = w.Submit(ctx)
	assert.True(t, errors.HasCode(err, errors.ErrCodeWorkflowFailed))
	assert.False(t, w.Submitted())
	assert.True(t, f.mr.Exists(draft.Key("user-1")))
}

// ==========================
// Validation and submitter
// ==========================

func TestBasicInfoProblems(t *testing.T) {
	info := validInfo(models.CategoryLeisureFarm)
	info.Phone = "0912345678"
	info.Year = 2026
	now := mustDate(2026)
	assert.Empty(t, BasicInfoProblems(info, now))

	info.Email = "nope"
	info.Year = 1999
	info.FarmName = ""
	assert.ElementsMatch(t, []string{"farmName is required", "email is invalid", "year 1999 is out of range"}, BasicInfoProblems(info, now))
}

type fakeCreator struct {
	processID string
	vars      interface{}
	err       error
}

func (f *fakeCreator) CreateInstance(ctx context.Context, processID string, vars interface{}) (int64, error) {
	f.processID, f.vars = processID, vars
	return 77, f.err
}

func TestZeebeSubmitter(t *testing.T) {
	creator := &fakeCreator{}
	sub := NewZeebeSubmitter(creator, "")

	key, err := sub.Submit(context.Background(), models.Submission{ApplicationID: "app-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(77), key)
	assert.Equal(t, DefaultProcessID, creator.processID)
	assert.Equal(t, "app-1", creator.vars.(models.Submission).ApplicationID)

	creator.err = stderrors.New("connection refused")
	_, err = sub.Submit(context.Background(), models.Submission{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeWorkflowFailed))
}

func mustDate(year int) time.Time {
	return time.Date(year, 5, 1, 0, 0, 0, 0, time.UTC)
}
