package validateapplicationdata

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agritour-certification/internal/assessment/catalog"
	"agritour-certification/internal/common/camunda/jobtest"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/common/validation"
	"agritour-certification/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type staticCatalogs struct {
	err error
}

func (s staticCatalogs) Catalog() (catalog.Catalog, error) {
	if s.err != nil {
		return nil, s.err
	}
	return catalog.Builtin(), nil
}

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, cfg *Config, cats Catalogs) *Handler {
	h := NewHandler(cfg, cats, logger.NewTestLogger(t))
	h.now = func() time.Time { return testNow }
	return h
}

func baseIDs() []string {
	return []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8", "q9", "q10", "q11", "q12", "q13", "q14", "q15", "q16"}
}

func validForm(category models.Category, addOns ...models.AddOnID) *models.FormState {
	form := models.NewFormState("user-1", testNow)
	form.BasicInfo = models.BasicInfo{
		FarmName:  "Green Valley Farm",
		OwnerName: "Lin Mei",
		Phone:     "0912345678",
		Email:     "lin@example.com",
		Address:   "No. 1, Farm Rd.",
		City:      "Hualien",
		Category:  category,
		Specialty: []string{"tea"},
		AddOns:    append([]models.AddOnID{}, addOns...),
		Year:      2025,
	}
	for _, id := range baseIDs() {
		form.Answers[id] = models.Answer{Score: models.NewScore(4), Note: "see photos", Attachments: []models.Attachment{}}
	}
	form.Confirmed = true
	return form
}

func inputFor(t *testing.T, form interface{}) *Input {
	t.Helper()
	raw, err := json.Marshal(form)
	require.NoError(t, err)
	return &Input{ApplicationID: "app-1", ApplicantID: "user-1", FormData: raw}
}

func fieldErrors(t *testing.T, err error) []validation.ValidationError {
	t.Helper()
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrApplicationValidationFailed))
	var failed *FailedValidation
	require.True(t, stderrors.As(err, &failed))
	return failed.Errors
}

func hasField(errs []validation.ValidationError, field, code string) bool {
	for _, e := range errs {
		if e.Field == field && e.Code == code {
			return true
		}
	}
	return false
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	h := newTestHandler(t, LoadConfig(), staticCatalogs{})

	out, err := h.Execute(context.Background(), inputFor(t, validForm(models.CategoryLeisureFarm)))
	require.NoError(t, err)
	assert.True(t, out.IsValid)
	assert.Equal(t, baseIDs(), out.VisibleQuestionIDs)
	assert.Empty(t, out.ValidationErrors)
}

func TestHandler_Execute_IgnoresHiddenAnswers(t *testing.T) {
	h := newTestHandler(t, LoadConfig(), staticCatalogs{})

	form := validForm(models.CategoryLeisureFarm)
	form.Answers["q17"] = models.Answer{Attachments: []models.Attachment{}}

	out, err := h.Execute(context.Background(), inputFor(t, form))
	require.NoError(t, err)
	assert.NotContains(t, out.VisibleQuestionIDs, "q17")
}

func TestHandler_Execute_ConditionalAndAddOnQuestions(t *testing.T) {
	h := newTestHandler(t, LoadConfig(), staticCatalogs{})

	form := validForm(models.CategoryAgriOrganization, models.AddOnSustainability)
	_, err := h.Execute(context.Background(), inputFor(t, form))
	errs := fieldErrors(t, err)
	assert.Len(t, errs, 7)
	assert.True(t, hasField(errs, "answers.q17", "MISSING_REQUIRED"))
	assert.True(t, hasField(errs, "answers.p_sus_03", "MISSING_REQUIRED"))
}

func TestHandler_Execute_SchemaViolations(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(f *models.FormState)
		field string
		code  string
	}{
		{
			name:  "unknown category",
			mut:   func(f *models.FormState) { f.BasicInfo.Category = "type9" },
			field: "basicInfo.category",
			code:  "INVALID_FORMAT",
		},
		{
			name:  "year before the program",
			mut:   func(f *models.FormState) { f.BasicInfo.Year = 2019 },
			field: "basicInfo.year",
			code:  "OUT_OF_RANGE",
		},
		{
			name:  "not confirmed",
			mut:   func(f *models.FormState) { f.Confirmed = false },
			field: "confirmed",
			code:  "INVALID_FORMAT",
		},
		{
			name:  "empty farm name",
			mut:   func(f *models.FormState) { f.BasicInfo.FarmName = "" },
			field: "basicInfo.farmName",
			code:  "INVALID_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, LoadConfig(), staticCatalogs{})
			form := validForm(models.CategoryLeisureFarm)
			tt.mut(form)

			_, err := h.Execute(context.Background(), inputFor(t, form))
			errs := fieldErrors(t, err)
			assert.True(t, hasField(errs, tt.field, tt.code), "got %+v", errs)
		})
	}
}

func TestHandler_Execute_FormatChecks(t *testing.T) {
	h := newTestHandler(t, LoadConfig(), staticCatalogs{})

	form := validForm(models.CategoryLeisureFarm)
	form.BasicInfo.Email = "not-an-email"
	form.BasicInfo.Phone = "12345"
	form.BasicInfo.Year = 2030
	form.BasicInfo.City = "   "

	_, err := h.Execute(context.Background(), inputFor(t, form))
	errs := fieldErrors(t, err)
	assert.True(t, hasField(errs, "basicInfo.email", "INVALID_FORMAT"))
	assert.True(t, hasField(errs, "basicInfo.phone", "INVALID_FORMAT"))
	assert.True(t, hasField(errs, "basicInfo.year", "OUT_OF_RANGE"))
	assert.True(t, hasField(errs, "basicInfo.city", "MISSING_REQUIRED"))
}

func TestHandler_Execute_UnscoredQuestion(t *testing.T) {
	h := newTestHandler(t, LoadConfig(), staticCatalogs{})

	form := validForm(models.CategoryLeisureFarm)
	form.Answers["q5"] = models.Answer{Note: "no score yet", Attachments: []models.Attachment{}}

	_, err := h.Execute(context.Background(), inputFor(t, form))
	errs := fieldErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "answers.q5", errs[0].Field)
}

func TestHandler_Execute_EvidenceGate(t *testing.T) {
	form := validForm(models.CategoryLeisureFarm)
	a := form.Answers["q3"]
	a.Note = "  "
	form.Answers["q3"] = a

	off := newTestHandler(t, LoadConfig(), staticCatalogs{})
	_, err := off.Execute(context.Background(), inputFor(t, form))
	assert.NoError(t, err)

	on := newTestHandler(t, &Config{Timeout: time.Second, RequireEvidenceNote: true}, staticCatalogs{})
	_, err = on.Execute(context.Background(), inputFor(t, form))
	errs := fieldErrors(t, err)
	assert.True(t, hasField(errs, "answers.q3.note", "EVIDENCE_MISSING"))
}

func TestHandler_Execute_MissingFormData(t *testing.T) {
	h := newTestHandler(t, LoadConfig(), staticCatalogs{})

	_, err := h.Execute(context.Background(), &Input{ApplicationID: "app-1"})
	errs := fieldErrors(t, err)
	assert.Equal(t, "formData", errs[0].Field)

	_, err = h.Execute(context.Background(), &Input{FormData: json.RawMessage(`{"basicInfo":`)})
	assert.ErrorIs(t, err, ErrApplicationValidationFailed)
}

func TestHandler_Execute_CatalogNotReady(t *testing.T) {
	h := newTestHandler(t, LoadConfig(), staticCatalogs{err: stderrors.New("still loading")})

	_, err := h.Execute(context.Background(), inputFor(t, validForm(models.CategoryLeisureFarm)))
	assert.ErrorIs(t, err, ErrCatalogNotReady)
	assert.NotErrorIs(t, err, ErrApplicationValidationFailed)
}

// ==========================
// Handle
// ==========================

func jobVariables(t *testing.T, form interface{}) string {
	t.Helper()
	raw, err := json.Marshal(inputFor(t, form))
	require.NoError(t, err)
	return string(raw)
}

func TestHandler_Handle_CatalogNotReadyRetries(t *testing.T) {
	h := newTestHandler(t, LoadConfig(), staticCatalogs{err: stderrors.New("still loading")})
	client := jobtest.NewClient()

	h.Handle(client, jobtest.Job(1, TaskType, jobVariables(t, validForm(models.CategoryLeisureFarm)), 3))

	assert.Equal(t, jobtest.OutcomeFail, client.Outcome())
	assert.Equal(t, int32(2), client.Retries())
	assert.Contains(t, client.ErrorMessage(), "CATALOG_NOT_READY")
}

func TestHandler_Handle_LastRetryNeverGoesNegative(t *testing.T) {
	h := newTestHandler(t, LoadConfig(), staticCatalogs{err: stderrors.New("still loading")})
	client := jobtest.NewClient()

	h.Handle(client, jobtest.Job(2, TaskType, jobVariables(t, validForm(models.CategoryLeisureFarm)), 0))

	assert.Equal(t, jobtest.OutcomeFail, client.Outcome())
	assert.Equal(t, int32(0), client.Retries())
}

func TestHandler_Handle_InvalidFormThrows(t *testing.T) {
	h := newTestHandler(t, LoadConfig(), staticCatalogs{})
	form := validForm(models.CategoryLeisureFarm)
	delete(form.Answers, "q3")
	client := jobtest.NewClient()

	h.Handle(client, jobtest.Job(3, TaskType, jobVariables(t, form), 3))

	assert.Equal(t, jobtest.OutcomeThrow, client.Outcome())
	assert.Equal(t, "APPLICATION_VALIDATION_FAILED", client.ErrorCode())
}

func TestHandler_Handle_ValidFormCompletes(t *testing.T) {
	h := newTestHandler(t, LoadConfig(), staticCatalogs{})
	client := jobtest.NewClient()

	h.Handle(client, jobtest.Job(4, TaskType, jobVariables(t, validForm(models.CategoryLeisureFarm)), 3))

	require.Equal(t, jobtest.OutcomeComplete, client.Outcome())
	var out Output
	require.NoError(t, json.Unmarshal([]byte(client.Variables()), &out))
	assert.True(t, out.IsValid)
}
