package checkreadinessscore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agritour-certification/internal/assessment/catalog"
	"agritour-certification/internal/common/camunda/jobtest"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/models"
)

type staticCatalogs struct{ err error }

func (s staticCatalogs) Catalog() (catalog.Catalog, error) {
	if s.err != nil {
		return nil, s.err
	}
	return catalog.Builtin(), nil
}

func formWithScores(category models.Category, score float64, ids ...string) *models.FormState {
	form := models.NewFormState("user-1", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	form.BasicInfo.Category = category
	for _, id := range ids {
		form.Answers[id] = models.Answer{Score: models.NewScore(score), Attachments: []models.Attachment{}}
	}
	return form
}

func baseIDs() []string {
	return []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8", "q9", "q10", "q11", "q12", "q13", "q14", "q15", "q16"}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, ReadinessExcellent},
		{80, ReadinessExcellent},
		{79.9, ReadinessGood},
		{60, ReadinessGood},
		{40, ReadinessFair},
		{39.9, ReadinessInsufficient},
		{0, ReadinessInsufficient},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.pct), "percentage %v", tt.pct)
	}
}

func TestHandler_Execute_FullMarks(t *testing.T) {
	h := NewHandler(LoadConfig(), staticCatalogs{}, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{
		ApplicationID: "app-1",
		FormData:      formWithScores(models.CategoryLeisureFarm, 5, baseIDs()...),
	})
	require.NoError(t, err)

	assert.Equal(t, 80.0, out.TotalScore)
	assert.Equal(t, 80.0, out.VisibleTotal)
	assert.Equal(t, 80.0, out.MaxScore)
	assert.Equal(t, 100.0, out.Percentage)
	assert.Equal(t, ReadinessExcellent, out.Readiness)
	assert.True(t, out.Completion.Done())
	require.Len(t, out.Sections, 4)
	assert.Equal(t, "dimension1", out.Sections[0].SectionID)
	assert.Equal(t, 20.0, out.Sections[0].Total)
}

func TestHandler_Execute_HiddenAnswersDoNotCount(t *testing.T) {
	h := NewHandler(LoadConfig(), staticCatalogs{}, logger.NewTestLogger(t))

	form := formWithScores(models.CategoryLeisureFarm, 2.5, baseIDs()...)
	form.Answers["q17"] = models.Answer{Score: models.NewScore(5)}

	out, err := h.Execute(context.Background(), &Input{FormData: form})
	require.NoError(t, err)

	assert.Equal(t, 45.0, out.TotalScore)
	assert.Equal(t, 40.0, out.VisibleTotal)
	assert.Equal(t, 50.0, out.Percentage)
	assert.Equal(t, ReadinessFair, out.Readiness)
}

func TestHandler_Execute_AddOnRaisesMax(t *testing.T) {
	h := NewHandler(LoadConfig(), staticCatalogs{}, logger.NewTestLogger(t))

	form := formWithScores(models.CategoryLeisureFarm, 4, baseIDs()...)
	form.BasicInfo.AddOns = []models.AddOnID{models.AddOnFoodExperience}

	out, err := h.Execute(context.Background(), &Input{FormData: form})
	require.NoError(t, err)

	assert.Equal(t, 95.0, out.MaxScore)
	assert.Equal(t, 64.0, out.VisibleTotal)
	assert.Equal(t, 67.4, out.Percentage)
	assert.Equal(t, ReadinessGood, out.Readiness)
	assert.Equal(t, 16, out.Completion.Completed)
	assert.Equal(t, 19, out.Completion.Total)
	assert.Len(t, out.Sections, 5)
}

func TestHandler_Execute_DecodesProcessVariables(t *testing.T) {
	h := NewHandler(LoadConfig(), staticCatalogs{}, logger.NewTestLogger(t))

	raw, err := json.Marshal(map[string]interface{}{
		"applicationId": "app-1",
		"formData":      formWithScores(models.CategoryLeisureFarm, 3, "q1", "q2"),
	})
	require.NoError(t, err)

	var input Input
	require.NoError(t, json.Unmarshal(raw, &input))
	out, err := h.Execute(context.Background(), &input)
	require.NoError(t, err)
	assert.Equal(t, 6.0, out.VisibleTotal)
	assert.Equal(t, ReadinessInsufficient, out.Readiness)
}

func TestHandler_Execute_Errors(t *testing.T) {
	h := NewHandler(LoadConfig(), staticCatalogs{}, logger.NewNoOpLogger())
	_, err := h.Execute(context.Background(), &Input{})
	assert.ErrorIs(t, err, ErrMissingForm)

	h = NewHandler(LoadConfig(), staticCatalogs{err: stderrors.New("loading")}, logger.NewNoOpLogger())
	_, err = h.Execute(context.Background(), &Input{FormData: formWithScores(models.CategoryLeisureFarm, 1)})
	assert.ErrorIs(t, err, ErrCatalogNotReady)
}

// ==========================
// Handle
// ==========================

func jobFor(t *testing.T, form *models.FormState, retries int32) (entities.Job, *jobtest.Client) {
	t.Helper()
	raw, err := json.Marshal(Input{ApplicationID: "app-1", FormData: form})
	require.NoError(t, err)
	return jobtest.Job(7, TaskType, string(raw), retries), jobtest.NewClient()
}

func TestHandler_Handle_CatalogNotReadyRetries(t *testing.T) {
	h := NewHandler(LoadConfig(), staticCatalogs{err: stderrors.New("loading")}, logger.NewTestLogger(t))
	job, client := jobFor(t, formWithScores(models.CategoryLeisureFarm, 4, baseIDs()...), 3)

	h.Handle(client, job)

	assert.Equal(t, jobtest.OutcomeFail, client.Outcome())
	assert.Equal(t, int32(2), client.Retries())
	assert.Contains(t, client.ErrorMessage(), "CATALOG_NOT_READY")
}

func TestHandler_Handle_Completes(t *testing.T) {
	h := NewHandler(LoadConfig(), staticCatalogs{}, logger.NewTestLogger(t))
	job, client := jobFor(t, formWithScores(models.CategoryLeisureFarm, 5, baseIDs()...), 3)

	h.Handle(client, job)

	require.Equal(t, jobtest.OutcomeComplete, client.Outcome())
	var out Output
	require.NoError(t, json.Unmarshal([]byte(client.Variables()), &out))
	assert.Equal(t, ReadinessExcellent, out.Readiness)
}

func TestHandler_Handle_MissingFormThrows(t *testing.T) {
	h := NewHandler(LoadConfig(), staticCatalogs{}, logger.NewTestLogger(t))
	client := jobtest.NewClient()

	h.Handle(client, jobtest.Job(8, TaskType, `{"applicationId":"app-1"}`, 3))

	assert.Equal(t, jobtest.OutcomeThrow, client.Outcome())
	assert.Equal(t, "READINESS_SCORE_FAILED", client.ErrorCode())
}
