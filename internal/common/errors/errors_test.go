package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeAssessmentValidationFailed, CategoryValidation},
		{ErrCodeAttachmentRejected, CategoryValidation},
		{ErrCodeSubmissionIncomplete, CategoryValidation},
		{ErrCodeDraftPersistenceFailed, CategoryPersistence},
		{ErrCodeDraftCorrupt, CategoryPersistence},
		{ErrCodeCatalogLoadFailed, CategoryRemote},
		{ErrCodeCatalogEmpty, CategoryRemote},
		{ErrCodeSearchQueryFailed, CategoryRemote},
		{ErrCodeSessionInvalid, CategoryAuth},
		{ErrCodeOTPInvalid, CategoryAuth},
		{ErrCodeBusinessRule, CategoryBusiness},
		{ErrCodeResourceNotFound, CategoryNotFound},
		{ErrorCode("SOMETHING_ELSE"), CategoryOther},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCategory(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("mapped retryable code", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewDatabaseInsertFailedError(fmt.Errorf("conn reset")))
		assert.Equal(t, "DATABASE_INSERT_FAILED", bpmn.Code)
		assert.True(t, bpmn.Retryable)
		assert.Equal(t, 3, bpmn.Retries)
		assert.Equal(t, "DATABASE_INSERT_FAILED", bpmn.ErrorVariables["originalErrorCode"])
	})

	t.Run("assessment errors map onto the validation boundary event", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewSubmissionIncompleteError([]string{"q1"}))
		assert.Equal(t, "APPLICATION_VALIDATION_FAILED", bpmn.Code)
		assert.Equal(t, 0, bpmn.Retries)
	})

	t.Run("unmapped code passes through", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewReviewDecisionInvalidError("note required"))
		assert.Equal(t, "REVIEW_DECISION_INVALID", bpmn.Code)
	})

	t.Run("non-retryable error never gets retries", func(t *testing.T) {
		stdErr := NewDatabaseInsertFailedError(fmt.Errorf("x"))
		stdErr.Retryable = false
		assert.Equal(t, 0, ConvertToBPMNError(stdErr).Retries)
	})
}

func TestStandardError_Wrapping(t *testing.T) {
	cause := stderrors.New("disk full")
	stdErr := NewDraftPersistenceError(cause)

	wrapped := fmt.Errorf("save draft: %w", stdErr)

	assert.True(t, stderrors.Is(wrapped, cause))
	assert.True(t, HasCode(wrapped, ErrCodeDraftPersistenceFailed))
	assert.False(t, HasCode(wrapped, ErrCodeDraftCorrupt))
	assert.Contains(t, stdErr.Message, "storage may be full")

	got, ok := AsStandard(wrapped)
	require.True(t, ok)
	assert.Equal(t, "disk full", got.Details)
}

func TestNormalize(t *testing.T) {
	plain := stderrors.New("boom")
	n := Normalize(plain)
	assert.Equal(t, ErrCodeInternal, n.Code)
	assert.Equal(t, "boom", n.Details)

	orig := NewOTPInvalidError("expired")
	assert.Same(t, orig, Normalize(fmt.Errorf("verify: %w", orig)))
}

func TestWithMetadata(t *testing.T) {
	e := NewAttachmentRejectedError("a.exe", "unsupported type")
	assert.Equal(t, "a.exe", e.Metadata["fileName"])
	assert.Equal(t, "evidence", e.WithMetadata("field", "evidence").Metadata["field"])
}
