package createapplicationrecord

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

var submitted = time.Date(2025, 4, 2, 8, 30, 0, 0, time.UTC)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func createTestInput() *Input {
	form := models.NewFormState("user-1", submitted)
	form.BasicInfo = models.BasicInfo{
		FarmName:  "Green Valley Farm",
		OwnerName: "Lin Mei",
		Phone:     "0912345678",
		Email:     "lin@example.com",
		Address:   "No. 1, Farm Rd.",
		City:      "Hualien",
		Category:  models.CategoryLeisureFarm,
		Specialty: []string{},
		AddOns:    []models.AddOnID{models.AddOnSustainability},
		Year:      2025,
	}
	return &Input{
		ApplicationID: "3f1c2b8e-0000-4000-8000-000000000001",
		ApplicantID:   "user-1",
		FormData:      form,
		TotalScore:    61.5,
		Readiness:     "good",
		Priority:      "high",
		ReviewerQueue: "leisure-farm",
		SubmittedAt:   submitted,
	}
}

func expectNoDuplicate(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT id FROM applications").
		WithArgs("user-1", 2025).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	input := createTestInput()

	expectNoDuplicate(mock)
	mock.ExpectExec("INSERT INTO applications").
		WithArgs(
			input.ApplicationID, "user-1", 2025, "Green Valley Farm", "", "Lin Mei",
			"lin@example.com", "0912345678", "Hualien", "type1", sqlmock.AnyArg(),
			61.5, "good", "high", "leisure-farm", "pending", sqlmock.AnyArg(), submitted,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("application", input.ApplicationID, "application_created", "user-1", sqlmock.AnyArg(), submitted).
		WillReturnResult(sqlmock.NewResult(1, 1))

	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, input.ApplicationID, out.ApplicationID)
	assert.Equal(t, "pending", out.ApplicationStatus)
	assert.Equal(t, "2025-04-02T08:30:00Z", out.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_AuditFailureIsNotFatal(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	expectNoDuplicate(mock)
	mock.ExpectExec("INSERT INTO applications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_log").WillReturnError(errors.New("audit table locked"))

	out, err := h.Execute(context.Background(), createTestInput())
	require.NoError(t, err)
	assert.Equal(t, "pending", out.ApplicationStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_Duplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	mock.ExpectQuery("SELECT id FROM applications").
		WithArgs("user-1", 2025).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("another-application"))

	_, err := h.Execute(context.Background(), createTestInput())
	assert.ErrorIs(t, err, ErrDuplicateApplication)
	assert.Contains(t, err.Error(), "another-application")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_RetryFindsOwnRow(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	input := createTestInput()

	mock.ExpectQuery("SELECT id FROM applications").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(input.ApplicationID))

	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, input.ApplicationID, out.ApplicationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_UniqueViolationOnInsert(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))

	expectNoDuplicate(mock)
	mock.ExpectExec("INSERT INTO applications").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	_, err := h.Execute(context.Background(), createTestInput())
	assert.ErrorIs(t, err, ErrDuplicateApplication)
}

func TestHandler_Execute_DatabaseErrors(t *testing.T) {
	t.Run("duplicate check", func(t *testing.T) {
		db, mock := setupMockDB(t)
		h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
		mock.ExpectQuery("SELECT id FROM applications").WillReturnError(errors.New("connection reset"))

		_, err := h.Execute(context.Background(), createTestInput())
		assert.ErrorIs(t, err, ErrDatabaseInsertFailed)
	})

	t.Run("insert", func(t *testing.T) {
		db, mock := setupMockDB(t)
		h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
		expectNoDuplicate(mock)
		mock.ExpectExec("INSERT INTO applications").WillReturnError(errors.New("disk full"))

		_, err := h.Execute(context.Background(), createTestInput())
		assert.ErrorIs(t, err, ErrDatabaseInsertFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHandler_Execute_InvalidInput(t *testing.T) {
	db, _ := setupMockDB(t)
	h := NewHandler(LoadConfig(), db, logger.NewNoOpLogger())

	input := createTestInput()
	input.FormData = nil
	_, err := h.Execute(context.Background(), input)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestHandler_Execute_DefaultsSubmittedAt(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewHandler(LoadConfig(), db, logger.NewTestLogger(t))
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	input := createTestInput()
	input.SubmittedAt = time.Time{}
	input.Priority = ""

	expectNoDuplicate(mock)
	mock.ExpectExec("INSERT INTO applications").
		WithArgs(
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "normal", sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_log").WillReturnResult(sqlmock.NewResult(1, 1))

	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "2025-05-01T00:00:00Z", out.CreatedAt)
}
