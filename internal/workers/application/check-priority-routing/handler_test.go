package checkpriorityrouting

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func queueRows(name, reviewers string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"queue_name", "reviewers"}).AddRow(name, reviewers)
}

// ==========================
// Priority
// ==========================

func TestDeterminePriority(t *testing.T) {
	tests := []struct {
		name      string
		addOns    []models.AddOnID
		readiness string
		want      string
	}{
		{"no add-on, good", nil, "good", PriorityNormal},
		{"add-on selected", []models.AddOnID{models.AddOnSustainability}, "fair", PriorityHigh},
		{"excellent readiness", nil, "excellent", PriorityHigh},
		{"insufficient", []models.AddOnID{}, "insufficient", PriorityNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determinePriority(tt.addOns, tt.readiness))
		})
	}
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_CacheMissThenHit(t *testing.T) {
	rdb, mr := setupRedis(t)
	db, mock := setupMockDB(t)
	h := NewHandler(LoadConfig(), db, rdb, logger.NewTestLogger(t))

	mock.ExpectQuery("SELECT queue_name, reviewers FROM reviewer_queues").
		WithArgs("type1", sqlmock.AnyArg()).
		WillReturnRows(queueRows("leisure-farm-food", "{chen@example.com,wu@example.com}"))

	input := &Input{
		ApplicationID: "app-1",
		Category:      models.CategoryLeisureFarm,
		AddOns:        []models.AddOnID{models.AddOnFoodExperience},
		Readiness:     "good",
	}
	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, out.Priority)
	assert.Equal(t, "leisure-farm-food", out.ReviewerQueue)
	assert.Equal(t, []string{"chen@example.com", "wu@example.com"}, out.Reviewers)

	assert.True(t, mr.Exists("reviewer_queue:type1:food-experience"))
	assert.Equal(t, 30*time.Minute, mr.TTL("reviewer_queue:type1:food-experience"))

	// The second lookup is served from Redis; sqlmock would fail on an unexpected query.
	out, err = h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "leisure-farm-food", out.ReviewerQueue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_NoQueueRow(t *testing.T) {
	rdb, _ := setupRedis(t)
	db, mock := setupMockDB(t)
	h := NewHandler(LoadConfig(), db, rdb, logger.NewTestLogger(t))

	mock.ExpectQuery("SELECT queue_name").WillReturnError(sql.ErrNoRows)

	out, err := h.Execute(context.Background(), &Input{Category: models.CategoryRuralEnterprise, Readiness: "fair"})
	require.NoError(t, err)
	assert.Equal(t, "general-review", out.ReviewerQueue)
	assert.Equal(t, []string{}, out.Reviewers)
	assert.Equal(t, PriorityNormal, out.Priority)
}

func TestHandler_Execute_DatabaseErrorFallsBack(t *testing.T) {
	rdb, mr := setupRedis(t)
	db, mock := setupMockDB(t)
	h := NewHandler(LoadConfig(), db, rdb, logger.NewTestLogger(t))

	mock.ExpectQuery("SELECT queue_name").WillReturnError(errors.New("connection refused"))

	out, err := h.Execute(context.Background(), &Input{Category: models.CategoryTourismOperator, Readiness: "excellent"})
	require.NoError(t, err)
	assert.Equal(t, "general-review", out.ReviewerQueue)
	assert.Equal(t, PriorityHigh, out.Priority)
	assert.False(t, mr.Exists("reviewer_queue:type2:"), "fallback queues are not cached")
}

func TestHandler_Execute_RedisDown(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	db, sqlMock := setupMockDB(t)
	h := NewHandler(LoadConfig(), db, rdb, logger.NewTestLogger(t))

	mock.ExpectGet("reviewer_queue:type1:").SetErr(errors.New("redis down"))
	sqlMock.ExpectQuery("SELECT queue_name").
		WillReturnRows(queueRows("leisure-farm", "{}"))

	out, err := h.Execute(context.Background(), &Input{Category: models.CategoryLeisureFarm})
	require.NoError(t, err)
	assert.Equal(t, "leisure-farm", out.ReviewerQueue)
	assert.Empty(t, out.Reviewers)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestHandler_Execute_InvalidCategory(t *testing.T) {
	rdb, _ := setupRedis(t)
	db, _ := setupMockDB(t)
	h := NewHandler(LoadConfig(), db, rdb, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), &Input{Category: "type7"})
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestAddOnKeys_Sorted(t *testing.T) {
	keys := addOnKeys([]models.AddOnID{models.AddOnSustainability, models.AddOnFoodExperience})
	assert.Equal(t, []string{"food-experience", "sustainability"}, keys)
}
