package sendnotification

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSES struct {
	mu    sync.Mutex
	sent  []*ses.SendEmailInput
	fails bool
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails {
		return nil, errors.New("ses throttled")
	}
	f.sent = append(f.sent, in)
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

type fakeSNS struct {
	mu    sync.Mutex
	sent  []*sns.PublishInput
	fails bool
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails {
		return nil, errors.New("sns unavailable")
	}
	f.sent = append(f.sent, in)
	return &sns.PublishOutput{MessageId: aws.String("sms-1")}, nil
}

func createTestConfig() *Config {
	return &Config{
		EmailEnabled: true,
		SMSEnabled:   true,
		FromEmail:    "noreply@agritour.example",
		PortalURL:    "https://portal.agritour.example",
		Timeout:      5 * time.Second,
	}
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testForm() *models.FormState {
	form := models.NewFormState("user-1", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	form.BasicInfo.FarmName = "Green Valley Farm"
	form.BasicInfo.OwnerName = "Lin Mei"
	form.BasicInfo.Email = "lin@example.com"
	form.BasicInfo.Phone = "0912-345-678"
	form.BasicInfo.Category = models.CategoryLeisureFarm
	return form
}

// ==========================
// Templates
// ==========================

func TestRender(t *testing.T) {
	out := render("Hi {{ name }}, score {{score}}{{missing}}!", map[string]interface{}{
		"name":  "Lin",
		"score": 61.5,
	})
	assert.Equal(t, "Hi Lin, score 61.5!", out)
}

func TestTemplates_CoverEveryType(t *testing.T) {
	for _, typ := range []string{TypeApplicationSubmitted, TypeNewApplication, TypeReviewDecision} {
		tmpl, ok := templates[typ]
		require.True(t, ok, typ)
		assert.NotEmpty(t, tmpl.Subject)
		assert.NotEmpty(t, tmpl.Body)
	}
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_ApplicationSubmitted(t *testing.T) {
	db, _ := setupMockDB(t)
	sesFake, snsFake := &fakeSES{}, &fakeSNS{}
	h := NewHandler(createTestConfig(), db, sesFake, snsFake, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{
		NotificationType: TypeApplicationSubmitted,
		ApplicationID:    "app-1",
		FormData:         testForm(),
		TotalScore:       61.5,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)
	assert.Equal(t, []string{ChannelEmail, ChannelSMS}, out.Channels)
	assert.NotEmpty(t, out.NotificationID)

	require.Len(t, sesFake.sent, 1)
	mail := sesFake.sent[0]
	assert.Equal(t, []string{"lin@example.com"}, mail.Destination.ToAddresses)
	assert.Equal(t, "Certification application app-1 received", *mail.Message.Subject.Data)
	assert.Contains(t, *mail.Message.Body.Text.Data, "Dear Lin Mei")
	assert.Contains(t, *mail.Message.Body.Text.Data, "total is 61.5")
	assert.Contains(t, *mail.Message.Body.Text.Data, "https://portal.agritour.example")
	assert.Equal(t, "noreply@agritour.example", *mail.Source)

	require.Len(t, snsFake.sent, 1)
	assert.Equal(t, "+886912345678", *snsFake.sent[0].PhoneNumber)
}

func TestHandler_Execute_NewApplicationGoesToReviewers(t *testing.T) {
	db, _ := setupMockDB(t)
	sesFake, snsFake := &fakeSES{}, &fakeSNS{}
	h := NewHandler(createTestConfig(), db, sesFake, snsFake, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{
		NotificationType: TypeNewApplication,
		ApplicationID:    "app-1",
		FormData:         testForm(),
		Reviewers:        []string{"chen@example.com", "wu@example.com"},
		ReviewerQueue:    "leisure-farm",
		Priority:         "high",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)
	assert.Equal(t, []string{ChannelEmail}, out.Channels)

	require.Len(t, sesFake.sent, 2)
	assert.Equal(t, "[high] New application from Green Valley Farm", *sesFake.sent[0].Message.Subject.Data)
	assert.Contains(t, *sesFake.sent[1].Message.Body.Text.Data, "queue leisure-farm")
	assert.Empty(t, snsFake.sent, "reviewers are only emailed")
}

func TestHandler_Execute_ReviewDecisionFromDatabase(t *testing.T) {
	db, mock := setupMockDB(t)
	sesFake, snsFake := &fakeSES{}, &fakeSNS{}
	h := NewHandler(createTestConfig(), db, sesFake, snsFake, logger.NewTestLogger(t))

	mock.ExpectQuery("SELECT email, phone, farm_name, owner_name").
		WithArgs("app-9").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone", "farm_name", "owner_name"}).
			AddRow("hill@example.com", "0223456789", "Hill Tea", "Wang"))

	out, err := h.Execute(context.Background(), &Input{
		NotificationType: TypeReviewDecision,
		ApplicationID:    "app-9",
		Decision:         "amend",
		DecisionNote:     "Please add the insurance policy.",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)

	require.Len(t, sesFake.sent, 1)
	assert.Equal(t, "Review decision for Hill Tea: amend", *sesFake.sent[0].Message.Subject.Data)
	assert.Contains(t, *sesFake.sent[0].Message.Body.Text.Data, "Please add the insurance policy.")
	require.NotNil(t, sesFake.sent[0].Message.Body.Html)
	require.Len(t, snsFake.sent, 1)
	assert.Equal(t, "+886223456789", *snsFake.sent[0].PhoneNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_Disabled(t *testing.T) {
	t.Run("channels off", func(t *testing.T) {
		db, _ := setupMockDB(t)
		h := NewHandler(&Config{Timeout: time.Second}, db, &fakeSES{}, &fakeSNS{}, logger.NewTestLogger(t))

		out, err := h.Execute(context.Background(), &Input{NotificationType: TypeApplicationSubmitted, FormData: testForm()})
		require.NoError(t, err)
		assert.Equal(t, StatusDisabled, out.Status)
		assert.Equal(t, []string{}, out.Channels)
	})

	t.Run("no clients", func(t *testing.T) {
		db, _ := setupMockDB(t)
		h := NewHandler(createTestConfig(), db, nil, nil, logger.NewTestLogger(t))

		out, err := h.Execute(context.Background(), &Input{NotificationType: TypeApplicationSubmitted, FormData: testForm()})
		require.NoError(t, err)
		assert.Equal(t, StatusDisabled, out.Status)
	})

	t.Run("queue without reviewers", func(t *testing.T) {
		db, _ := setupMockDB(t)
		sesFake := &fakeSES{}
		h := NewHandler(createTestConfig(), db, sesFake, nil, logger.NewTestLogger(t))

		out, err := h.Execute(context.Background(), &Input{NotificationType: TypeNewApplication, ReviewerQueue: "general-review"})
		require.NoError(t, err)
		assert.Equal(t, StatusDisabled, out.Status)
		assert.Empty(t, sesFake.sent)
	})

	t.Run("unknown application", func(t *testing.T) {
		db, mock := setupMockDB(t)
		h := NewHandler(createTestConfig(), db, &fakeSES{}, nil, logger.NewTestLogger(t))
		mock.ExpectQuery("SELECT email").WillReturnError(sql.ErrNoRows)

		out, err := h.Execute(context.Background(), &Input{NotificationType: TypeReviewDecision, ApplicationID: "missing"})
		require.NoError(t, err)
		assert.Equal(t, StatusDisabled, out.Status)
	})
}

func TestHandler_Execute_PartialFailureStillSent(t *testing.T) {
	db, _ := setupMockDB(t)
	h := NewHandler(createTestConfig(), db, &fakeSES{}, &fakeSNS{fails: true}, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{NotificationType: TypeApplicationSubmitted, FormData: testForm()})
	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)
	assert.Equal(t, []string{ChannelEmail}, out.Channels)
}

func TestHandler_Execute_AllChannelsFail(t *testing.T) {
	db, _ := setupMockDB(t)
	h := NewHandler(createTestConfig(), db, &fakeSES{fails: true}, &fakeSNS{fails: true}, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{NotificationType: TypeApplicationSubmitted, FormData: testForm()})
	assert.ErrorIs(t, err, ErrNotificationSendFailed)
}

func TestHandler_Execute_UnknownType(t *testing.T) {
	db, _ := setupMockDB(t)
	h := NewHandler(createTestConfig(), db, &fakeSES{}, &fakeSNS{}, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), &Input{NotificationType: "franchise_digest"})
	assert.ErrorIs(t, err, ErrUnknownNotification)
}
