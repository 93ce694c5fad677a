// internal/workers/application/create-application-record/handler.go
package createapplicationrecord

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/lib/pq"

	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/models"
)

const (
	TaskType = "create-application-record"
)

var (
	ErrDatabaseInsertFailed = stderrors.New("DATABASE_INSERT_FAILED")
	ErrDuplicateApplication = stderrors.New("DUPLICATE_APPLICATION")
	ErrInvalidInput         = stderrors.New("INVALID_INPUT")
)

const insertApplication = `
	INSERT INTO applications (
		id, applicant_id, year, farm_name, company_name, owner_name, email, phone, city,
		category, add_ons, total_score, readiness, priority, reviewer_queue, status,
		form_data, submitted_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)`

type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:    time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := "UNKNOWN_ERROR"
		retries := int32(0)
		switch {
		case stderrors.Is(err, ErrDatabaseInsertFailed):
			errorCode = "DATABASE_INSERT_FAILED"
			retries = 3
		case stderrors.Is(err, ErrDuplicateApplication):
			errorCode = "DUPLICATE_APPLICATION"
		case stderrors.Is(err, ErrInvalidInput):
			errorCode = "INVALID_INPUT"
		}
		h.failJob(client, job, errorCode, err.Error(), retries)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" || input.ApplicantID == "" || input.FormData == nil {
		return nil, fmt.Errorf("%w: applicationId, applicantId and formData are required", ErrInvalidInput)
	}
	info := input.FormData.BasicInfo

	// One application per applicant and year. A retried job finds its own row.
	var existingID string
	err := h.db.QueryRowContext(ctx, `
		SELECT id FROM applications
		WHERE applicant_id = $1 AND year = $2`, input.ApplicantID, info.Year).Scan(&existingID)
	switch {
	case err == nil && existingID == input.ApplicationID:
		h.logger.Info("application record already exists", map[string]interface{}{
			"applicationId": existingID,
		})
		return &Output{
			ApplicationID:     existingID,
			ApplicationStatus: string(models.StatusPending),
			CreatedAt:         h.submittedAt(input).Format(time.RFC3339),
		}, nil
	case err == nil:
		return nil, fmt.Errorf("%w: applicant %s already applied for %d (application %s)",
			ErrDuplicateApplication, input.ApplicantID, info.Year, existingID)
	case !stderrors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: duplicate check failed: %v", ErrDatabaseInsertFailed, err)
	}

	formJSON, err := json.Marshal(input.FormData)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal form data: %v", ErrDatabaseInsertFailed, err)
	}

	addOns := make(pq.StringArray, 0, len(info.AddOns))
	for _, a := range info.AddOns {
		addOns = append(addOns, string(a))
	}
	priority := input.Priority
	if priority == "" {
		priority = "normal"
	}
	submittedAt := h.submittedAt(input)

	_, err = h.db.ExecContext(ctx, insertApplication,
		input.ApplicationID,
		input.ApplicantID,
		info.Year,
		info.FarmName,
		info.CompanyName,
		info.OwnerName,
		info.Email,
		info.Phone,
		info.City,
		string(info.Category),
		addOns,
		input.TotalScore,
		input.Readiness,
		priority,
		input.ReviewerQueue,
		string(models.StatusPending),
		formJSON,
		submittedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateApplication, err)
		}
		return nil, fmt.Errorf("%w: insert failed: %v", ErrDatabaseInsertFailed, err)
	}

	h.writeAudit(ctx, input, submittedAt)

	h.logger.Info("application record created", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"applicantId":   input.ApplicantID,
		"category":      info.Category,
		"priority":      priority,
	})

	return &Output{
		ApplicationID:     input.ApplicationID,
		ApplicationStatus: string(models.StatusPending),
		CreatedAt:         submittedAt.Format(time.RFC3339),
	}, nil
}

// writeAudit is best effort: the application exists even when the audit row does not.
func (h *Handler) writeAudit(ctx context.Context, input *Input, at time.Time) {
	details, err := json.Marshal(map[string]interface{}{
		"totalScore":    input.TotalScore,
		"readiness":     input.Readiness,
		"priority":      input.Priority,
		"reviewerQueue": input.ReviewerQueue,
	})
	if err != nil {
		details = []byte("{}")
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO audit_log (entity_type, entity_id, action, actor, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		"application", input.ApplicationID, "application_created", input.ApplicantID, details, at,
	)
	if err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":         err,
			"applicationId": input.ApplicationID,
		})
	}
}

func (h *Handler) submittedAt(input *Input) time.Time {
	if input.SubmittedAt.IsZero() {
		return h.now().UTC()
	}
	return input.SubmittedAt.UTC()
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string, retries int32) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
		"retries":      retries,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}
