// internal/workers/data-access/index-application/handler.go
package indexapplication

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"

	"agritour-certification/internal/common/database"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/models"
)

const (
	TaskType = "index-application"
)

var (
	ErrIndexingFailed = stderrors.New("INDEXING_FAILED")
	ErrInvalidInput   = stderrors.New("INVALID_INPUT")
)

type Handler struct {
	config *Config
	client *elasticsearch.Client
	logger logger.Logger

	mu          sync.Mutex
	indexExists bool
}

func NewHandler(config *Config, client *elasticsearch.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		client: client,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		if stderrors.Is(err, ErrInvalidInput) {
			h.failJob(client, job, "INVALID_INPUT", err.Error(), 0)
			return
		}
		h.failJob(client, job, "INDEXING_FAILED", err.Error(), 3)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" || input.FormData == nil {
		return nil, fmt.Errorf("%w: applicationId and formData are required", ErrInvalidInput)
	}

	if err := h.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexingFailed, err)
	}

	doc := BuildDocument(input)
	if err := database.IndexDocument(ctx, h.client, h.config.Index, input.ApplicationID, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexingFailed, err)
	}

	h.logger.Info("application indexed", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"index":         h.config.Index,
		"status":        doc.Status,
	})
	return &Output{Indexed: true, IndexName: h.config.Index}, nil
}

// ensureIndex creates the index with the dashboard mapping the first time through.
// A failed attempt is retried on the next job.
func (h *Handler) ensureIndex(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.indexExists {
		return nil
	}
	if err := database.EnsureIndex(ctx, h.client, h.config.Index, database.ApplicationIndexMapping); err != nil {
		return err
	}
	h.indexExists = true
	return nil
}

// BuildDocument projects the process variables onto the dashboard document.
func BuildDocument(input *Input) Document {
	info := input.FormData.BasicInfo
	status := input.ApplicationStatus
	if status == "" {
		status = string(models.StatusPending)
	}
	addOns := info.AddOns
	if addOns == nil {
		addOns = []models.AddOnID{}
	}
	applicantID := input.ApplicantID
	if applicantID == "" {
		applicantID = input.FormData.ApplicantID
	}
	return Document{
		ApplicationID: input.ApplicationID,
		ApplicantID:   applicantID,
		FarmName:      info.FarmName,
		CompanyName:   info.CompanyName,
		OwnerName:     info.OwnerName,
		City:          info.City,
		Category:      info.Category,
		AddOns:        addOns,
		Status:        status,
		Decision:      input.Decision,
		Priority:      input.Priority,
		Readiness:     input.Readiness,
		Year:          info.Year,
		TotalScore:    input.TotalScore,
		SubmittedAt:   input.SubmittedAt.UTC(),
	}
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
	}
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
