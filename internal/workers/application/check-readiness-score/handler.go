// internal/workers/application/check-readiness-score/handler.go
package checkreadinessscore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"agritour-certification/internal/assessment/catalog"
	"agritour-certification/internal/assessment/scoring"
	"agritour-certification/internal/assessment/sections"
	"agritour-certification/internal/common/logger"
)

const (
	TaskType = "check-readiness-score"
)

var (
	ErrMissingForm     = stderrors.New("READINESS_SCORE_FAILED")
	ErrCatalogNotReady = stderrors.New("CATALOG_NOT_READY")
)

type Catalogs interface {
	Catalog() (catalog.Catalog, error)
}

type Handler struct {
	config   *Config
	catalogs Catalogs
	logger   logger.Logger
}

func NewHandler(config *Config, catalogs Catalogs, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		catalogs: catalogs,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		if stderrors.Is(err, ErrCatalogNotReady) {
			h.retryJob(client, job, err.Error())
			return
		}
		h.failJob(client, job, "READINESS_SCORE_FAILED", err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input.FormData == nil {
		return nil, fmt.Errorf("%w: formData is required", ErrMissingForm)
	}
	cat, err := h.catalogs.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogNotReady, err)
	}

	form := input.FormData
	secs := sections.Assemble(cat, form.BasicInfo.Category, form.BasicInfo.AddOns)
	visible := sections.VisibleQuestionIDs(secs)

	out := &Output{
		TotalScore:   scoring.TotalScore(form.Answers),
		VisibleTotal: scoring.VisibleTotal(form.Answers, visible),
		MaxScore:     scoring.MaxScore(visible),
		Completion:   scoring.CompletionOf(form.Answers, visible),
		Sections:     scoring.SectionBreakdown(form.Answers, secs),
	}
	if out.MaxScore > 0 {
		out.Percentage = math.Round(out.VisibleTotal/out.MaxScore*1000) / 10
	}
	out.Readiness = classify(out.Percentage)

	h.logger.Info("readiness score calculated", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"visibleTotal":  out.VisibleTotal,
		"percentage":    out.Percentage,
		"readiness":     out.Readiness,
	})
	return out, nil
}

func classify(percentage float64) string {
	switch {
	case percentage >= 80:
		return ReadinessExcellent
	case percentage >= 60:
		return ReadinessGood
	case percentage >= 40:
		return ReadinessFair
	default:
		return ReadinessInsufficient
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
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

// retryJob fails the job with one retry used, so the engine redelivers it once the
// condition clears.
func (h *Handler) retryJob(client worker.JobClient, job entities.Job, errorMessage string) {
	retries := job.Retries - 1
	if retries < 0 {
		retries = 0
	}
	h.logger.Warn("job will be retried", map[string]interface{}{
		"jobKey":       job.Key,
		"retries":      retries,
		"errorMessage": errorMessage,
	})

	_, err := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to fail job", map[string]interface{}{
			"error": err,
		})
	}
}
