// internal/workers/application/validate-application-data/handler.go
package validateapplicationdata

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"agritour-certification/internal/assessment/catalog"
	"agritour-certification/internal/assessment/sections"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/common/validation"
	"agritour-certification/internal/models"
)

const (
	TaskType = "validate-application-data"
)

var (
	ErrApplicationValidationFailed = stderrors.New("APPLICATION_VALIDATION_FAILED")
	ErrCatalogNotReady             = stderrors.New("CATALOG_NOT_READY")
)

// Catalogs supplies the question catalog used to work out which questions apply.
type Catalogs interface {
	Catalog() (catalog.Catalog, error)
}

// FailedValidation carries the field errors of a rejected form.
type FailedValidation struct {
	Errors []validation.ValidationError
}

func (f *FailedValidation) Error() string {
	return fmt.Sprintf("%d validation errors", len(f.Errors))
}

func (f *FailedValidation) Unwrap() error { return ErrApplicationValidationFailed }

var schema = validation.NewSchema(formSchema)

type Handler struct {
	config   *Config
	catalogs Catalogs
	logger   logger.Logger
	now      func() time.Time
}

func NewHandler(config *Config, catalogs Catalogs, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		catalogs: catalogs,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:      time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", err.Error())
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
		h.failJob(client, job, "APPLICATION_VALIDATION_FAILED", err.Error())
		return
	}

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
		h.logger.Error("failed to complete job", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if len(input.FormData) == 0 || string(input.FormData) == "null" {
		return nil, &FailedValidation{Errors: []validation.ValidationError{{
			Field:   "formData",
			Code:    "MISSING_REQUIRED",
			Message: "formData is required",
		}}}
	}

	var doc interface{}
	if err := json.Unmarshal(input.FormData, &doc); err != nil {
		return nil, fmt.Errorf("%w: formData is not JSON: %v", ErrApplicationValidationFailed, err)
	}
	result, err := schema.Validate(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrApplicationValidationFailed, err)
	}
	if !result.Valid {
		h.logValidation(input, result.Errors)
		return nil, &FailedValidation{Errors: result.Errors}
	}

	var form models.FormState
	if err := json.Unmarshal(input.FormData, &form); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrApplicationValidationFailed, err)
	}

	cat, err := h.catalogs.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogNotReady, err)
	}
	visible := sections.VisibleQuestionIDs(sections.Assemble(cat, form.BasicInfo.Category, form.BasicInfo.AddOns))

	var problems []validation.ValidationError
	problems = append(problems, h.validateBasicInfo(form.BasicInfo)...)
	problems = append(problems, h.validateAnswers(form.Answers, visible)...)

	h.logValidation(input, problems)
	if len(problems) > 0 {
		return nil, &FailedValidation{Errors: problems}
	}

	return &Output{
		IsValid:            true,
		VisibleQuestionIDs: visible,
		ValidationErrors:   []validation.ValidationError{},
	}, nil
}

// validateBasicInfo checks the formats the schema cannot express.
func (h *Handler) validateBasicInfo(info models.BasicInfo) []validation.ValidationError {
	var errs []validation.ValidationError
	if !validation.IsEmail(info.Email) {
		errs = append(errs, validation.ValidationError{
			Field:   "basicInfo.email",
			Code:    "INVALID_FORMAT",
			Message: "email is invalid",
		})
	}
	if !validation.IsTaiwanPhone(info.Phone) {
		errs = append(errs, validation.ValidationError{
			Field:   "basicInfo.phone",
			Code:    "INVALID_FORMAT",
			Message: "phone is not a Taiwan number",
		})
	}
	if info.Year > h.now().Year()+1 {
		errs = append(errs, validation.ValidationError{
			Field:   "basicInfo.year",
			Code:    "OUT_OF_RANGE",
			Message: fmt.Sprintf("year %d is out of range", info.Year),
		})
	}
	for _, field := range []struct{ name, value string }{
		{"farmName", info.FarmName},
		{"ownerName", info.OwnerName},
		{"address", info.Address},
		{"city", info.City},
	} {
		if strings.TrimSpace(field.value) == "" {
			errs = append(errs, validation.ValidationError{
				Field:   "basicInfo." + field.name,
				Code:    "MISSING_REQUIRED",
				Message: field.name + " is required",
			})
		}
	}
	return errs
}

// validateAnswers requires a score on every visible question, and a note as well
// when the evidence gate is on. Answers to hidden questions are ignored.
func (h *Handler) validateAnswers(answers map[string]models.Answer, visible []string) []validation.ValidationError {
	if len(visible) == 0 {
		return []validation.ValidationError{{
			Field:   "answers",
			Code:    "NO_QUESTIONS",
			Message: "no questions apply to this category",
		}}
	}

	var errs []validation.ValidationError
	for _, id := range visible {
		a := answers[id]
		if !a.Score.IsSet() {
			errs = append(errs, validation.ValidationError{
				Field:   "answers." + id,
				Code:    "MISSING_REQUIRED",
				Message: "question " + id + " is not scored",
			})
			continue
		}
		if h.config.RequireEvidenceNote && strings.TrimSpace(a.Note) == "" {
			errs = append(errs, validation.ValidationError{
				Field:   "answers." + id + ".note",
				Code:    "EVIDENCE_MISSING",
				Message: "question " + id + " needs an evidence note",
			})
		}
	}
	return errs
}

func (h *Handler) logValidation(input *Input, errs []validation.ValidationError) {
	h.logger.Info("validation completed", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"isValid":       len(errs) == 0,
		"errorCount":    len(errs),
	})
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
