// internal/workers/data-access/query-elasticsearch/handler.go
package queryelasticsearch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"

	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/workers/data-access/query-elasticsearch/queries"
)

const (
	TaskType = "query-elasticsearch"
)

var (
	ErrElasticsearchConnectionFailed = stderrors.New("ELASTICSEARCH_CONNECTION_FAILED")
	ErrSearchQueryFailed             = stderrors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout                 = stderrors.New("SEARCH_TIMEOUT")
	ErrIndexNotFound                 = stderrors.New("INDEX_NOT_FOUND")
	ErrInvalidQueryType              = stderrors.New("INVALID_QUERY_TYPE")
)

type Handler struct {
	config *Config
	client *elasticsearch.Client
	logger logger.Logger
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
		h.failJob(client, job, h.mapErrorToCode(err), err.Error(), h.getRetryCount(err))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, stderrors.New("input cannot be nil")
	}

	index := input.IndexName
	if index == "" {
		index = h.config.Index
	}
	queryType := input.QueryType
	if queryType == "" {
		queryType = queries.QueryApplicationDashboard
	}

	result, err := queries.Execute(ctx, h.client, queries.ElasticsearchQuery{
		Index:      index,
		QueryType:  queryType,
		Filters:    input.Filters,
		Pagination: input.Pagination,
	})
	if err != nil {
		switch {
		case stderrors.Is(err, context.DeadlineExceeded):
			return nil, ErrSearchTimeout
		case stderrors.Is(err, queries.ErrMissingIndex):
			return nil, fmt.Errorf("%w: %v", ErrIndexNotFound, err)
		case stderrors.Is(err, queries.ErrUnknownQueryType):
			return nil, fmt.Errorf("%w: %v", ErrInvalidQueryType, err)
		case stderrors.Is(err, queries.ErrUnavailable):
			return nil, fmt.Errorf("%w: %v", ErrElasticsearchConnectionFailed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}

	h.logger.Debug("search finished", map[string]interface{}{
		"index":     index,
		"queryType": queryType,
		"totalHits": result.TotalHits,
		"tookMs":    result.Took,
	})

	return &Output{
		Data:        result.Data,
		TotalHits:   result.TotalHits,
		StatusStats: result.StatusStats,
		Took:        result.Took,
	}, nil
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

func (h *Handler) mapErrorToCode(err error) string {
	switch {
	case stderrors.Is(err, ErrIndexNotFound):
		return "INDEX_NOT_FOUND"
	case stderrors.Is(err, ErrSearchTimeout):
		return "SEARCH_TIMEOUT"
	case stderrors.Is(err, ErrInvalidQueryType):
		return "INVALID_QUERY_TYPE"
	case stderrors.Is(err, ErrSearchQueryFailed):
		return "SEARCH_QUERY_FAILED"
	case stderrors.Is(err, ErrElasticsearchConnectionFailed):
		return "ELASTICSEARCH_CONNECTION_FAILED"
	}
	return "UNKNOWN_ERROR"
}

func (h *Handler) getRetryCount(err error) int32 {
	switch {
	case stderrors.Is(err, ErrElasticsearchConnectionFailed), stderrors.Is(err, ErrSearchQueryFailed):
		return 3
	case stderrors.Is(err, ErrSearchTimeout):
		return 2
	}
	return 0
}

// Execute runs the search outside a job, for tests and the admin API.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
