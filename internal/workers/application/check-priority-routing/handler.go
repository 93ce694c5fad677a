// internal/workers/application/check-priority-routing/handler.go
package checkpriorityrouting

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"agritour-certification/internal/common/database"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/models"
)

const (
	TaskType = "check-priority-routing"

	cacheKeyPrefix     = "reviewer_queue:"
	readinessExcellent = "excellent"
)

var ErrInvalidCategory = stderrors.New("PRIORITY_ROUTING_FAILED")

// selectQueue prefers a queue for one of the selected add-ons over the plain
// category queue, whose add_on is empty.
const selectQueue = `
	SELECT queue_name, reviewers
	FROM reviewer_queues
	WHERE category = $1 AND add_on = ANY($2)
	ORDER BY add_on DESC
	LIMIT 1`

type Handler struct {
	config *Config
	db     *sql.DB
	redis  redis.Cmdable
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, rdb redis.Cmdable, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  rdb,
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
		h.failJob(client, job, "PRIORITY_ROUTING_FAILED", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, "PRIORITY_ROUTING_FAILED", err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if !input.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidCategory, input.Category)
	}

	queue, err := h.lookupQueue(ctx, input.Category, input.AddOns)
	if err != nil {
		h.logger.Warn("reviewer queue lookup failed, using default queue", map[string]interface{}{
			"category": input.Category,
			"error":    err.Error(),
		})
		queue = Queue{Name: h.config.DefaultQueue, Reviewers: []string{}}
	}

	priority := determinePriority(input.AddOns, input.Readiness)

	h.logger.Info("priority routing determined", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"category":      input.Category,
		"priority":      priority,
		"queue":         queue.Name,
	})

	return &Output{
		Priority:      priority,
		ReviewerQueue: queue.Name,
		Reviewers:     queue.Reviewers,
	}, nil
}

// lookupQueue reads the queue from Redis and falls back to Postgres. A Redis
// outage only costs the cache.
func (h *Handler) lookupQueue(ctx context.Context, category models.Category, addOns []models.AddOnID) (Queue, error) {
	keys := addOnKeys(addOns)
	cacheKey := cacheKeyPrefix + string(category) + ":" + strings.Join(keys, ",")

	var cached Queue
	found, err := database.GetJSON(ctx, h.redis, cacheKey, &cached)
	if err != nil {
		h.logger.Warn("routing cache read failed", map[string]interface{}{"error": err.Error()})
	}
	if found {
		return cached, nil
	}

	var (
		queue     Queue
		reviewers pq.StringArray
	)
	err = h.db.QueryRowContext(ctx, selectQueue, string(category), pq.Array(append(keys, ""))).
		Scan(&queue.Name, &reviewers)
	switch {
	case err == sql.ErrNoRows:
		queue = Queue{Name: h.config.DefaultQueue}
	case err != nil:
		return Queue{}, fmt.Errorf("database error: %w", err)
	}
	queue.Reviewers = []string(reviewers)
	if queue.Reviewers == nil {
		queue.Reviewers = []string{}
	}

	if err := database.SetJSON(ctx, h.redis, cacheKey, queue, h.config.CacheTTL); err != nil {
		h.logger.Warn("routing cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return queue, nil
}

// determinePriority puts add-on applications and excellent self-assessments first.
func determinePriority(addOns []models.AddOnID, readiness string) string {
	if len(addOns) > 0 || readiness == readinessExcellent {
		return PriorityHigh
	}
	return PriorityNormal
}

func addOnKeys(addOns []models.AddOnID) []string {
	keys := make([]string, 0, len(addOns))
	for _, a := range addOns {
		keys = append(keys, string(a))
	}
	sort.Strings(keys)
	return keys
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
