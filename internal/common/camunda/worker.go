// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/trace"

	"agritour-certification/internal/common/config"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/common/metrics"
	"agritour-certification/internal/common/observability"
)

// HandlerFunc is the signature every worker's Handle method satisfies.
type HandlerFunc func(client worker.JobClient, job entities.Job)

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for taskType. Each job runs inside a span and updates the
// worker gauges and duration histogram.
func NewWorker(
	client zbc.Client,
	taskType string,
	cfg config.WorkerConfig,
	handler HandlerFunc,
	obs *observability.Observability,
	log logger.Logger,
) *CamundaWorker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, handler, obs)).
		MaxJobsActive(cfg.MaxJobsActive).
		Timeout(config.GetDuration(cfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": cfg.MaxJobsActive,
		"timeoutMs":     cfg.Timeout,
	})

	return &CamundaWorker{
		worker:   jobWorker,
		logger:   log,
		taskType: taskType,
	}
}

// Instrument wraps handler with Prometheus and otel bookkeeping.
func Instrument(taskType string, handler HandlerFunc, obs *observability.Observability) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()

		ctx := context.Background()
		if obs != nil {
			var span trace.Span
			ctx, span = startJobSpan(ctx, obs, taskType, job)
			defer span.End()
		}

		recorder := &recordingClient{JobClient: client}
		handler(recorder, job)

		elapsed := time.Since(start)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())

		status := "completed"
		if recorder.failed {
			status = "failed"
			metrics.WorkerJobsFailed.WithLabelValues(taskType, recorder.errorCode).Inc()
		} else {
			metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		}
		if obs != nil {
			obs.RecordJobProcessed(ctx, taskType, status)
			obs.RecordJobDuration(ctx, taskType, elapsed, status)
		}
	}
}

func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
