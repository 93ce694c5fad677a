// internal/common/camunda/recording.go
package camunda

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"agritour-certification/internal/common/observability"
)

// recordingClient notes whether the handler failed the job so the outcome can be counted.
// Handlers resolve jobs through fail or throw-error commands; either counts as a failure.
type recordingClient struct {
	worker.JobClient
	failed    bool
	errorCode string
}

func (r *recordingClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	r.failed = true
	r.errorCode = "FAILED"
	return r.JobClient.NewFailJobCommand()
}

func (r *recordingClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	r.failed = true
	r.errorCode = "BPMN_ERROR"
	return r.JobClient.NewThrowErrorCommand()
}

func startJobSpan(ctx context.Context, obs *observability.Observability, taskType string, job entities.Job) (context.Context, trace.Span) {
	return obs.StartSpan(ctx, "job "+taskType,
		attribute.Int64("job.key", job.Key),
		attribute.Int64("process.instance_key", job.ProcessInstanceKey),
	)
}
