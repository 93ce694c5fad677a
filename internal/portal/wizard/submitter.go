// internal/portal/wizard/submitter.go
package wizard

import (
	"context"

	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/models"
)

// DefaultProcessID is the BPMN process started for every submission.
const DefaultProcessID = "certification-application"

// Submitter hands a finished application to the back office and returns a
// reference for it.
type Submitter interface {
	Submit(ctx context.Context, sub models.Submission) (int64, error)
}

// InstanceCreator starts a process instance. *camunda.Client implements it.
type InstanceCreator interface {
	CreateInstance(ctx context.Context, processID string, vars interface{}) (int64, error)
}

// ZeebeSubmitter starts one certification-application process per submission.
// The submission fields become the process variables.
type ZeebeSubmitter struct {
	client    InstanceCreator
	processID string
}

func NewZeebeSubmitter(client InstanceCreator, processID string) *ZeebeSubmitter {
	if processID == "" {
		processID = DefaultProcessID
	}
	return &ZeebeSubmitter{client: client, processID: processID}
}

func (z *ZeebeSubmitter) Submit(ctx context.Context, sub models.Submission) (int64, error) {
	key, err := z.client.CreateInstance(ctx, z.processID, sub)
	if err != nil {
		if _, ok := errors.AsStandard(err); ok {
			return 0, err
		}
		return 0, errors.NewWorkflowFailedError(z.processID, err)
	}
	return key, nil
}
