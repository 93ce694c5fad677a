// internal/common/camunda/jobtest/jobtest.go
package jobtest

import (
	"context"
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"google.golang.org/grpc"
)

// Outcome is how a handler resolved a job.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeComplete Outcome = "complete"
	OutcomeFail     Outcome = "fail"
	OutcomeThrow    Outcome = "throw"
)

// Client is a worker.JobClient whose commands are recorded instead of sent to a broker.
type Client struct {
	pb.GatewayClient

	mu        sync.Mutex
	outcome   Outcome
	retries   int32
	errorCode string
	message   string
	variables string
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c, noRetry)
}

func (c *Client) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c, noRetry)
}

func (c *Client) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c, noRetry)
}

func (c *Client) CompleteJob(_ context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	c.record(OutcomeComplete, 0, "", "", in.GetVariables())
	return &pb.CompleteJobResponse{}, nil
}

func (c *Client) FailJob(_ context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	c.record(OutcomeFail, in.GetRetries(), "", in.GetErrorMessage(), in.GetVariables())
	return &pb.FailJobResponse{}, nil
}

func (c *Client) ThrowError(_ context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	c.record(OutcomeThrow, 0, in.GetErrorCode(), in.GetErrorMessage(), in.GetVariables())
	return &pb.ThrowErrorResponse{}, nil
}

func (c *Client) record(o Outcome, retries int32, code, message, variables string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcome, c.retries, c.errorCode, c.message, c.variables = o, retries, code, message, variables
}

func (c *Client) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Retries is the retry count of the last fail command.
func (c *Client) Retries() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retries
}

func (c *Client) ErrorCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorCode
}

func (c *Client) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

func (c *Client) Variables() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.variables
}

// Job builds an activated job carrying variables.
func Job(key int64, taskType, variables string, retries int32) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               taskType,
		ProcessInstanceKey: key * 10,
		Retries:            retries,
		Variables:          variables,
	}}
}

func noRetry(context.Context, error) bool { return false }
