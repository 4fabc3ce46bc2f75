package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/googleapis/gax-go/v2"
)

type executionCreator interface {
	CreateExecution(ctx context.Context, req *executionspb.CreateExecutionRequest, opts ...gax.CallOption) (*executionspb.Execution, error)
}

// workflowArgument is the execution argument the fan-out workflow receives.
// The workflow posts every job to TargetURL.
type workflowArgument struct {
	BatchID   string     `json:"batchId"`
	TargetURL string     `json:"targetUrl"`
	Jobs      []Envelope `json:"jobs"`
}

// WorkflowDispatcher starts one Cloud Workflows execution per batch.
// CreateExecution returns once the execution exists, so Dispatch never waits
// for a job to run. deploy/workflows/upload-attachment-queue.yaml is the
// workflow it expects.
type WorkflowDispatcher struct {
	client    executionCreator
	parent    string
	targetURL string
	logger    *slog.Logger
}

// NewWorkflowDispatcher creates a dispatcher for the given workflow.
func NewWorkflowDispatcher(client *executions.Client, projectID, location, workflowID, targetURL string, logger *slog.Logger) *WorkflowDispatcher {
	return newWorkflowDispatcher(client, projectID, location, workflowID, targetURL, logger)
}

func newWorkflowDispatcher(client executionCreator, projectID, location, workflowID, targetURL string, logger *slog.Logger) *WorkflowDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkflowDispatcher{
		client:    client,
		parent:    fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
		targetURL: targetURL,
		logger:    logger,
	}
}

// Dispatch hands the whole batch to a single workflow execution.
func (d *WorkflowDispatcher) Dispatch(ctx context.Context, envs []Envelope) error {
	if len(envs) == 0 {
		return ErrEmptyBatch
	}
	payload, err := json.Marshal(workflowArgument{
		BatchID:   envs[0].BatchID,
		TargetURL: d.targetURL,
		Jobs:      envs,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	exec, err := d.client.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent:    d.parent,
		Execution: &executionspb.Execution{Argument: string(payload)},
	})
	if err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	d.logger.Info("Workflow execution started.", "batchId", envs[0].BatchID, "execution", exec.GetName())
	return nil
}
