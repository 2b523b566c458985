package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/googleapis/gax-go/v2"
)

// ExecutionCreator is the part of the Workflows Executions client used to start runs.
// *executions.Client satisfies it.
type ExecutionCreator interface {
	CreateExecution(ctx context.Context, req *executionspb.CreateExecutionRequest, opts ...gax.CallOption) (*executionspb.Execution, error)
}

// WorkflowLauncher starts executions of a single workflow.
type WorkflowLauncher struct {
	client ExecutionCreator
	parent string
}

func NewWorkflowLauncher(client ExecutionCreator, projectID, location, workflowID string) *WorkflowLauncher {
	return &WorkflowLauncher{
		client: client,
		parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
	}
}

// Launch starts an execution with payload as its JSON argument and returns the
// execution name.
func (l *WorkflowLauncher) Launch(ctx context.Context, payload any) (string, error) {
	logCtx := slog.With("workflow", l.parent)

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	exec, err := l.client.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent:    l.parent,
		Execution: &executionspb.Execution{Argument: string(payloadBytes)},
	})
	if err != nil {
		logCtx.Error("Failed to trigger workflow execution", "error", err)
		return "", fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	logCtx.Info("Workflow execution started.", "execution", exec.GetName())
	return exec.GetName(), nil
}
