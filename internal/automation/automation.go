// Package automation provisions Bedrock Data Automation blueprints and projects,
// runs automation jobs and normalizes their results into file metadata records.
package automation

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation"
	bdatypes "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime"
)

var (
	// ErrNotFound is returned when a blueprint or project does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrProjectFailed is returned when project creation reports FAILED.
	ErrProjectFailed = errors.New("data automation project creation failed")
	// ErrJobFailed is returned when an invocation ends in ServiceError or ClientError.
	ErrJobFailed = errors.New("data automation invocation failed")
)

// State tells the caller what an Ensure call did.
type State string

const (
	StateExisting State = "existing"
	StateCreated  State = "created"
	// StateBaseOnly means no version was requested and the base blueprint ARN is returned.
	StateBaseOnly State = "base-only"
)

// Resource is the outcome of an Ensure call.
type Resource struct {
	ARN   string
	State State
}

// BuildtimeAPI is the subset of the Bedrock Data Automation client used by Provisioner.
type BuildtimeAPI interface {
	ListBlueprints(ctx context.Context, params *bedrockdataautomation.ListBlueprintsInput, optFns ...func(*bedrockdataautomation.Options)) (*bedrockdataautomation.ListBlueprintsOutput, error)
	CreateBlueprint(ctx context.Context, params *bedrockdataautomation.CreateBlueprintInput, optFns ...func(*bedrockdataautomation.Options)) (*bedrockdataautomation.CreateBlueprintOutput, error)
	GetBlueprint(ctx context.Context, params *bedrockdataautomation.GetBlueprintInput, optFns ...func(*bedrockdataautomation.Options)) (*bedrockdataautomation.GetBlueprintOutput, error)
	CreateBlueprintVersion(ctx context.Context, params *bedrockdataautomation.CreateBlueprintVersionInput, optFns ...func(*bedrockdataautomation.Options)) (*bedrockdataautomation.CreateBlueprintVersionOutput, error)
	DeleteBlueprint(ctx context.Context, params *bedrockdataautomation.DeleteBlueprintInput, optFns ...func(*bedrockdataautomation.Options)) (*bedrockdataautomation.DeleteBlueprintOutput, error)
	ListDataAutomationProjects(ctx context.Context, params *bedrockdataautomation.ListDataAutomationProjectsInput, optFns ...func(*bedrockdataautomation.Options)) (*bedrockdataautomation.ListDataAutomationProjectsOutput, error)
	CreateDataAutomationProject(ctx context.Context, params *bedrockdataautomation.CreateDataAutomationProjectInput, optFns ...func(*bedrockdataautomation.Options)) (*bedrockdataautomation.CreateDataAutomationProjectOutput, error)
	GetDataAutomationProject(ctx context.Context, params *bedrockdataautomation.GetDataAutomationProjectInput, optFns ...func(*bedrockdataautomation.Options)) (*bedrockdataautomation.GetDataAutomationProjectOutput, error)
	DeleteDataAutomationProject(ctx context.Context, params *bedrockdataautomation.DeleteDataAutomationProjectInput, optFns ...func(*bedrockdataautomation.Options)) (*bedrockdataautomation.DeleteDataAutomationProjectOutput, error)
}

// RuntimeAPI is the subset of the Bedrock Data Automation Runtime client used by Runner.
type RuntimeAPI interface {
	InvokeDataAutomationAsync(ctx context.Context, params *bedrockdataautomationruntime.InvokeDataAutomationAsyncInput, optFns ...func(*bedrockdataautomationruntime.Options)) (*bedrockdataautomationruntime.InvokeDataAutomationAsyncOutput, error)
	GetDataAutomationStatus(ctx context.Context, params *bedrockdataautomationruntime.GetDataAutomationStatusInput, optFns ...func(*bedrockdataautomationruntime.Options)) (*bedrockdataautomationruntime.GetDataAutomationStatusOutput, error)
}

func isResourceNotFound(err error) bool {
	var nf *bdatypes.ResourceNotFoundException
	return errors.As(err, &nf)
}
