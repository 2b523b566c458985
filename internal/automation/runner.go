package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime/types"
	"github.com/google/uuid"

	"github.com/Lllllllleong/documentmetadataflow/internal/llm"
	"github.com/Lllllllleong/documentmetadataflow/internal/models"
	"github.com/Lllllllleong/documentmetadataflow/internal/objectstore"
	"github.com/Lllllllleong/documentmetadataflow/internal/poll"
)

// JobMetadataFile is the manifest every invocation writes under its output prefix.
const JobMetadataFile = "job_metadata.json"

// Comments is stamped on every record produced from an automation result.
const Comments = "Created using Amazon Bedrock Data Automation."

// RunnerOptions configures Runner.
type RunnerOptions struct {
	// ProfileARN is the data automation profile sent with each invocation, if set.
	ProfileARN string
	Policy     poll.Policy
}

// Runner submits automation jobs and turns their output into metadata records.
type Runner struct {
	client   RuntimeAPI
	transfer *objectstore.Transfer
	opts     RunnerOptions
	now      func() time.Time
}

func NewRunner(client RuntimeAPI, transfer *objectstore.Transfer, opts RunnerOptions) *Runner {
	return &Runner{client: client, transfer: transfer, opts: opts, now: time.Now}
}

// Submit starts an asynchronous invocation of projectARN on inputFile
// ("bucket/key") writing to outputBucket, and waits for it to finish.
// It returns the invocation id, the part of the invocation ARN after the last "/".
func (r *Runner) Submit(ctx context.Context, inputFile, outputBucket, projectARN string) (string, error) {
	logCtx := slog.With("inputFile", inputFile, "outputBucket", outputBucket, "projectArn", projectARN)

	input := &bedrockdataautomationruntime.InvokeDataAutomationAsyncInput{
		InputConfiguration:  &types.InputConfiguration{S3Uri: aws.String("s3://" + inputFile)},
		OutputConfiguration: &types.OutputConfiguration{S3Uri: aws.String("s3://" + outputBucket)},
		DataAutomationConfiguration: &types.DataAutomationConfiguration{
			DataAutomationProjectArn: aws.String(projectARN),
			Stage:                    types.DataAutomationStageLive,
		},
		ClientToken: aws.String(uuid.NewString()),
	}
	if r.opts.ProfileARN != "" {
		input.DataAutomationProfileArn = aws.String(r.opts.ProfileARN)
	}
	out, err := r.client.InvokeDataAutomationAsync(ctx, input)
	if err != nil {
		logCtx.Error("Failed to invoke data automation", "error", err)
		return "", fmt.Errorf("failed to invoke data automation on %s: %w", inputFile, err)
	}
	invocationARN := aws.ToString(out.InvocationArn)
	invocationID, err := llm.SubstringAfter(invocationARN, "/")
	if err != nil {
		return "", fmt.Errorf("unexpected invocation ARN: %w", err)
	}
	logCtx = logCtx.With("invocationId", invocationID)
	logCtx.Info("Data automation invoked.")

	err = poll.Until(ctx, r.opts.Policy, func(ctx context.Context, _ int) (bool, error) {
		status, err := r.client.GetDataAutomationStatus(ctx, &bedrockdataautomationruntime.GetDataAutomationStatusInput{
			InvocationArn: aws.String(invocationARN),
		})
		if err != nil {
			return false, fmt.Errorf("failed to get invocation status: %w", err)
		}
		logCtx.Info("Invocation status.", "status", status.Status)
		switch status.Status {
		case types.AutomationJobStatusSuccess:
			return true, nil
		case types.AutomationJobStatusServiceError, types.AutomationJobStatusClientError:
			logCtx.Error("Error occurred during invocation.", "status", status.Status, "errorType", aws.ToString(status.ErrorType), "errorMessage", aws.ToString(status.ErrorMessage))
			return false, fmt.Errorf("%w: %s: %s", ErrJobFailed, status.Status, aws.ToString(status.ErrorMessage))
		}
		return false, nil
	})
	if errors.Is(err, poll.ErrTimedOut) {
		logCtx.Warn("Invocation status unknown. Status check exited.")
		return "", err
	}
	if err != nil {
		if !errors.Is(err, ErrJobFailed) {
			logCtx.Error("Failed while waiting for invocation", "error", err)
		}
		return "", err
	}
	logCtx.Info("Invocation completed.")
	return invocationID, nil
}

// FetchAndNormalize downloads the invocation's output from outputBucket into
// localDirPrefix/invocationID and builds a metadata record from its first segment.
func (r *Runner) FetchAndNormalize(ctx context.Context, invocationID, outputBucket, localDirPrefix string) (string, error) {
	logCtx := slog.With("invocationId", invocationID, "outputBucket", outputBucket)
	logCtx.Info("Processing invocation result.")

	localDir := filepath.Join(localDirPrefix, invocationID)
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", localDir, err)
	}
	if _, err := r.transfer.Download(ctx, localDir, outputBucket, "/"+invocationID+"/"); err != nil {
		return "", err
	}

	var job models.JobMetadata
	if err := readJSON(filepath.Join(localDir, JobMetadataFile), &job); err != nil {
		return "", err
	}
	if len(job.OutputMetadata) == 0 || len(job.OutputMetadata[0].SegmentMetadata) == 0 {
		return "", fmt.Errorf("%s has no segment metadata", JobMetadataFile)
	}
	segment := job.OutputMetadata[0].SegmentMetadata[0]

	standardPath, err := resultPath(localDir, invocationID, segment.StandardOutputPath)
	if err != nil {
		return "", err
	}
	var standard models.StandardOutput
	if err := readJSON(standardPath, &standard); err != nil {
		return "", err
	}

	record := models.FileMetadata{
		PIIIndicator: models.PIIIndicatorUnknown,
		Comments:     Comments,
	}
	if segment.CustomOutputStatus == models.CustomOutputMatch {
		customPath, err := resultPath(localDir, invocationID, segment.CustomOutputPath)
		if err != nil {
			return "", err
		}
		var custom models.CustomOutput
		if err := readJSON(customPath, &custom); err != nil {
			return "", err
		}
		record.PIIIndicator = custom.InferenceResult.PIIIndicator
		record.PIIExplanation = custom.InferenceResult.PIIExplanation
	} else {
		logCtx.Info("No blueprint matched. PII was not assessed.", "customOutputStatus", segment.CustomOutputStatus)
	}

	switch {
	case standard.Document != nil:
		record.Description = standard.Document.Description
		record.Summary = standard.Document.Summary
	case standard.Image != nil:
		record.Description = "Image"
		record.Summary = standard.Image.Summary
	default:
		return "", fmt.Errorf("standard output of invocation %s has neither document nor image results", invocationID)
	}
	record.CreateDateTime = r.now().Format(models.TimestampLayout)

	b, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	logCtx.Info("Completed processing invocation result.")
	return string(b), nil
}

// resultPath maps an output URI to its downloaded copy: everything after the
// invocation id is appended to localDir.
func resultPath(localDir, invocationID, outputURI string) (string, error) {
	rel, err := llm.SubstringAfter(outputURI, invocationID)
	if err != nil {
		return "", fmt.Errorf("output path does not belong to invocation: %w", err)
	}
	return localDir + filepath.FromSlash(rel), nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
