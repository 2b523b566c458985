package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Lllllllleong/documentmetadataflow/internal/automation"
	"github.com/Lllllllleong/documentmetadataflow/internal/config"
	"github.com/Lllllllleong/documentmetadataflow/internal/metadata"
	"github.com/Lllllllleong/documentmetadataflow/internal/models"
	"github.com/Lllllllleong/documentmetadataflow/internal/objectstore"
)

type AutomationTaggerConfig struct {
	MetadataTable string
	ProjectARN    string
	ProfileARN    string
	OutputBucket  string
	LocalWorkDir  string
}

type automationRunner interface {
	Submit(ctx context.Context, inputFile, outputBucket, projectARN string) (string, error)
	FetchAndNormalize(ctx context.Context, invocationID, outputBucket, localDirPrefix string) (string, error)
}

// AutomationTaggerFunction tags an S3 object through a data automation job.
type AutomationTaggerFunction struct {
	runner automationRunner
	store  metadata.Store
	config AutomationTaggerConfig
}

func NewAutomationTagger(ctx context.Context) (*AutomationTaggerFunction, error) {
	cfg := AutomationTaggerConfig{
		MetadataTable: config.GetEnv("METADATA_TABLE", ""),
		ProjectARN:    config.GetEnv("BDA_PROJECT_ARN", ""),
		ProfileARN:    config.GetEnv("BDA_PROFILE_ARN", ""),
		OutputBucket:  config.GetEnv("BDA_OUTPUT_BUCKET", ""),
		LocalWorkDir:  config.GetEnv("LOCAL_WORK_DIR", os.TempDir()),
	}
	if cfg.MetadataTable == "" {
		return nil, fmt.Errorf("METADATA_TABLE environment variable must be set")
	}
	backendCfg, err := LoadBackendConfig()
	if err != nil {
		return nil, err
	}
	b := newBackends(backendCfg)

	clients, err := b.awsClients(ctx)
	if err != nil {
		return nil, err
	}
	// Data automation reads and writes S3 only, whatever OBJECT_STORE says.
	transfer, err := b.s3Transfer(ctx)
	if err != nil {
		return nil, err
	}
	store, err := b.metadataStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata store: %w", err)
	}
	runner := automation.NewRunner(clients.DataAutomationRuntime, transfer, automation.RunnerOptions{
		ProfileARN: cfg.ProfileARN,
		Policy:     backendCfg.Poll,
	})

	slog.Info("Automation tagger initialized.", "metadataBackend", backendCfg.MetadataBackend, "projectArn", cfg.ProjectARN)
	return &AutomationTaggerFunction{runner: runner, store: store, config: cfg}, nil
}

// Process runs the job on req.InputFile, normalizes the result and stores it
// under the input file's s3:// URI.
func (f *AutomationTaggerFunction) Process(ctx context.Context, req *models.AutomationTagRequest) (*models.AutomationTagResponse, error) {
	outputBucket := firstNonEmpty(req.OutputBucket, f.config.OutputBucket)
	projectARN := firstNonEmpty(req.ProjectArn, f.config.ProjectARN)
	bucket, key, ok := strings.Cut(req.InputFile, "/")
	switch {
	case !ok || bucket == "" || key == "":
		return nil, fmt.Errorf("%w: inputFile must be <bucket>/<key>, got %q", ErrInvalidRequest, req.InputFile)
	case outputBucket == "":
		return nil, fmt.Errorf("%w: outputBucket is not set and BDA_OUTPUT_BUCKET is empty", ErrInvalidRequest)
	case projectARN == "":
		return nil, fmt.Errorf("%w: projectArn is not set and BDA_PROJECT_ARN is empty", ErrInvalidRequest)
	}

	fileName := objectstore.URI(objectstore.SchemeS3, bucket, key)
	logCtx := slog.With("fileName", fileName, "projectArn", projectARN)
	logCtx.Info("Starting automation tagging.")

	invocationID, err := f.runner.Submit(ctx, req.InputFile, outputBucket, projectARN)
	if err != nil {
		return nil, err
	}
	logCtx = logCtx.With("invocationId", invocationID)

	workDir, err := os.MkdirTemp(f.config.LocalWorkDir, "automation-tagger-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	metadataJSON, err := f.runner.FetchAndNormalize(ctx, invocationID, outputBucket, workDir)
	if err != nil {
		logCtx.Error("Failed to process invocation result", "error", err)
		return nil, err
	}
	if err := f.store.Write(ctx, f.config.MetadataTable, fileName, metadataJSON); err != nil {
		logCtx.Error("Failed to store metadata", "error", err)
		return nil, err
	}

	logCtx.Info("File tagged.")
	return &models.AutomationTagResponse{
		Status:       StatusTagged,
		InvocationID: invocationID,
		FileName:     fileName,
		Metadata:     json.RawMessage(metadataJSON),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
