package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Lllllllleong/documentmetadataflow/internal/config"
	"github.com/Lllllllleong/documentmetadataflow/internal/llm"
	"github.com/Lllllllleong/documentmetadataflow/internal/metadata"
	"github.com/Lllllllleong/documentmetadataflow/internal/models"
	"github.com/Lllllllleong/documentmetadataflow/internal/objectstore"
)

const (
	StatusTagged  = "TAGGED"
	StatusSkipped = "SKIPPED"
)

type FileTaggerConfig struct {
	MetadataTable     string
	ModelID           string
	TemplatesDir      string
	SystemTemplate    string
	UserTemplate      string
	LocalWorkDir      string
	AugmentResponse   bool
	LogPromptResponse bool
	WorkflowID        string
	WorkflowLocation  string
}

type promptProcessor interface {
	Process(ctx context.Context, modelID, templatesDir, systemTemplateFile, userTemplateFile, dataFilePath string) (string, error)
}

type workflowLauncher interface {
	Launch(ctx context.Context, payload any) (string, error)
}

// FileTaggerFunction tags a stored object through the prompt path.
type FileTaggerFunction struct {
	transfer *objectstore.Transfer
	prompts  promptProcessor
	store    metadata.Store
	launcher workflowLauncher
	config   FileTaggerConfig
}

func loadFileTaggerConfig() (FileTaggerConfig, error) {
	cfg := FileTaggerConfig{
		MetadataTable:    config.GetEnv("METADATA_TABLE", ""),
		ModelID:          config.GetEnv("MODEL_ID", ""),
		TemplatesDir:     config.GetEnv("PROMPT_TEMPLATES_DIR", "prompt_templates"),
		SystemTemplate:   config.GetEnv("SYSTEM_PROMPT_TEMPLATE", "system_prompt.txt"),
		UserTemplate:     config.GetEnv("USER_PROMPT_TEMPLATE", "user_prompt.txt"),
		LocalWorkDir:     config.GetEnv("LOCAL_WORK_DIR", os.TempDir()),
		WorkflowID:       config.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation: config.GetEnv("WORKFLOW_LOCATION", "us-central1"),
	}
	if cfg.MetadataTable == "" {
		return FileTaggerConfig{}, fmt.Errorf("METADATA_TABLE environment variable must be set")
	}
	if cfg.ModelID == "" {
		return FileTaggerConfig{}, fmt.Errorf("MODEL_ID environment variable must be set")
	}
	var err error
	if cfg.AugmentResponse, err = config.GetEnvBool("AUGMENT_RESPONSE", true); err != nil {
		return FileTaggerConfig{}, err
	}
	if cfg.LogPromptResponse, err = config.GetEnvBool("LOG_PROMPT_RESPONSE", false); err != nil {
		return FileTaggerConfig{}, err
	}
	return cfg, nil
}

func NewFileTagger(ctx context.Context) (*FileTaggerFunction, error) {
	cfg, err := loadFileTaggerConfig()
	if err != nil {
		return nil, err
	}
	backendCfg, err := LoadBackendConfig()
	if err != nil {
		return nil, err
	}
	b := newBackends(backendCfg)

	transfer, err := b.transfer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}
	store, err := b.metadataStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata store: %w", err)
	}
	invoker, err := b.invoker(ctx, cfg.LogPromptResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to create model invoker: %w", err)
	}
	prompts, err := llm.NewPromptProcessor(invoker, llm.PromptOptions{AugmentResponse: cfg.AugmentResponse})
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt processor: %w", err)
	}
	launcher, err := b.workflowLauncher(ctx, cfg.WorkflowLocation, cfg.WorkflowID)
	if err != nil {
		return nil, err
	}

	slog.Info("File tagger initialized.",
		"objectStore", backendCfg.ObjectStore,
		"metadataBackend", backendCfg.MetadataBackend,
		"model", invoker.Name(),
		"modelId", cfg.ModelID,
	)
	return &FileTaggerFunction{
		transfer: transfer,
		prompts:  prompts,
		store:    store,
		launcher: launcher,
		config:   cfg,
	}, nil
}

// Process downloads the object, asks the model for its metadata and stores the
// record under the object's URI. Unsupported file types are skipped.
func (f *FileTaggerFunction) Process(ctx context.Context, req models.FileTagRequest) (*models.FileTagResponse, error) {
	fileName := objectstore.URI(f.transfer.Scheme(), req.Bucket, req.Key)
	logCtx := slog.With("fileName", fileName)
	logCtx.Info("Processing new object.")

	if !llm.IsSupported(req.Key) {
		logCtx.Info("Skipping unsupported file.")
		return &models.FileTagResponse{Status: StatusSkipped, FileName: fileName}, nil
	}

	tempDir, err := os.MkdirTemp(f.config.LocalWorkDir, "file-tagger-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	dataFile, err := f.transfer.DownloadObject(ctx, tempDir, req.Bucket, req.Key)
	if errors.Is(err, objectstore.ErrObjectNotFound) {
		logCtx.Error("Object not found.")
		return nil, fmt.Errorf("%w: object %s does not exist", ErrInvalidRequest, fileName)
	}
	if err != nil {
		logCtx.Error("Failed to download object", "error", err)
		return nil, err
	}

	metadataJSON, err := f.prompts.Process(ctx, f.config.ModelID, f.config.TemplatesDir, f.config.SystemTemplate, f.config.UserTemplate, dataFile)
	if err != nil {
		logCtx.Error("Failed to generate metadata", "error", err)
		return nil, err
	}
	if err := objectstore.DeleteLocalFile(dataFile); err != nil {
		logCtx.Warn("Failed to delete local copy", "path", dataFile, "error", err)
	}
	if err := f.store.Write(ctx, f.config.MetadataTable, fileName, metadataJSON); err != nil {
		logCtx.Error("Failed to store metadata", "error", err)
		return nil, err
	}

	if f.launcher != nil {
		payload := map[string]string{"fileName": fileName, "metadataTable": f.config.MetadataTable}
		if _, err := f.launcher.Launch(ctx, payload); err != nil {
			return nil, err
		}
	}

	logCtx.Info("File tagged.")
	return &models.FileTagResponse{
		Status:   StatusTagged,
		FileName: fileName,
		Metadata: json.RawMessage(metadataJSON),
	}, nil
}
