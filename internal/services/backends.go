package services

import (
	"context"
	"fmt"
	"log/slog"

	executions "cloud.google.com/go/workflows/executions/apiv1"

	awsclients "github.com/Lllllllleong/documentmetadataflow/internal/aws"
	"github.com/Lllllllleong/documentmetadataflow/internal/config"
	"github.com/Lllllllleong/documentmetadataflow/internal/gcp"
	"github.com/Lllllllleong/documentmetadataflow/internal/llm"
	"github.com/Lllllllleong/documentmetadataflow/internal/metadata"
	"github.com/Lllllllleong/documentmetadataflow/internal/objectstore"
	"github.com/Lllllllleong/documentmetadataflow/internal/poll"
)

const (
	ObjectStoreS3  = "s3"
	ObjectStoreGCS = "gcs"

	MetadataDynamoDB  = "dynamodb"
	MetadataFirestore = "firestore"

	ModelBedrock = "bedrock"
	ModelVertex  = "vertex"
)

// BackendConfig selects the cloud services behind each concern. It is shared by
// every function.
type BackendConfig struct {
	ObjectStore         string
	MetadataBackend     string
	ModelBackend        string
	ProjectID           string
	VertexRegion        string
	FirestoreDatabase   string
	DownloadConcurrency int
	Poll                poll.Policy
}

// LoadBackendConfig reads the backend selection and shared tuning from the environment.
func LoadBackendConfig() (BackendConfig, error) {
	cfg := BackendConfig{
		ObjectStore:       config.GetEnv("OBJECT_STORE", ObjectStoreS3),
		MetadataBackend:   config.GetEnv("METADATA_BACKEND", MetadataDynamoDB),
		ModelBackend:      config.GetEnv("MODEL_BACKEND", ModelBedrock),
		ProjectID:         config.GetEnv("GOOGLE_CLOUD_PROJECT_ID", ""),
		VertexRegion:      config.GetEnv("VERTEX_AI_REGION", "us-central1"),
		FirestoreDatabase: config.GetEnv("FIRESTORE_DATABASE", ""),
	}
	switch cfg.ObjectStore {
	case ObjectStoreS3, ObjectStoreGCS:
	default:
		return BackendConfig{}, fmt.Errorf("OBJECT_STORE must be %q or %q, got %q", ObjectStoreS3, ObjectStoreGCS, cfg.ObjectStore)
	}
	switch cfg.MetadataBackend {
	case MetadataDynamoDB, MetadataFirestore:
	default:
		return BackendConfig{}, fmt.Errorf("METADATA_BACKEND must be %q or %q, got %q", MetadataDynamoDB, MetadataFirestore, cfg.MetadataBackend)
	}
	switch cfg.ModelBackend {
	case ModelBedrock, ModelVertex:
	default:
		return BackendConfig{}, fmt.Errorf("MODEL_BACKEND must be %q or %q, got %q", ModelBedrock, ModelVertex, cfg.ModelBackend)
	}
	if cfg.ProjectID == "" && (cfg.ObjectStore == ObjectStoreGCS || cfg.MetadataBackend == MetadataFirestore || cfg.ModelBackend == ModelVertex) {
		return BackendConfig{}, fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID must be set for Google Cloud backends")
	}

	var err error
	if cfg.DownloadConcurrency, err = config.GetEnvInt("DOWNLOAD_CONCURRENCY", objectstore.DefaultConcurrency); err != nil {
		return BackendConfig{}, err
	}
	cfg.Poll = poll.DefaultPolicy()
	if cfg.Poll.Interval, err = config.GetEnvDuration("POLL_INTERVAL", poll.DefaultInterval); err != nil {
		return BackendConfig{}, err
	}
	if cfg.Poll.MaxAttempts, err = config.GetEnvInt("POLL_MAX_ATTEMPTS", poll.DefaultMaxAttempts); err != nil {
		return BackendConfig{}, err
	}
	return cfg, nil
}

// backends creates clients for the configured services on first use.
type backends struct {
	cfg BackendConfig
	aws *awsclients.Clients
	gcs objectstore.Store
}

func newBackends(cfg BackendConfig) *backends {
	return &backends{cfg: cfg}
}

func (b *backends) awsClients(ctx context.Context) (*awsclients.Clients, error) {
	if b.aws == nil {
		clients, err := awsclients.NewClients(ctx)
		if err != nil {
			return nil, err
		}
		b.aws = clients
	}
	return b.aws, nil
}

func (b *backends) s3Transfer(ctx context.Context) (*objectstore.Transfer, error) {
	clients, err := b.awsClients(ctx)
	if err != nil {
		return nil, err
	}
	return objectstore.NewTransfer(objectstore.NewS3Store(clients.S3), b.cfg.DownloadConcurrency), nil
}

func (b *backends) transfer(ctx context.Context) (*objectstore.Transfer, error) {
	if b.cfg.ObjectStore == ObjectStoreS3 {
		return b.s3Transfer(ctx)
	}
	if b.gcs == nil {
		store, _, err := gcp.NewGCSStore(ctx)
		if err != nil {
			return nil, err
		}
		b.gcs = store
	}
	return objectstore.NewTransfer(b.gcs, b.cfg.DownloadConcurrency), nil
}

func (b *backends) metadataStore(ctx context.Context) (metadata.Store, error) {
	if b.cfg.MetadataBackend == MetadataFirestore {
		client, err := gcp.NewFirestoreClient(ctx, b.cfg.ProjectID, b.cfg.FirestoreDatabase)
		if err != nil {
			return nil, err
		}
		return metadata.NewFirestoreStore(client), nil
	}
	clients, err := b.awsClients(ctx)
	if err != nil {
		return nil, err
	}
	return metadata.NewDynamoStore(clients.DynamoDB), nil
}

func (b *backends) tableProvisioner(ctx context.Context) (tableProvisioner, error) {
	if b.cfg.MetadataBackend == MetadataFirestore {
		client, err := gcp.NewFirestoreClient(ctx, b.cfg.ProjectID, b.cfg.FirestoreDatabase)
		if err != nil {
			return nil, err
		}
		return metadata.NewCollectionProvisioner(client), nil
	}
	clients, err := b.awsClients(ctx)
	if err != nil {
		return nil, err
	}
	return metadata.NewTableProvisioner(clients.DynamoDB, b.cfg.Poll), nil
}

func (b *backends) invoker(ctx context.Context, logPromptResponse bool) (llm.Invoker, error) {
	if b.cfg.ModelBackend == ModelVertex {
		client, err := gcp.NewVertexClient(ctx, b.cfg.ProjectID, b.cfg.VertexRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to create vertex client: %w", err)
		}
		return llm.NewVertexInvoker(client, logPromptResponse), nil
	}
	clients, err := b.awsClients(ctx)
	if err != nil {
		return nil, err
	}
	return llm.NewBedrockInvoker(clients.BedrockRuntime, logPromptResponse), nil
}

// workflowLauncher returns nil when no workflow is configured.
func (b *backends) workflowLauncher(ctx context.Context, location, workflowID string) (workflowLauncher, error) {
	if workflowID == "" {
		return nil, nil
	}
	if b.cfg.ProjectID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID must be set when WORKFLOW_ID is set")
	}
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	slog.Info("Workflow hand-off enabled.", "workflowId", workflowID, "location", location)
	return gcp.NewWorkflowLauncher(client, b.cfg.ProjectID, location, workflowID), nil
}
