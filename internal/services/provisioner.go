package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/documentmetadataflow/internal/automation"
	"github.com/Lllllllleong/documentmetadataflow/internal/config"
	"github.com/Lllllllleong/documentmetadataflow/internal/models"
	"github.com/Lllllllleong/documentmetadataflow/internal/objectstore"
	"github.com/Lllllllleong/documentmetadataflow/internal/poll"
)

const (
	StatusProvisioned = "PROVISIONED"
	// StatusTablePending means everything else is ready but the table did not
	// become ACTIVE within the poll budget.
	StatusTablePending = "TABLE_PENDING"
	StatusDeleted      = "DELETED"
)

type ProvisionerConfig struct {
	TableName         string
	ProjectName       string
	DocumentBlueprint models.BlueprintRequest
	ImageBlueprint    models.BlueprintRequest
}

type tableProvisioner interface {
	EnsureTable(ctx context.Context, name string) error
	DeleteTable(ctx context.Context, name string) error
}

type objectCleaner interface {
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}

type automationProvisioner interface {
	EnsureBlueprint(ctx context.Context, spec automation.BlueprintSpec) (automation.Resource, error)
	EnsureBlueprintVersion(ctx context.Context, blueprintARN, versionARN string) (automation.Resource, error)
	DeleteBlueprint(ctx context.Context, blueprintARN, versionARN string) error
	EnsureProject(ctx context.Context, spec automation.ProjectSpec) (automation.Resource, error)
	DeleteProject(ctx context.Context, projectARN string) error
}

// ProvisionerFunction creates and tears down the metadata table and the data
// automation blueprints and project.
type ProvisionerFunction struct {
	tables     tableProvisioner
	automation automationProvisioner
	objects    objectCleaner
	config     ProvisionerConfig
}

func NewProvisioner(ctx context.Context) (*ProvisionerFunction, error) {
	cfg := ProvisionerConfig{
		TableName:   config.GetEnv("METADATA_TABLE", "file-metadata"),
		ProjectName: config.GetEnv("BDA_PROJECT_NAME", "file-metadata-tagging"),
		DocumentBlueprint: models.BlueprintRequest{
			Name:          config.GetEnv("DOCUMENT_BLUEPRINT_NAME", "document-pii-blueprint"),
			Description:   "Blueprint to detect PII in documents",
			DocumentClass: "generic-document",
		},
		ImageBlueprint: models.BlueprintRequest{
			Name:          config.GetEnv("IMAGE_BLUEPRINT_NAME", "image-pii-blueprint"),
			Description:   "Blueprint to detect PII in images",
			DocumentClass: "generic-image",
		},
	}
	backendCfg, err := LoadBackendConfig()
	if err != nil {
		return nil, err
	}
	b := newBackends(backendCfg)

	tables, err := b.tableProvisioner(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create table provisioner: %w", err)
	}
	clients, err := b.awsClients(ctx)
	if err != nil {
		return nil, err
	}
	objects, err := b.s3Transfer(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("Provisioner initialized.", "metadataBackend", backendCfg.MetadataBackend, "region", clients.Config.Region)
	return &ProvisionerFunction{
		tables:     tables,
		automation: automation.NewProvisioner(clients.DataAutomation, backendCfg.Poll),
		objects:    objects,
		config:     cfg,
	}, nil
}

// Process ensures the table, both blueprints (and versions, when requested) and
// the project. Every step is idempotent, so a retried request converges.
func (f *ProvisionerFunction) Process(ctx context.Context, req *models.ProvisionRequest) (*models.ProvisionResponse, error) {
	tableName := firstNonEmpty(req.TableName, f.config.TableName)
	projectName := firstNonEmpty(req.ProjectName, f.config.ProjectName)
	docReq := withDefaults(req.DocumentBlueprint, f.config.DocumentBlueprint)
	imgReq := withDefaults(req.ImageBlueprint, f.config.ImageBlueprint)
	logCtx := slog.With("table", tableName, "project", projectName)
	logCtx.Info("Starting provisioning.")

	resp := &models.ProvisionResponse{Status: StatusProvisioned, TableName: tableName}

	if err := f.tables.EnsureTable(ctx, tableName); err != nil {
		if !errors.Is(err, poll.ErrTimedOut) {
			return nil, err
		}
		logCtx.Warn("Continuing while the table is still being created.")
		resp.Status = StatusTablePending
	}

	docARN, docVersion, err := f.ensureBlueprint(ctx, docReq, automation.BlueprintTypeDocument)
	if err != nil {
		return nil, err
	}
	imgARN, imgVersion, err := f.ensureBlueprint(ctx, imgReq, automation.BlueprintTypeImage)
	if err != nil {
		return nil, err
	}
	resp.DocumentBlueprintArn, resp.DocumentBlueprintVersionArn = docARN, docVersion
	resp.ImageBlueprintArn, resp.ImageBlueprintVersionArn = imgARN, imgVersion

	project, err := f.automation.EnsureProject(ctx, automation.ProjectSpec{
		Name:                     projectName,
		DocumentBlueprintARN:     docARN,
		DocumentBlueprintVersion: docVersion,
		ImageBlueprintARN:        imgARN,
		ImageBlueprintVersion:    imgVersion,
	})
	if err != nil {
		return nil, err
	}
	resp.ProjectArn = project.ARN

	logCtx.Info("Provisioning complete.", "status", resp.Status, "projectArn", resp.ProjectArn)
	return resp, nil
}

// ensureBlueprint returns the blueprint ARN and, when a version was requested,
// the resolved version ARN.
func (f *ProvisionerFunction) ensureBlueprint(ctx context.Context, req models.BlueprintRequest, kind automation.BlueprintType) (string, string, error) {
	bp, err := f.automation.EnsureBlueprint(ctx, automation.BlueprintSpec{
		Name:          req.Name,
		Type:          kind,
		Description:   req.Description,
		DocumentClass: req.DocumentClass,
	})
	if err != nil {
		return "", "", err
	}
	version, err := f.automation.EnsureBlueprintVersion(ctx, bp.ARN, req.VersionArn)
	if err != nil {
		return "", "", err
	}
	if version.State == automation.StateBaseOnly {
		return bp.ARN, "", nil
	}
	return bp.ARN, version.ARN, nil
}

// Teardown deletes whatever the request names: the project first, since it
// references the blueprints, then the blueprints, then automation output, then
// the table.
func (f *ProvisionerFunction) Teardown(ctx context.Context, req *models.TeardownRequest) (*models.TeardownResponse, error) {
	if req.OutputBucket != "" && req.OutputPrefix == "" {
		return nil, fmt.Errorf("%w: outputPrefix is required with outputBucket", ErrInvalidRequest)
	}
	resp := &models.TeardownResponse{Status: StatusDeleted, Deleted: []string{}}

	if req.ProjectArn != "" {
		if err := f.automation.DeleteProject(ctx, req.ProjectArn); err != nil {
			return nil, err
		}
		resp.Deleted = append(resp.Deleted, req.ProjectArn)
	}
	for _, bp := range []struct{ arn, version string }{
		{req.DocumentBlueprintArn, req.DocumentBlueprintVersionArn},
		{req.ImageBlueprintArn, req.ImageBlueprintVersionArn},
	} {
		if bp.arn == "" {
			continue
		}
		if err := f.automation.DeleteBlueprint(ctx, bp.arn, bp.version); err != nil {
			return nil, err
		}
		resp.Deleted = append(resp.Deleted, firstNonEmpty(bp.version, bp.arn))
	}
	if req.OutputBucket != "" {
		deleted, err := f.deleteOutput(ctx, req.OutputBucket, req.OutputPrefix)
		if err != nil {
			return nil, err
		}
		resp.Deleted = append(resp.Deleted, deleted...)
	}
	if req.TableName != "" {
		if err := f.tables.DeleteTable(ctx, req.TableName); err != nil {
			return nil, err
		}
		resp.Deleted = append(resp.Deleted, req.TableName)
	}
	if len(resp.Deleted) == 0 {
		return nil, fmt.Errorf("%w: nothing to delete", ErrInvalidRequest)
	}

	slog.Info("Teardown complete.", "deleted", resp.Deleted)
	return resp, nil
}

// deleteOutput removes every object under prefix and returns their URIs.
func (f *ProvisionerFunction) deleteOutput(ctx context.Context, bucket, prefix string) ([]string, error) {
	keys, err := f.objects.List(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}
	deleted := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := f.objects.DeleteObject(ctx, bucket, key); err != nil {
			return nil, err
		}
		deleted = append(deleted, objectstore.URI(objectstore.SchemeS3, bucket, key))
	}
	slog.Info("Deleted automation output.", "bucket", bucket, "prefix", prefix, "objectCount", len(deleted))
	return deleted, nil
}

func withDefaults(req, defaults models.BlueprintRequest) models.BlueprintRequest {
	return models.BlueprintRequest{
		Name:          firstNonEmpty(req.Name, defaults.Name),
		Description:   firstNonEmpty(req.Description, defaults.Description),
		DocumentClass: firstNonEmpty(req.DocumentClass, defaults.DocumentClass),
		VersionArn:    req.VersionArn,
	}
}
