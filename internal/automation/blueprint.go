package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation/types"

	"github.com/Lllllllleong/documentmetadataflow/internal/poll"
)

// BlueprintType is the modality a blueprint applies to.
type BlueprintType = types.Type

const (
	BlueprintTypeDocument BlueprintType = types.TypeDocument
	BlueprintTypeImage    BlueprintType = types.TypeImage
)

const piiIndicatorInstruction = "Does this document contain PII information or not? If it contains PII, then set this to true. " +
	"If it does not contain PII, then set this to false. If you cannot determine it to be either true or false, then, set this value to None."

// BlueprintSpec names a blueprint and the document class it extracts PII fields from.
type BlueprintSpec struct {
	Name          string
	Type          BlueprintType
	Description   string
	DocumentClass string
}

// Provisioner creates, looks up and deletes data automation blueprints and projects.
type Provisioner struct {
	client BuildtimeAPI
	policy poll.Policy
}

func NewProvisioner(client BuildtimeAPI, policy poll.Policy) *Provisioner {
	return &Provisioner{client: client, policy: policy}
}

// BlueprintSchema returns the fixed two-field PII schema attached to every blueprint.
func BlueprintSchema(description, documentClass string) (string, error) {
	schema := map[string]any{
		"$schema":       "http://json-schema.org/draft-07/schema#",
		"description":   description,
		"documentClass": documentClass,
		"type":          "object",
		"properties": map[string]any{
			"pii_indicator": map[string]any{
				"type":          "boolean",
				"inferenceType": "extractive",
				"description":   piiIndicatorInstruction,
			},
			"pii_explanation": map[string]any{
				"type":          "string",
				"inferenceType": "extractive",
				"description":   "Explanation for the presence or absence of PII information.",
			},
		},
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return "", fmt.Errorf("failed to encode blueprint schema: %w", err)
	}
	return string(b), nil
}

// EnsureBlueprint returns the ARN of the blueprint named spec.Name, creating it at
// the LIVE stage when no blueprint has that name.
func (p *Provisioner) EnsureBlueprint(ctx context.Context, spec BlueprintSpec) (Resource, error) {
	logCtx := slog.With("blueprint", spec.Name, "type", spec.Type)

	arn, found, err := p.findBlueprint(ctx, spec.Name)
	if err != nil {
		logCtx.Error("Failed to list blueprints", "error", err)
		return Resource{}, err
	}
	if found {
		logCtx.Info("Blueprint exists and is ready to use. Blueprint creation ignored.", "blueprintArn", arn)
		return Resource{ARN: arn, State: StateExisting}, nil
	}
	logCtx.Info("Blueprint does not exist.")

	schema, err := BlueprintSchema(spec.Description, spec.DocumentClass)
	if err != nil {
		return Resource{}, err
	}
	logCtx.Info("Creating blueprint.")
	out, err := p.client.CreateBlueprint(ctx, &bedrockdataautomation.CreateBlueprintInput{
		BlueprintName:  aws.String(spec.Name),
		Type:           spec.Type,
		BlueprintStage: types.BlueprintStageLive,
		Schema:         aws.String(schema),
	})
	if err != nil {
		logCtx.Error("Failed to create blueprint", "error", err)
		return Resource{}, fmt.Errorf("failed to create blueprint %s: %w", spec.Name, err)
	}
	arn = aws.ToString(out.Blueprint.BlueprintArn)
	logCtx.Info("Completed creating blueprint.", "blueprintArn", arn)
	return Resource{ARN: arn, State: StateCreated}, nil
}

func (p *Provisioner) findBlueprint(ctx context.Context, name string) (string, bool, error) {
	paginator := bedrockdataautomation.NewListBlueprintsPaginator(p.client, &bedrockdataautomation.ListBlueprintsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", false, fmt.Errorf("failed to list blueprints: %w", err)
		}
		for _, bp := range page.Blueprints {
			if aws.ToString(bp.BlueprintName) == name {
				return aws.ToString(bp.BlueprintArn), true, nil
			}
		}
	}
	return "", false, nil
}

// EnsureBlueprintVersion checks that the blueprint exists and resolves a version.
// With an empty versionARN nothing is created and the base ARN comes back as
// StateBaseOnly. With a versionARN the existing version is returned, or a new
// version is created when the blueprint has none. A missing blueprint yields ErrNotFound.
func (p *Provisioner) EnsureBlueprintVersion(ctx context.Context, blueprintARN, versionARN string) (Resource, error) {
	logCtx := slog.With("blueprintArn", blueprintARN)

	input := &bedrockdataautomation.GetBlueprintInput{
		BlueprintArn:   aws.String(blueprintARN),
		BlueprintStage: types.BlueprintStageLive,
	}
	if versionARN != "" {
		input.BlueprintVersion = aws.String(versionARN)
	}
	out, err := p.client.GetBlueprint(ctx, input)
	if err != nil {
		if isResourceNotFound(err) {
			logCtx.Info("Blueprint does not exist.")
			return Resource{}, fmt.Errorf("blueprint %s: %w", blueprintARN, ErrNotFound)
		}
		logCtx.Error("Failed to get blueprint", "error", err)
		return Resource{}, fmt.Errorf("failed to get blueprint %s: %w", blueprintARN, err)
	}
	logCtx.Info("Blueprint exists and is ready to use.")

	if versionARN == "" {
		return Resource{ARN: blueprintARN, State: StateBaseOnly}, nil
	}
	if out.Blueprint != nil && aws.ToString(out.Blueprint.BlueprintVersion) != "" {
		version := aws.ToString(out.Blueprint.BlueprintVersion)
		logCtx.Info("Blueprint version exists. Blueprint version creation ignored.", "version", version)
		return Resource{ARN: version, State: StateExisting}, nil
	}
	logCtx.Info("No versions exist in blueprint.")

	logCtx.Info("Creating a version of the blueprint.")
	created, err := p.client.CreateBlueprintVersion(ctx, &bedrockdataautomation.CreateBlueprintVersionInput{
		BlueprintArn: aws.String(blueprintARN),
	})
	if err != nil {
		logCtx.Error("Failed to create blueprint version", "error", err)
		return Resource{}, fmt.Errorf("failed to create version of blueprint %s: %w", blueprintARN, err)
	}
	version := aws.ToString(created.Blueprint.BlueprintVersion)
	logCtx.Info("Completed creating a version of the blueprint.", "version", version)
	return Resource{ARN: version, State: StateCreated}, nil
}

// DeleteBlueprint deletes the blueprint, or only versionARN when it is set.
func (p *Provisioner) DeleteBlueprint(ctx context.Context, blueprintARN, versionARN string) error {
	logCtx := slog.With("blueprintArn", blueprintARN)

	input := &bedrockdataautomation.DeleteBlueprintInput{BlueprintArn: aws.String(blueprintARN)}
	if versionARN != "" {
		input.BlueprintVersion = aws.String(versionARN)
		logCtx = logCtx.With("version", versionARN)
	}
	logCtx.Info("Deleting blueprint.")
	if _, err := p.client.DeleteBlueprint(ctx, input); err != nil {
		logCtx.Error("Failed to delete blueprint", "error", err)
		return fmt.Errorf("failed to delete blueprint %s: %w", blueprintARN, err)
	}
	logCtx.Info("Completed deleting blueprint.")
	return nil
}
