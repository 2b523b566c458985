package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation/types"

	"github.com/Lllllllleong/documentmetadataflow/internal/poll"
)

// ProjectSpec names a project and the blueprints attached to it as custom output.
// Empty version fields attach the blueprint without pinning a version.
type ProjectSpec struct {
	Name                     string
	DocumentBlueprintARN     string
	DocumentBlueprintVersion string
	ImageBlueprintARN        string
	ImageBlueprintVersion    string
}

// EnsureProject returns the ARN of the project named spec.Name, creating it at the
// LIVE stage when it does not exist. A creation that is neither COMPLETED nor FAILED
// is followed by polling the project listing until the name shows up.
func (p *Provisioner) EnsureProject(ctx context.Context, spec ProjectSpec) (Resource, error) {
	logCtx := slog.With("project", spec.Name)

	arn, found, err := p.findProject(ctx, spec.Name)
	if err != nil {
		logCtx.Error("Failed to list projects", "error", err)
		return Resource{}, err
	}
	if found {
		logCtx.Info("Project exists and is ready to use. Project creation ignored.", "projectArn", arn)
		return Resource{ARN: arn, State: StateExisting}, nil
	}
	logCtx.Info("Project does not exist.")

	logCtx.Info("Creating project.")
	out, err := p.client.CreateDataAutomationProject(ctx, &bedrockdataautomation.CreateDataAutomationProjectInput{
		ProjectName:                 aws.String(spec.Name),
		ProjectDescription:          aws.String("BDA project for " + spec.Name),
		ProjectStage:                types.DataAutomationProjectStageLive,
		StandardOutputConfiguration: standardOutputConfiguration(),
		CustomOutputConfiguration: &types.CustomOutputConfiguration{
			Blueprints: []types.BlueprintItem{
				blueprintItem(spec.DocumentBlueprintARN, spec.DocumentBlueprintVersion),
				blueprintItem(spec.ImageBlueprintARN, spec.ImageBlueprintVersion),
			},
		},
	})
	if err != nil {
		logCtx.Error("Failed to create project", "error", err)
		return Resource{}, fmt.Errorf("failed to create project %s: %w", spec.Name, err)
	}

	switch out.Status {
	case types.DataAutomationProjectStatusCompleted:
		logCtx.Info("Project created successfully and is ready to use.")
		return Resource{ARN: aws.ToString(out.ProjectArn), State: StateCreated}, nil
	case types.DataAutomationProjectStatusFailed:
		logCtx.Error("Project creation failed.")
		return Resource{}, fmt.Errorf("project %s: %w", spec.Name, ErrProjectFailed)
	}

	err = poll.Until(ctx, p.policy, func(ctx context.Context, _ int) (bool, error) {
		var listErr error
		arn, found, listErr = p.findProject(ctx, spec.Name)
		return found, listErr
	})
	if errors.Is(err, poll.ErrTimedOut) {
		logCtx.Warn("Project creation status unknown. Status check exited.")
		return Resource{}, err
	}
	if err != nil {
		logCtx.Error("Failed while waiting for project", "error", err)
		return Resource{}, err
	}
	logCtx.Info("Project created successfully and is ready to use.", "projectArn", arn)
	return Resource{ARN: arn, State: StateCreated}, nil
}

func (p *Provisioner) findProject(ctx context.Context, name string) (string, bool, error) {
	paginator := bedrockdataautomation.NewListDataAutomationProjectsPaginator(p.client, &bedrockdataautomation.ListDataAutomationProjectsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", false, fmt.Errorf("failed to list projects: %w", err)
		}
		for _, project := range page.Projects {
			if aws.ToString(project.ProjectName) == name {
				return aws.ToString(project.ProjectArn), true, nil
			}
		}
	}
	return "", false, nil
}

// DeleteProject deletes the project and waits until it can no longer be fetched.
func (p *Provisioner) DeleteProject(ctx context.Context, projectARN string) error {
	logCtx := slog.With("projectArn", projectARN)
	logCtx.Info("Deleting project.")

	if _, err := p.client.DeleteDataAutomationProject(ctx, &bedrockdataautomation.DeleteDataAutomationProjectInput{
		ProjectArn: aws.String(projectARN),
	}); err != nil {
		logCtx.Error("Failed to delete project", "error", err)
		return fmt.Errorf("failed to delete project %s: %w", projectARN, err)
	}

	err := poll.Until(ctx, p.policy, func(ctx context.Context, _ int) (bool, error) {
		_, err := p.client.GetDataAutomationProject(ctx, &bedrockdataautomation.GetDataAutomationProjectInput{
			ProjectArn:   aws.String(projectARN),
			ProjectStage: types.DataAutomationProjectStageLive,
		})
		switch {
		case err == nil:
			return false, nil
		case isResourceNotFound(err):
			return true, nil
		default:
			return false, fmt.Errorf("failed to get project %s: %w", projectARN, err)
		}
	})
	if errors.Is(err, poll.ErrTimedOut) {
		logCtx.Warn("Project deletion status unknown. Status check exited.")
		return err
	}
	if err != nil {
		logCtx.Error("Failed while waiting for project deletion", "error", err)
		return err
	}
	logCtx.Info("Project does not exist.")
	return nil
}

func blueprintItem(arn, version string) types.BlueprintItem {
	item := types.BlueprintItem{BlueprintArn: aws.String(arn), BlueprintStage: types.BlueprintStageLive}
	if version != "" {
		item.BlueprintVersion = aws.String(version)
	}
	return item
}

// standardOutputConfiguration asks for document-level plain text plus generated
// summaries for every modality, with extraction categories and bounding boxes off.
func standardOutputConfiguration() *types.StandardOutputConfiguration {
	return &types.StandardOutputConfiguration{
		Document: &types.DocumentStandardOutputConfiguration{
			Extraction: &types.DocumentStandardExtraction{
				Granularity: &types.DocumentExtractionGranularity{
					Types: []types.DocumentExtractionGranularityType{types.DocumentExtractionGranularityTypeDocument},
				},
				BoundingBox: &types.DocumentBoundingBox{State: types.StateDisabled},
			},
			GenerativeField: &types.DocumentStandardGenerativeField{State: types.StateEnabled},
			OutputFormat: &types.DocumentOutputFormat{
				TextFormat: &types.DocumentOutputTextFormat{
					Types: []types.DocumentOutputTextFormatType{types.DocumentOutputTextFormatTypePlainText},
				},
				AdditionalFileFormat: &types.DocumentOutputAdditionalFileFormat{State: types.StateDisabled},
			},
		},
		Image: &types.ImageStandardOutputConfiguration{
			Extraction: &types.ImageStandardExtraction{
				Category:    &types.ImageExtractionCategory{State: types.StateDisabled},
				BoundingBox: &types.ImageBoundingBox{State: types.StateDisabled},
			},
			GenerativeField: &types.ImageStandardGenerativeField{
				State: types.StateEnabled,
				Types: []types.ImageStandardGenerativeFieldType{types.ImageStandardGenerativeFieldTypeImageSummary},
			},
		},
		Video: &types.VideoStandardOutputConfiguration{
			Extraction: &types.VideoStandardExtraction{
				Category:    &types.VideoExtractionCategory{State: types.StateDisabled},
				BoundingBox: &types.VideoBoundingBox{State: types.StateDisabled},
			},
			GenerativeField: &types.VideoStandardGenerativeField{
				State: types.StateEnabled,
				Types: []types.VideoStandardGenerativeFieldType{types.VideoStandardGenerativeFieldTypeVideoSummary},
			},
		},
		Audio: &types.AudioStandardOutputConfiguration{
			Extraction: &types.AudioStandardExtraction{
				Category: &types.AudioExtractionCategory{State: types.StateDisabled},
			},
			GenerativeField: &types.AudioStandardGenerativeField{
				State: types.StateEnabled,
				Types: []types.AudioStandardGenerativeFieldType{types.AudioStandardGenerativeFieldTypeAudioSummary},
			},
		},
	}
}
