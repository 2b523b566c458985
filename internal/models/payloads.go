package models

import "encoding/json"

// These structs define the JSON payloads for HTTP requests and responses
// handled by the function entry points.

// BlueprintRequest names a blueprint to ensure.
type BlueprintRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	DocumentClass string `json:"documentClass"`
	// VersionArn requests an explicit blueprint version; empty uses the base blueprint.
	VersionArn string `json:"versionArn,omitempty"`
}

// ProvisionRequest is the input for the provisioner function.
// Empty fields fall back to the function's configured defaults.
type ProvisionRequest struct {
	TableName         string           `json:"tableName"`
	ProjectName       string           `json:"projectName"`
	DocumentBlueprint BlueprintRequest `json:"documentBlueprint"`
	ImageBlueprint    BlueprintRequest `json:"imageBlueprint"`
}

// ProvisionResponse is the output of the provisioner function.
type ProvisionResponse struct {
	Status                      string `json:"status"`
	TableName                   string `json:"tableName"`
	DocumentBlueprintArn        string `json:"documentBlueprintArn"`
	DocumentBlueprintVersionArn string `json:"documentBlueprintVersionArn,omitempty"`
	ImageBlueprintArn           string `json:"imageBlueprintArn"`
	ImageBlueprintVersionArn    string `json:"imageBlueprintVersionArn,omitempty"`
	ProjectArn                  string `json:"projectArn"`
}

// TeardownRequest lists the resources the provisioner function should delete.
type TeardownRequest struct {
	TableName                   string `json:"tableName,omitempty"`
	ProjectArn                  string `json:"projectArn,omitempty"`
	DocumentBlueprintArn        string `json:"documentBlueprintArn,omitempty"`
	DocumentBlueprintVersionArn string `json:"documentBlueprintVersionArn,omitempty"`
	ImageBlueprintArn           string `json:"imageBlueprintArn,omitempty"`
	ImageBlueprintVersionArn    string `json:"imageBlueprintVersionArn,omitempty"`
	// OutputBucket and OutputPrefix name data automation output to remove.
	// A prefix is required whenever a bucket is given.
	OutputBucket string `json:"outputBucket,omitempty"`
	OutputPrefix string `json:"outputPrefix,omitempty"`
}

// TeardownResponse is the output of a teardown.
type TeardownResponse struct {
	Status  string   `json:"status"`
	Deleted []string `json:"deleted"`
}

// FileTagRequest identifies a stored object to tag through the prompt path.
type FileTagRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// FileTagResponse is the output of the file-tagger function.
type FileTagResponse struct {
	Status   string          `json:"status"`
	FileName string          `json:"fileName"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// AutomationTagRequest is the input for the automation-tagger function.
// InputFile is "<bucket>/<key>" without a scheme.
type AutomationTagRequest struct {
	InputFile    string `json:"inputFile"`
	OutputBucket string `json:"outputBucket,omitempty"`
	ProjectArn   string `json:"projectArn,omitempty"`
}

// AutomationTagResponse is the output of the automation-tagger function.
type AutomationTagResponse struct {
	Status       string          `json:"status"`
	InvocationID string          `json:"invocationId"`
	FileName     string          `json:"fileName"`
	Metadata     json.RawMessage `json:"metadata"`
}

// MetadataResponse is the output of the metadata-reader function.
type MetadataResponse struct {
	FileName string          `json:"fileName"`
	Metadata json.RawMessage `json:"metadata"`
}

// MetadataRequest is the input for the metadata-reader function.
// FileName is the full storage URI the record is keyed by.
type MetadataRequest struct {
	FileName string `json:"fileName"`
}
