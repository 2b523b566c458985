package models

// CustomOutputMatch marks a segment where a blueprint was applied and a custom output written.
const CustomOutputMatch = "MATCH"

// JobMetadata mirrors job_metadata.json written by a data automation invocation.
type JobMetadata struct {
	JobID          string           `json:"job_id"`
	JobStatus      string           `json:"job_status"`
	OutputMetadata []OutputMetadata `json:"output_metadata"`
}

// OutputMetadata describes one input asset of the invocation.
type OutputMetadata struct {
	AssetID         int               `json:"asset_id"`
	SegmentMetadata []SegmentMetadata `json:"segment_metadata"`
}

// SegmentMetadata points at the result files for one segment.
type SegmentMetadata struct {
	StandardOutputPath string `json:"standard_output_path"`
	CustomOutputStatus string `json:"custom_output_status"`
	CustomOutputPath   string `json:"custom_output_path,omitempty"`
}

// StandardOutput holds the fields we read from a standard output result.
// Exactly one of Document or Image is set for the modalities we tag.
type StandardOutput struct {
	Document *StandardOutputSummary `json:"document,omitempty"`
	Image    *StandardOutputSummary `json:"image,omitempty"`
}

// StandardOutputSummary carries the generative fields of a modality.
type StandardOutputSummary struct {
	Description string `json:"description"`
	Summary     string `json:"summary"`
}

// CustomOutput holds the blueprint-driven extraction result.
type CustomOutput struct {
	InferenceResult CustomInferenceResult `json:"inference_result"`
}

// CustomInferenceResult holds the fields defined by the PII blueprint.
type CustomInferenceResult struct {
	PIIIndicator   any    `json:"pii_indicator"`
	PIIExplanation string `json:"pii_explanation"`
}
