package models

// TimestampLayout is the create_date_time format, always in local time.
const TimestampLayout = "2006-01-02 15:04:05"

// PIIIndicatorUnknown is stored when no blueprint matched and PII presence was not assessed.
const PIIIndicatorUnknown = "None"

// FileMetadata is the normalized record persisted per source file.
// The metadata table keys it by the file's full storage URI.
type FileMetadata struct {
	Description string `json:"description"`
	Summary     string `json:"summary"`
	// PIIIndicator is true, false, or PIIIndicatorUnknown.
	PIIIndicator   any    `json:"pii_indicator"`
	PIIExplanation string `json:"pii_explanation"`
	Comments       string `json:"comments"`
	CreateDateTime string `json:"create_date_time"`
}

// FileMetadataSchema describes the record the prompt path expects back from a model.
// Extra properties are allowed; the model may return more than we store.
var FileMetadataSchema = map[string]any{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type":    "object",
	"required": []any{
		"description", "summary", "pii_indicator", "pii_explanation",
	},
	"properties": map[string]any{
		"description":     map[string]any{"type": "string"},
		"summary":         map[string]any{"type": "string"},
		"pii_indicator":   map[string]any{"type": []any{"boolean", "string", "null"}},
		"pii_explanation": map[string]any{"type": "string"},
	},
}
