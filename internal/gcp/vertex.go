package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// VertexClient hands out Gemini models configured for metadata extraction.
type VertexClient struct {
	baseClient *genai.Client
}

// NewVertexClient creates a Vertex AI client for the given project and region.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &VertexClient{baseClient: baseClient}, nil
}

// Model returns modelID with the system prompts installed as its system
// instruction and a deterministic generation config.
func (c *VertexClient) Model(modelID string, systemPrompts []string) *genai.GenerativeModel {
	model := c.baseClient.GenerativeModel(modelID)
	if len(systemPrompts) > 0 {
		parts := make([]genai.Part, 0, len(systemPrompts))
		for _, p := range systemPrompts {
			parts = append(parts, genai.Text(p))
		}
		model.SystemInstruction = &genai.Content{Parts: parts}
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}
	// PII-bearing documents must not be blocked.
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}
	return model
}

// GenerateContent runs a single-turn request against modelID.
func (c *VertexClient) GenerateContent(ctx context.Context, modelID string, systemPrompts []string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	return c.Model(modelID, systemPrompts).GenerateContent(ctx, parts...)
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
