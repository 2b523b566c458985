package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/vertexai/genai"
)

// ContentGenerator runs a Gemini model configured with the given system prompts.
// *gcp.VertexClient satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, modelID string, systemPrompts []string, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// VertexInvoker calls Gemini on Vertex AI with the data file as an inline blob.
type VertexInvoker struct {
	models            ContentGenerator
	logPromptResponse bool
}

func NewVertexInvoker(models ContentGenerator, logPromptResponse bool) *VertexInvoker {
	return &VertexInvoker{models: models, logPromptResponse: logPromptResponse}
}

func (v *VertexInvoker) Name() string { return "Vertex AI" }

func (v *VertexInvoker) Invoke(ctx context.Context, req Request) (*Response, error) {
	logCtx := slog.With("modelId", req.ModelID)
	logCtx.Info("Invoking LLM.", "temperature", 0)

	parts := []genai.Part{genai.Text(req.UserPrompt)}
	if a := req.Attachment; a != nil {
		parts = append(parts, genai.Blob{MIMEType: MIMEType(a.Format), Data: a.Bytes})
	}

	start := time.Now()
	out, err := v.models.GenerateContent(ctx, req.ModelID, req.SystemPrompts, parts...)
	if err != nil {
		logCtx.Error("Call to Vertex AI failed", "error", err)
		return nil, fmt.Errorf("failed to generate content from %s: %w", req.ModelID, err)
	}
	logCtx.Info("Completed invoking LLM.")

	resp := &Response{Latency: time.Since(start)}
	if out.UsageMetadata != nil {
		resp.InputTokens = int(out.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int(out.UsageMetadata.CandidatesTokenCount)
		resp.TotalTokens = int(out.UsageMetadata.TotalTokenCount)
	}
	if len(out.Candidates) > 0 {
		resp.StopReason = out.Candidates[0].FinishReason.String()
	}
	logUsage(logCtx, resp)

	text, ok := firstGeminiText(out)
	if !ok {
		logCtx.Error("No text in model response", "stopReason", resp.StopReason)
		return nil, ErrEmptyResponse
	}
	resp.Text = text

	if v.logPromptResponse {
		logCtx.Info("PROMPT", "prompt", req.UserPrompt)
		logCtx.Info("RESPONSE", "response", resp.Text)
	}
	return resp, nil
}

func firstGeminiText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", false
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt), true
		}
	}
	return "", false
}
