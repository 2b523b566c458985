package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// ErrEmptyResponse is returned when the model answered without a text block.
var ErrEmptyResponse = errors.New("model response has no text content")

// ConverseAPI is the subset of the Bedrock Runtime client used by BedrockInvoker.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockInvoker calls the Converse API with temperature 0 and no additional
// model request fields.
type BedrockInvoker struct {
	client            ConverseAPI
	logPromptResponse bool
}

func NewBedrockInvoker(client ConverseAPI, logPromptResponse bool) *BedrockInvoker {
	return &BedrockInvoker{client: client, logPromptResponse: logPromptResponse}
}

func (b *BedrockInvoker) Name() string { return "Amazon Bedrock" }

func (b *BedrockInvoker) Invoke(ctx context.Context, req Request) (*Response, error) {
	logCtx := slog.With("modelId", req.ModelID)
	inferenceConfig := &types.InferenceConfiguration{Temperature: aws.Float32(0)}
	logCtx.Info("Invoking LLM.", "temperature", 0, "additionalModelFields", nil)

	system := make([]types.SystemContentBlock, 0, len(req.SystemPrompts))
	for _, s := range req.SystemPrompts {
		system = append(system, &types.SystemContentBlockMemberText{Value: s})
	}
	content := []types.ContentBlock{&types.ContentBlockMemberText{Value: req.UserPrompt}}
	if req.Attachment != nil {
		content = append(content, converseAttachment(req.Attachment))
	}

	out, err := b.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(req.ModelID),
		System:          system,
		Messages:        []types.Message{{Role: types.ConversationRoleUser, Content: content}},
		InferenceConfig: inferenceConfig,
	})
	if err != nil {
		logCtx.Error("Call to Bedrock Converse failed", "error", err)
		return nil, fmt.Errorf("failed to invoke model %s: %w", req.ModelID, err)
	}
	logCtx.Info("Completed invoking LLM.")

	resp := &Response{StopReason: string(out.StopReason)}
	if out.Usage != nil {
		resp.InputTokens = int(aws.ToInt32(out.Usage.InputTokens))
		resp.OutputTokens = int(aws.ToInt32(out.Usage.OutputTokens))
		resp.TotalTokens = int(aws.ToInt32(out.Usage.TotalTokens))
	}
	if out.Metrics != nil {
		resp.Latency = time.Duration(aws.ToInt64(out.Metrics.LatencyMs)) * time.Millisecond
	}
	logUsage(logCtx, resp)

	text, err := firstConverseText(out.Output)
	if err != nil {
		logCtx.Error("No text in model response", "error", err, "stopReason", resp.StopReason)
		return nil, err
	}
	resp.Text = text

	if b.logPromptResponse {
		logCtx.Info("PROMPT", "prompt", req.UserPrompt)
		logCtx.Info("RESPONSE", "response", resp.Text)
	}
	return resp, nil
}

func converseAttachment(a *Attachment) types.ContentBlock {
	if a.Kind == AttachmentImage {
		return &types.ContentBlockMemberImage{Value: types.ImageBlock{
			Format: types.ImageFormat(a.Format),
			Source: &types.ImageSourceMemberBytes{Value: a.Bytes},
		}}
	}
	return &types.ContentBlockMemberDocument{Value: types.DocumentBlock{
		Name:   aws.String(a.Name),
		Format: types.DocumentFormat(a.Format),
		Source: &types.DocumentSourceMemberBytes{Value: a.Bytes},
	}}
}

func firstConverseText(output types.ConverseOutput) (string, error) {
	msg, ok := output.(*types.ConverseOutputMemberMessage)
	if !ok || len(msg.Value.Content) == 0 {
		return "", ErrEmptyResponse
	}
	text, ok := msg.Value.Content[0].(*types.ContentBlockMemberText)
	if !ok {
		return "", ErrEmptyResponse
	}
	return text.Value, nil
}

func logUsage(logCtx *slog.Logger, resp *Response) {
	logCtx.Info("Token usage.",
		"inputTokens", resp.InputTokens,
		"outputTokens", resp.OutputTokens,
		"totalTokens", resp.TotalTokens,
	)
	logCtx.Info("Stop reason.", "stopReason", resp.StopReason)
	logCtx.Info("Prompt latency.", "seconds", resp.Latency.Seconds())
}
