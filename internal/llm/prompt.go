package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Lllllllleong/documentmetadataflow/internal/models"
)

// ErrInvalidModelOutput is returned when the model's answer is not a JSON object.
var ErrInvalidModelOutput = errors.New("model output is not a JSON object")

// PromptOptions tunes PromptProcessor.
type PromptOptions struct {
	// AugmentResponse parses the answer as JSON and stamps comments and
	// create_date_time. When false the fence-stripped answer is returned as is.
	AugmentResponse bool
	// MaxDocumentBytes caps PDF attachments; 0 uses DefaultMaxDocumentBytes.
	MaxDocumentBytes int
}

// DefaultPromptOptions augments responses and uses the Converse document limit.
func DefaultPromptOptions() PromptOptions {
	return PromptOptions{AugmentResponse: true, MaxDocumentBytes: DefaultMaxDocumentBytes}
}

// PromptProcessor turns a data file and two prompt templates into a metadata record.
type PromptProcessor struct {
	invoker Invoker
	opts    PromptOptions
	schema  *jsonschema.Schema
	now     func() time.Time
}

func NewPromptProcessor(invoker Invoker, opts PromptOptions) (*PromptProcessor, error) {
	if opts.MaxDocumentBytes <= 0 {
		opts.MaxDocumentBytes = DefaultMaxDocumentBytes
	}
	schema, err := compileSchema(models.FileMetadataSchema)
	if err != nil {
		return nil, err
	}
	return &PromptProcessor{invoker: invoker, opts: opts, schema: schema, now: time.Now}, nil
}

// Process reads the system and user templates from templatesDir verbatim, attaches
// the data file, invokes modelID and returns the answer. With AugmentResponse the
// answer is returned as a JSON metadata record.
func (p *PromptProcessor) Process(ctx context.Context, modelID, templatesDir, systemTemplateFile, userTemplateFile, dataFilePath string) (string, error) {
	logCtx := slog.With("modelId", modelID, "dataFile", dataFilePath)

	systemPrompt, err := os.ReadFile(filepath.Join(templatesDir, systemTemplateFile))
	if err != nil {
		return "", fmt.Errorf("failed to read system prompt template: %w", err)
	}
	userPrompt, err := os.ReadFile(filepath.Join(templatesDir, userTemplateFile))
	if err != nil {
		return "", fmt.Errorf("failed to read user prompt template: %w", err)
	}

	attachment, err := p.loadAttachment(dataFilePath)
	if err != nil {
		return "", err
	}
	logCtx.Info("Processing prompt.", "attachmentKind", attachment.Kind, "format", attachment.Format)

	resp, err := p.invoker.Invoke(ctx, Request{
		ModelID:       modelID,
		SystemPrompts: []string{string(systemPrompt)},
		UserPrompt:    string(userPrompt),
		Attachment:    attachment,
	})
	if err != nil {
		return "", err
	}

	answer := StripFences(resp.Text)
	if !p.opts.AugmentResponse {
		return answer, nil
	}
	return p.augment(logCtx, modelID, answer)
}

func (p *PromptProcessor) loadAttachment(dataFilePath string) (*Attachment, error) {
	name, ext := FileNameAndExtension(dataFilePath)
	ext = strings.ToLower(ext)

	data, err := os.ReadFile(dataFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	if IsImage(ext) {
		return &Attachment{Kind: AttachmentImage, Format: ext, Bytes: data}, nil
	}
	if ext == "pdf" {
		if data, err = PreflightPDF(data, p.opts.MaxDocumentBytes); err != nil {
			return nil, err
		}
	}
	return &Attachment{Kind: AttachmentDocument, Name: name, Format: ext, Bytes: data}, nil
}

func (p *PromptProcessor) augment(logCtx *slog.Logger, modelID, answer string) (string, error) {
	var record map[string]any
	if err := json.Unmarshal([]byte(answer), &record); err != nil {
		logCtx.Error("Model output is not valid JSON", "error", err, "response", answer)
		return "", fmt.Errorf("%w: %w", ErrInvalidModelOutput, err)
	}
	if record == nil {
		logCtx.Error("Model output is not a JSON object", "response", answer)
		return "", fmt.Errorf("%w: expected a JSON object, got %q", ErrInvalidModelOutput, answer)
	}
	if err := p.schema.Validate(record); err != nil {
		logCtx.Warn("Model output does not match the file metadata schema.", "error", err)
	}

	record["comments"] = fmt.Sprintf("Created using the LLM with id %q on %s.", modelID, p.invoker.Name())
	record["create_date_time"] = p.now().Format(models.TimestampLayout)

	b, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}

// StripFences removes a surrounding ```json / ``` fence and <output_format> tags.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<output_format>")
	s = strings.TrimSuffix(s, "</output_format>")
	return strings.TrimSpace(s)
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("file_metadata.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("file_metadata.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
