// Package llm builds prompts around a data file, invokes a hosted model and
// turns its answer into a file metadata record.
package llm

import (
	"context"
	"time"
)

// AttachmentKind selects how a data file is attached to the prompt.
type AttachmentKind string

const (
	AttachmentDocument AttachmentKind = "document"
	AttachmentImage    AttachmentKind = "image"
)

// Attachment is a data file sent inline with the user prompt.
type Attachment struct {
	Kind AttachmentKind
	// Name is the file stem; only documents carry it.
	Name string
	// Format is the lowercased file extension.
	Format string
	Bytes  []byte
}

// Request is a single-turn prompt.
type Request struct {
	ModelID       string
	SystemPrompts []string
	UserPrompt    string
	Attachment    *Attachment
}

// Response is the model's first text answer plus telemetry.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	StopReason   string
	Latency      time.Duration
}

// Invoker sends a Request to a hosted model.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
	// Name identifies the hosting service in record comments.
	Name() string
}
