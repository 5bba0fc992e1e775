package llm

import (
	"context"
	"errors"

	"grounded-meal-planner/internal/shared"
)

var (
	// ErrNoContent is returned when a provider answers without any text.
	ErrNoContent = errors.New("no content generated")
	// ErrUnparseable is returned when model output cannot be coerced into JSON.
	ErrUnparseable = errors.New("unparseable model output")
)

// GenerateOptions tunes a single completion call.
type GenerateOptions struct {
	Temperature float32
	// JSON asks the provider for a JSON object response when it supports it.
	JSON bool
}

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string, opts GenerateOptions) (ContentResponse, error)
}

// EmbeddingGenerator is an interface for generating vector embeddings from text.
type EmbeddingGenerator interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
