// Package llmtest provides scripted LLM doubles for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"grounded-meal-planner/internal/llm"
	"grounded-meal-planner/internal/shared"
)

// ErrUnscripted is returned for prompts no route matches.
var ErrUnscripted = errors.New("llmtest: no scripted response")

// Route answers prompts containing Marker.
type Route struct {
	Marker string
	Reply  func(prompt string) (string, error)
}

// TextGenerator is a routing fake: the first route whose marker appears in the
// prompt produces the reply.
type TextGenerator struct {
	Routes []Route

	mu      sync.Mutex
	prompts []string
	opts    []llm.GenerateOptions
}

// Static returns a reply function that always answers content.
func Static(content string) func(string) (string, error) {
	return func(string) (string, error) { return content, nil }
}

// Fail returns a reply function that always fails with err.
func Fail(err error) func(string) (string, error) {
	return func(string) (string, error) { return "", err }
}

func (f *TextGenerator) GenerateContent(ctx context.Context, prompt string, opts llm.GenerateOptions) (llm.ContentResponse, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return llm.ContentResponse{}, err
	}
	for _, r := range f.Routes {
		if strings.Contains(prompt, r.Marker) {
			content, err := r.Reply(prompt)
			if err != nil {
				return llm.ContentResponse{}, err
			}
			return llm.ContentResponse{
				Content: content,
				Usage:   shared.TokenUsage{PromptTokens: len(prompt) / 4, CompletionTokens: len(content) / 4, Model: "fake"},
			}, nil
		}
	}
	return llm.ContentResponse{}, ErrUnscripted
}

// Prompts returns the prompts received so far that contain marker.
func (f *TextGenerator) Prompts(marker string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.prompts {
		if strings.Contains(p, marker) {
			out = append(out, p)
		}
	}
	return out
}

// Options returns the generation options of every call, in order.
func (f *TextGenerator) Options() []llm.GenerateOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.GenerateOptions(nil), f.opts...)
}

// Embedder returns a fixed vector, or Err when set.
type Embedder struct {
	Vector []float32
	Err    error

	mu    sync.Mutex
	calls int
}

func (e *Embedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Vector, nil
}

// Calls reports how many embeddings were requested.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
