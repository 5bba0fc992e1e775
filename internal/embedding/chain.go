// Package embedding turns free text into fixed-dimension query vectors by trying
// a list of providers in order.
package embedding

import (
	"context"
	"strings"

	"grounded-meal-planner/internal/llm"
	"grounded-meal-planner/internal/logger"
)

// Provider is one named embedding backend.
type Provider struct {
	Name      string
	Generator llm.EmbeddingGenerator
}

// Chain tries providers in order and returns the first vector of the right dimension.
type Chain struct {
	providers []Provider
	dim       int
	log       *logger.Logger
}

// NewChain creates a chain producing vectors of length dim.
func NewChain(dim int, log *logger.Logger, providers ...Provider) *Chain {
	var usable []Provider
	for _, p := range providers {
		if p.Generator != nil {
			usable = append(usable, p)
		}
	}
	return &Chain{providers: usable, dim: dim, log: logger.OrNop(log)}
}

// Embed returns a vector for text, or nil when every provider fails or answers with
// the wrong dimension. Callers then fall back to scalar-only search.
func (c *Chain) Embed(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	for _, p := range c.providers {
		if ctx.Err() != nil {
			return nil
		}
		vec, err := p.Generator.GenerateEmbedding(ctx, text)
		if err != nil {
			c.log.Warn("embedding provider failed", "provider", p.Name, "error", err)
			continue
		}
		if len(vec) != c.dim {
			c.log.Warn("embedding provider returned wrong dimension", "provider", p.Name, "got", len(vec), "want", c.dim)
			continue
		}
		return vec
	}

	if len(c.providers) > 0 {
		c.log.Warn("all embedding providers failed, degrading to scalar search")
	}
	return nil
}
