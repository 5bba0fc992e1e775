// Package clipper imports recipes from web pages into the recipe index.
package clipper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"grounded-meal-planner/internal/llm"
	"grounded-meal-planner/internal/logger"
	"grounded-meal-planner/internal/recipe"
	"grounded-meal-planner/internal/shared"
)

// IDPrefix marks documents clipped from a URL.
const IDPrefix = "clip-"

const maxBodyBytes = 4 << 20

// Embedder produces the document vector. A nil vector stores the document
// without one.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Sink stores clipped documents.
type Sink interface {
	Upsert(ctx context.Context, docs []recipe.Document) error
}

// Clipper fetches recipe pages, extracts them and writes them to the index.
type Clipper struct {
	httpClient *http.Client
	extractor  *Extractor
	embedder   Embedder
	sink       Sink
	log        *logger.Logger
}

// NewClipper creates a new Clipper. embedder may be nil.
func NewClipper(textGen llm.TextGenerator, embedder Embedder, sink Sink, log *logger.Logger) *Clipper {
	log = logger.OrNop(log)
	return &Clipper{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		extractor:  NewExtractor(textGen, log),
		embedder:   embedder,
		sink:       sink,
		log:        log,
	}
}

// DocumentID is the stable index id for a clipped URL, so clipping the same
// page twice updates one document.
func DocumentID(url string) string {
	return IDPrefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// ClipURL fetches url, extracts the recipe and stores it.
func (c *Clipper) ClipURL(ctx context.Context, url string) (recipe.Document, shared.AgentMeta, error) {
	html, err := c.fetch(ctx, url)
	if err != nil {
		return recipe.Document{}, shared.AgentMeta{}, fmt.Errorf("failed to fetch content: %w", err)
	}
	return c.ClipHTML(ctx, DocumentID(url), html, url)
}

// ClipHTML extracts a recipe from already fetched HTML and stores it under id.
func (c *Clipper) ClipHTML(ctx context.Context, id, html, sourceURL string) (recipe.Document, shared.AgentMeta, error) {
	doc, meta, err := c.extractor.Extract(ctx, id, html, sourceURL)
	if err != nil {
		return recipe.Document{}, meta, err
	}

	if c.embedder != nil {
		doc.Embedding = c.embedder.Embed(ctx, doc.EmbeddingText())
		if doc.Embedding == nil {
			c.log.Warn("storing recipe without embedding", "id", doc.ID)
		}
	}

	if err := c.sink.Upsert(ctx, []recipe.Document{doc}); err != nil {
		return recipe.Document{}, meta, fmt.Errorf("failed to store recipe %s: %w", doc.ID, err)
	}
	c.log.Info("clipped recipe", "id", doc.ID, "title", doc.Title, "source", sourceURL)
	return doc, meta, nil
}

func (c *Clipper) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "grounded-meal-planner/1.0")
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}
