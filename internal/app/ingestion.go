package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"grounded-meal-planner/internal/index"
	"grounded-meal-planner/internal/recipe"
	"grounded-meal-planner/internal/shared"
)

// GhostIDPrefix marks documents ingested from Ghost posts.
const GhostIDPrefix = "ghost-"

const seedBatchSize = 100

// ErrGhostNotConfigured is returned by Ingest without a Ghost URL and key.
var ErrGhostNotConfigured = errors.New("ghost is not configured")

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Fetched int
	Stored  int
	Skipped int
	Failed  int
}

// Seed loads a JSON array of recipe documents into the index, embedding
// those without a vector. It returns the number of documents stored.
func (a *App) Seed(ctx context.Context, r io.Reader) (int, error) {
	var docs []recipe.Document
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return 0, fmt.Errorf("failed to decode recipe documents: %w", err)
	}

	for i := range docs {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if docs[i].ID == "" {
			return 0, fmt.Errorf("document %d has no id", i)
		}
		docs[i].Normalize()
		if len(docs[i].Embedding) == 0 {
			docs[i].Embedding = a.embedder.Embed(ctx, docs[i].EmbeddingText())
		}
	}

	stored := 0
	for start := 0; start < len(docs); start += seedBatchSize {
		end := min(start+seedBatchSize, len(docs))
		if err := a.index.Upsert(ctx, docs[start:end]); err != nil {
			return stored, fmt.Errorf("failed to store recipes: %w", err)
		}
		stored = end
	}
	a.log.Info("seeded recipe index", "documents", stored)
	return stored, nil
}

// Clip imports the recipe at url into the index.
func (a *App) Clip(ctx context.Context, url string) (recipe.Document, error) {
	doc, meta, err := a.clipper.ClipURL(ctx, url)
	a.recordMetas(ctx, []shared.AgentMeta{meta})
	if err != nil {
		return recipe.Document{}, fmt.Errorf("failed to clip %s: %w", url, err)
	}
	return doc, nil
}

// Ingest imports every recipe post from Ghost. Posts already in the index are
// skipped unless force is set. A failing post is logged and counted; it does
// not stop the run.
func (a *App) Ingest(ctx context.Context, force bool) (IngestReport, error) {
	var report IngestReport
	if a.ghostClient == nil || !a.ghostClient.Configured() {
		return report, ErrGhostNotConfigured
	}

	posts, err := a.ghostClient.FetchRecipes(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to fetch recipes from ghost: %w", err)
	}
	report.Fetched = len(posts)
	a.log.Info("fetched recipe posts", "count", len(posts))

	var (
		mu    sync.Mutex
		metas []shared.AgentMeta
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.cfg.IngestConcurrency, 1))

	for _, post := range posts {
		id := GhostIDPrefix + post.ID
		g.Go(func() error {
			if !force {
				_, err := a.index.GetByID(gctx, id)
				if err == nil {
					mu.Lock()
					report.Skipped++
					mu.Unlock()
					return nil
				}
				if !errors.Is(err, index.ErrNotFound) {
					a.log.Warn("failed to check existing recipe", "id", id, "error", err)
				}
			}

			doc, meta, err := a.clipper.ClipHTML(gctx, id, post.HTML, post.URL)

			mu.Lock()
			defer mu.Unlock()
			metas = append(metas, meta)
			if err != nil {
				a.log.Warn("failed to ingest recipe post", "post_id", post.ID, "title", post.Title, "error", err)
				report.Failed++
				return nil
			}
			report.Stored++
			a.log.Debug("ingested recipe post", "post_id", post.ID, "title", doc.Title)
			return nil
		})
	}
	err = g.Wait()
	a.recordMetas(ctx, metas)
	if err == nil {
		err = ctx.Err()
	}
	a.log.Info("ingestion complete", "fetched", report.Fetched, "stored", report.Stored, "skipped", report.Skipped, "failed", report.Failed)
	return report, err
}
