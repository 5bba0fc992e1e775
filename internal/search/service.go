// Package search runs filter building, query embedding and the hybrid index
// for one meal type and returns normalized candidates.
package search

import (
	"context"
	"errors"
	"fmt"

	"grounded-meal-planner/internal/filter"
	"grounded-meal-planner/internal/index"
	"grounded-meal-planner/internal/logger"
	"grounded-meal-planner/internal/recipe"
	"grounded-meal-planner/internal/shared"
)

// FilterBuilder turns preferences into index filters.
type FilterBuilder interface {
	Build(ctx context.Context, mealType recipe.MealType, prefs filter.Preferences) (filter.Filters, []shared.AgentMeta)
}

// Embedder returns a query vector, or nil when none could be produced.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Index is the recipe index the service queries.
type Index interface {
	Search(ctx context.Context, f filter.Filters, opts index.SearchOptions) ([]recipe.Document, error)
	GetByID(ctx context.Context, id string) (*recipe.Document, error)
}

// Request describes one search.
type Request struct {
	MealType    recipe.MealType
	Preferences filter.Preferences
	// Filters, when set, are used as-is and the builder is skipped.
	Filters *filter.Filters
	Size    int
	Offset  int
	Seed    *uint64
}

// Result is the outcome of one search.
type Result struct {
	Candidates []recipe.Candidate
	Filters    filter.Filters
	Meta       []shared.AgentMeta
	// Dropped counts documents removed by the exclusion and diet post-filter.
	Dropped int
}

// Service orchestrates filter building, embedding and index search.
type Service struct {
	builder  FilterBuilder
	embedder Embedder
	index    Index
	log      *logger.Logger
}

// NewService creates a Service. embedder may be nil for scalar-only search.
func NewService(builder FilterBuilder, embedder Embedder, idx Index, log *logger.Logger) *Service {
	return &Service{builder: builder, embedder: embedder, index: idx, log: logger.OrNop(log)}
}

// Search returns the usable and unusable candidates matching req; quality
// gating is left to the caller.
func (s *Service) Search(ctx context.Context, req Request) (Result, error) {
	var res Result
	if req.Filters != nil {
		res.Filters = req.Filters.Clone()
	} else {
		res.Filters, res.Meta = s.builder.Build(ctx, req.MealType, req.Preferences)
	}
	if res.Filters.MealType == "" {
		res.Filters.MealType = req.MealType
	}

	if len(res.Filters.QueryVector) == 0 && res.Filters.Query != "" && s.embedder != nil {
		res.Filters.QueryVector = s.embedder.Embed(ctx, res.Filters.Query)
		if res.Filters.QueryVector == nil {
			s.log.Warn("no query vector, falling back to scalar search", "meal_type", req.MealType)
		}
	}

	docs, err := s.index.Search(ctx, res.Filters, index.SearchOptions{Size: req.Size, Offset: req.Offset, Seed: req.Seed})
	if err != nil {
		return res, fmt.Errorf("failed to search %s recipes: %w", req.MealType, err)
	}

	candidates := make([]recipe.Candidate, 0, len(docs))
	for _, d := range docs {
		candidates = append(candidates, recipe.CandidateFromDocument(d))
	}

	exclusions := filter.ExpandExclusions(append(req.Preferences.Exclusions(), res.Filters.ExcludeIngredients...))
	res.Candidates, res.Dropped = PostFilter(candidates, exclusions, req.Preferences.Diet())
	if res.Dropped > 0 {
		s.log.Debug("post-filter dropped candidates", "meal_type", req.MealType, "dropped", res.Dropped)
	}
	return res, nil
}

// Lookup fetches a single recipe as a candidate. It returns index.ErrNotFound
// for unknown ids.
func (s *Service) Lookup(ctx context.Context, id string) (*recipe.Candidate, error) {
	doc, err := s.index.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to look up recipe %s: %w", id, err)
	}
	c := recipe.CandidateFromDocument(*doc)
	return &c, nil
}

// PostFilter drops candidates that mention an excluded term, and candidates
// whose ingredients conflict with diet. Indexed recipes tagged with diet are
// trusted; synthesized recipes are always checked.
func PostFilter(candidates []recipe.Candidate, exclusions []string, diet string) ([]recipe.Candidate, int) {
	kept := make([]recipe.Candidate, 0, len(candidates))
	for _, c := range candidates {
		text := c.SearchableText()
		if _, hit := filter.MatchExcluded(text, exclusions); hit {
			continue
		}
		if diet != "" && (c.Synthetic() || !c.HasDietTag(diet)) {
			if _, conflict := filter.DietConflict(diet, text); conflict {
				continue
			}
		}
		kept = append(kept, c)
	}
	return kept, len(candidates) - len(kept)
}
