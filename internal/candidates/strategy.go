package candidates

import (
	"context"

	"grounded-meal-planner/internal/filter"
	"grounded-meal-planner/internal/recipe"
	"grounded-meal-planner/internal/search"
	"grounded-meal-planner/internal/shared"
)

// Searcher is the part of the search service the fetcher needs.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (search.Result, error)
}

// Attempt is the state shared by the strategies of one fetch.
type Attempt struct {
	MealType    recipe.MealType
	Preferences filter.Preferences
	Size        int
	Seed        *uint64

	// Filters are those of the most recent search; HasFilters is false until
	// a search ran.
	Filters    filter.Filters
	HasFilters bool
	// Found counts the documents the most recent search matched, including
	// those the post-filter dropped.
	Found int
	Meta  []shared.AgentMeta
}

// Strategy is one link in the candidate chain. A strategy that does not apply
// returns no candidates and no error.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, a *Attempt) ([]recipe.Candidate, error)
}

// SearchStrategy runs the regular filtered search.
type SearchStrategy struct {
	Searcher Searcher
}

func (s SearchStrategy) Name() string { return "search" }

func (s SearchStrategy) Fetch(ctx context.Context, a *Attempt) ([]recipe.Candidate, error) {
	res, err := s.Searcher.Search(ctx, search.Request{
		MealType:    a.MealType,
		Preferences: a.Preferences,
		Size:        a.Size,
		Seed:        a.Seed,
	})
	a.Filters, a.HasFilters = res.Filters, true
	a.Found = len(res.Candidates) + res.Dropped
	a.Meta = append(a.Meta, res.Meta...)
	return res.Candidates, err
}

// RelaxedSearchStrategy repeats the last search without diet tags. It only
// applies when diet tags were part of that search and it matched nothing.
type RelaxedSearchStrategy struct {
	Searcher Searcher
}

func (s RelaxedSearchStrategy) Name() string { return "relaxed" }

func (s RelaxedSearchStrategy) Fetch(ctx context.Context, a *Attempt) ([]recipe.Candidate, error) {
	if !a.HasFilters || len(a.Filters.DietTags) == 0 || a.Found > 0 {
		return nil, nil
	}
	relaxed := a.Filters.WithoutDietTags()
	res, err := s.Searcher.Search(ctx, search.Request{
		MealType:    a.MealType,
		Preferences: a.Preferences,
		Filters:     &relaxed,
		Size:        a.Size,
		Seed:        a.Seed,
	})
	if err != nil {
		return nil, err
	}
	a.Filters = res.Filters
	return res.Candidates, nil
}

// SynthesizeStrategy asks the LLM for a batch of recipes.
type SynthesizeStrategy struct {
	Synthesizer *Synthesizer
	Count       int
}

func (s SynthesizeStrategy) Name() string { return "synthesized" }

func (s SynthesizeStrategy) Fetch(ctx context.Context, a *Attempt) ([]recipe.Candidate, error) {
	out, meta, err := s.Synthesizer.Generate(ctx, SynthesisRequest{
		MealType:    a.MealType,
		Preferences: a.Preferences,
		Filters:     a.Filters,
		Count:       s.Count,
	})
	a.Meta = append(a.Meta, meta)
	return out, err
}
