// Package candidates builds the per-meal-type recipe pool the day planner
// chooses from.
package candidates

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	"grounded-meal-planner/internal/filter"
	"grounded-meal-planner/internal/logger"
	"grounded-meal-planner/internal/recipe"
	"grounded-meal-planner/internal/search"
	"grounded-meal-planner/internal/shared"
)

// ErrEmptyPool is returned when every strategy and the backfill came up empty.
var ErrEmptyPool = errors.New("no usable candidates")

const (
	DefaultPoolSize       = 24
	DefaultSyntheticBatch = 10
	DefaultBackfillBatch  = 4
)

// Recorder counts pipeline degradations.
type Recorder interface {
	RecordDegradation(kind string)
}

// Pool is the candidate set for one meal type.
type Pool struct {
	MealType   recipe.MealType
	Candidates []recipe.Candidate
	Filters    filter.Filters
	// Source names the strategy that produced the pool, or "backfill".
	Source string
	Meta   []shared.AgentMeta
}

// IDs returns the candidate ids in pool order.
func (p Pool) IDs() []string {
	ids := make([]string, len(p.Candidates))
	for i, c := range p.Candidates {
		ids[i] = c.ID
	}
	return ids
}

// Options configure a Fetcher.
type Options struct {
	PoolSize      int
	BackfillBatch int
	Recorder      Recorder
}

// Fetcher runs its strategies in order until one yields usable candidates.
type Fetcher struct {
	strategies  []Strategy
	synthesizer *Synthesizer
	opts        Options
	log         *logger.Logger
}

// NewFetcher creates a Fetcher. synthesizer is used for the post-exclusion
// backfill and may be nil.
func NewFetcher(strategies []Strategy, synthesizer *Synthesizer, opts Options, log *logger.Logger) *Fetcher {
	if opts.PoolSize <= 0 {
		opts.PoolSize = DefaultPoolSize
	}
	if opts.BackfillBatch <= 0 {
		opts.BackfillBatch = DefaultBackfillBatch
	}
	return &Fetcher{strategies: strategies, synthesizer: synthesizer, opts: opts, log: logger.OrNop(log)}
}

// DefaultStrategies is search, then search without diet tags, then LLM synthesis.
func DefaultStrategies(searcher Searcher, synthesizer *Synthesizer, batch int) []Strategy {
	if batch <= 0 {
		batch = DefaultSyntheticBatch
	}
	strategies := []Strategy{SearchStrategy{Searcher: searcher}, RelaxedSearchStrategy{Searcher: searcher}}
	if synthesizer != nil {
		strategies = append(strategies, SynthesizeStrategy{Synthesizer: synthesizer, Count: batch})
	}
	return strategies
}

// Fetch returns a shuffled pool of usable candidates for mealType. seed picks
// which matching recipes the index returns and the pool order, so different
// seeds draw from different parts of a large catalogue. It returns
// ErrEmptyPool, with the partial pool, when nothing usable was found.
func (f *Fetcher) Fetch(ctx context.Context, mealType recipe.MealType, prefs filter.Preferences, seed uint64) (Pool, error) {
	a := &Attempt{MealType: mealType, Preferences: prefs, Size: f.opts.PoolSize, Seed: &seed}
	pool := Pool{MealType: mealType}

	for _, s := range f.strategies {
		if err := ctx.Err(); err != nil {
			return pool, err
		}
		found, err := s.Fetch(ctx, a)
		if err != nil {
			f.log.Warn("candidate strategy failed", "meal_type", mealType, "strategy", s.Name(), "error", err)
			f.record("strategy_error")
		}
		usable := QualityGate(found)
		if len(usable) > 0 {
			pool.Candidates, pool.Source = usable, s.Name()
			break
		}
		f.log.Warn("candidate strategy found nothing usable", "meal_type", mealType, "strategy", s.Name(), "found", len(found))
	}
	if pool.Source != "" && pool.Source != "search" {
		f.record(pool.Source)
	}

	exclusions := filter.ExpandExclusions(append(prefs.Exclusions(), a.Filters.ExcludeIngredients...))
	before := len(pool.Candidates)
	pool.Candidates, _ = search.PostFilter(pool.Candidates, exclusions, prefs.Diet())

	if len(pool.Candidates) == 0 && before > 0 && f.synthesizer != nil {
		f.log.Warn("exclusions emptied the pool, backfilling", "meal_type", mealType, "dropped", before)
		f.record("backfill")
		backfill, meta, err := f.synthesizer.Generate(ctx, SynthesisRequest{
			MealType:    mealType,
			Preferences: prefs,
			Filters:     a.Filters,
			Count:       f.opts.BackfillBatch,
		})
		a.Meta = append(a.Meta, meta)
		if err != nil {
			f.log.Warn("backfill failed", "meal_type", mealType, "error", err)
		}
		pool.Candidates, _ = search.PostFilter(QualityGate(backfill), exclusions, prefs.Diet())
		pool.Source = "backfill"
	}

	pool.Filters, pool.Meta = a.Filters, a.Meta
	if len(pool.Candidates) == 0 {
		return pool, fmt.Errorf("%s: %w", mealType, ErrEmptyPool)
	}

	rng := rand.New(rand.NewPCG(seed, mealTypeStream(mealType)))
	rng.Shuffle(len(pool.Candidates), func(i, j int) {
		pool.Candidates[i], pool.Candidates[j] = pool.Candidates[j], pool.Candidates[i]
	})
	f.log.Debug("candidate pool ready", "meal_type", mealType, "source", pool.Source, "size", len(pool.Candidates))
	return pool, nil
}

// mealTypeStream keeps the shuffles of different meal types independent
// under one seed.
func mealTypeStream(mt recipe.MealType) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(mt))
	return h.Sum64()
}

func (f *Fetcher) record(kind string) {
	if f.opts.Recorder != nil {
		f.opts.Recorder.RecordDegradation(kind)
	}
}

// QualityGate keeps candidates with a title, instructions and ingredients.
func QualityGate(in []recipe.Candidate) []recipe.Candidate {
	out := make([]recipe.Candidate, 0, len(in))
	for _, c := range in {
		if c.Usable() {
			out = append(out, c)
		}
	}
	return out
}
