// Package index implements the hybrid recipe index: a scalar filter expression,
// optional k-NN ranking and a post-filter for ingredient exclusions, over a
// pluggable storage backend.
package index

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"

	"grounded-meal-planner/internal/filter"
	"grounded-meal-planner/internal/logger"
	"grounded-meal-planner/internal/recipe"
)

// ErrNotFound is returned when a recipe id is not in the index.
var ErrNotFound = errors.New("recipe not found")

// StoreError wraps a backend failure with the backend and operation names.
type StoreError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Query is what the index hands to a backend.
type Query struct {
	Expression string
	Vector     []float32
	Limit      int
	Offset     int
	// Seed, when set, lets a backend pick a different window of a large
	// scalar result set for each seed instead of always the first rows.
	Seed *uint64
}

// Hit is one document returned by a backend. Score is the vector similarity
// (higher is closer) and is zero for scalar-only queries.
type Hit struct {
	Document recipe.Document
	Score    float64
}

// Store is a recipe storage backend.
type Store interface {
	Dialect() Dialect
	Search(ctx context.Context, q Query) ([]Hit, error)
	Get(ctx context.Context, id string) (*recipe.Document, error)
	Upsert(ctx context.Context, docs []recipe.Document) error
	Close() error
}

// DefaultSize is the page size used when SearchOptions.Size is unset.
const DefaultSize = 20

// SearchOptions page and randomize a search.
type SearchOptions struct {
	Size   int
	Offset int
	// Seed, when set, varies which scalar matches are retrieved and shuffles
	// documents that rank equally.
	Seed *uint64
}

// permModulus is the prime 2^31-1. For mul in [1, permModulus), the map
// x -> (x*mul + add) mod permModulus is a bijection on row numbers below it.
const permModulus = 2147483647

// permutation derives the coefficients of the seeded row order. The seed is
// mixed first so that nearby seeds give unrelated orders.
func permutation(seed uint64) (mul, add int64) {
	z := seed + 0x9E3779B97F4A7C15
	z = (z ^ z>>30) * 0xBF58476D1CE4E5B9
	z = (z ^ z>>27) * 0x94D049BB133111EB
	z ^= z >> 31
	return int64(z%(permModulus-1)) + 1, int64((z >> 32) % permModulus)
}

// HybridIndex applies filter semantics on top of a Store.
type HybridIndex struct {
	store Store
	log   *logger.Logger
}

// New wraps store.
func New(store Store, log *logger.Logger) *HybridIndex {
	return &HybridIndex{store: store, log: logger.OrNop(log)}
}

// Store returns the underlying backend.
func (h *HybridIndex) Store() Store {
	return h.store
}

// Search returns up to opts.Size documents matching f. Exclusions are enforced
// after retrieval by substring matching over title, ingredients and allergens.
func (h *HybridIndex) Search(ctx context.Context, f filter.Filters, opts SearchOptions) ([]recipe.Document, error) {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}

	expr := BuildExpression(f, h.store.Dialect())
	hits, err := h.store.Search(ctx, Query{
		Expression: expr,
		Vector:     f.QueryVector,
		Limit:      size * 2,
		Offset:     opts.Offset,
		Seed:       opts.Seed,
	})
	if err != nil {
		return nil, err
	}

	exclusions := filter.ExpandExclusions(f.ExcludeIngredients)
	_, boosts := f.AnchorIngredient()

	type ranked struct {
		doc   recipe.Document
		boost int
		score float64
	}
	kept := make([]ranked, 0, len(hits))
	for _, hit := range hits {
		text := hit.Document.SearchableText()
		if term, excluded := filter.MatchExcluded(text, exclusions); excluded {
			h.log.Debug("dropping excluded recipe", "id", hit.Document.ID, "term", term)
			continue
		}
		r := ranked{doc: hit.Document, score: math.Round(hit.Score*1000) / 1000}
		for _, b := range boosts {
			if strings.Contains(text, strings.ToLower(b)) {
				r.boost++
			}
		}
		kept = append(kept, r)
	}

	slices.SortStableFunc(kept, func(a, b ranked) int {
		if c := cmp.Compare(b.boost, a.boost); c != 0 {
			return c
		}
		return cmp.Compare(b.score, a.score)
	})

	if opts.Seed != nil {
		rng := rand.New(rand.NewPCG(*opts.Seed, uint64(len(kept))))
		for start := 0; start < len(kept); {
			end := start + 1
			for end < len(kept) && kept[end].boost == kept[start].boost && kept[end].score == kept[start].score {
				end++
			}
			group := kept[start:end]
			rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
			start = end
		}
	}

	if len(kept) > size {
		kept = kept[:size]
	}
	docs := make([]recipe.Document, len(kept))
	for i, r := range kept {
		docs[i] = r.doc
	}
	h.log.Debug("index search", "meal_type", f.MealType, "expression", expr, "vector", len(f.QueryVector) > 0, "hits", len(hits), "returned", len(docs))
	return docs, nil
}

// GetByID returns a single document or ErrNotFound.
func (h *HybridIndex) GetByID(ctx context.Context, id string) (*recipe.Document, error) {
	return h.store.Get(ctx, id)
}

// Upsert normalizes and stores docs.
func (h *HybridIndex) Upsert(ctx context.Context, docs []recipe.Document) error {
	for i := range docs {
		docs[i].Normalize()
	}
	return h.store.Upsert(ctx, docs)
}

// Close releases the backend.
func (h *HybridIndex) Close() error {
	return h.store.Close()
}
