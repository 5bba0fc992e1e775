package planner

import (
	"cmp"
	"math/rand/v2"
	"slices"

	"grounded-meal-planner/internal/recipe"
)

// history is the repeat-avoidance state carried from one day to the next.
// It is a value: commit returns a new history and never mutates the receiver.
type history struct {
	previous map[string]struct{}
	used     map[string]struct{}
}

func newHistory() history {
	return history{previous: map[string]struct{}{}, used: map[string]struct{}{}}
}

// commit records the ids of a finished day.
func (h history) commit(ids []string) history {
	next := history{
		previous: make(map[string]struct{}, len(ids)),
		used:     make(map[string]struct{}, len(h.used)+len(ids)),
	}
	for id := range h.used {
		next.used[id] = struct{}{}
	}
	for _, id := range ids {
		next.previous[id] = struct{}{}
		next.used[id] = struct{}{}
	}
	return next
}

func (h history) recent(id string) bool {
	_, ok := h.previous[id]
	return ok
}

func (h history) seen(id string) bool {
	_, ok := h.used[id]
	return ok
}

// rank orders candidates for a day: fresh first, then used earlier in the
// plan, then used yesterday.
func (h history) rank(id string) int {
	switch {
	case h.recent(id):
		return 2
	case h.seen(id):
		return 1
	}
	return 0
}

// order shuffles a copy of pool with rng and stable-sorts it by rank.
func (h history) order(pool []recipe.Candidate, rng *rand.Rand) []recipe.Candidate {
	out := slices.Clone(pool)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	slices.SortStableFunc(out, func(a, b recipe.Candidate) int {
		return cmp.Compare(h.rank(a.ID), h.rank(b.ID))
	})
	return out
}
