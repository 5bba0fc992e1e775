package planner

import (
	"context"
	"math/rand/v2"
	"slices"
	"strings"

	"grounded-meal-planner/internal/plan"
	"grounded-meal-planner/internal/recipe"
)

// mealPool is one meal type's candidates, ordered for the current day.
type mealPool struct {
	ordered []recipe.Candidate
	byID    map[string]recipe.Candidate
}

func newMealPool(ordered []recipe.Candidate) mealPool {
	byID := make(map[string]recipe.Candidate, len(ordered))
	for _, c := range ordered {
		byID[c.ID] = c
	}
	return mealPool{ordered: ordered, byID: byID}
}

func (m mealPool) empty() bool { return len(m.ordered) == 0 }

func (m mealPool) has(id string) bool {
	_, ok := m.byID[id]
	return ok
}

// pick returns a random candidate whose id is not taken, or a random
// candidate of the whole pool when every id is taken.
func (m mealPool) pick(rng *rand.Rand, taken map[string]struct{}) (recipe.Candidate, bool) {
	if m.empty() {
		return recipe.Candidate{}, false
	}
	var free []recipe.Candidate
	for _, c := range m.ordered {
		if _, ok := taken[c.ID]; !ok {
			free = append(free, c)
		}
	}
	if len(free) == 0 {
		free = m.ordered
	}
	return free[rng.IntN(len(free))], true
}

// ground turns the model's selections into a day whose every recipe id comes
// from the pools. Known ids are overwritten with candidate data; missing or
// invented ids are replaced by a random candidate not yet used that day.
func (p *Planner) ground(ctx context.Context, dc *dayContext, picks map[recipe.MealType]selection) plan.Day {
	day := plan.Day{Date: dc.date.Format(plan.DateLayout), Cuisine: dc.cuisine}
	taken := make(map[string]struct{})

	for _, mt := range dc.mealTypes {
		pool := dc.pools[mt]
		sel, chosen := picks[mt]

		var r plan.Recipe
		if pool.empty() {
			r = dc.fallbackRecipe(mt)
		} else if c, ok := pool.byID[sel.recipeID()]; ok {
			r = p.hydrate(ctx, c, sel)
		} else {
			if chosen {
				p.log.Warn("model chose a recipe outside the pool, replacing",
					"day", day.Date, "meal_type", mt, "recipe_id", sel.recipeID())
				p.record("grounding_replaced")
			}
			c, _ := pool.pick(dc.rng, taken)
			r = p.hydrate(ctx, c, selection{})
		}
		if r.ID != "" {
			taken[r.ID] = struct{}{}
		}
		day.Meals = append(day.Meals, plan.Meal{
			Type:          mt,
			ScheduledTime: plan.ScheduledTime(mt),
			Recipes:       []plan.Recipe{r},
		})
	}
	return day
}

// hydrate builds the plan recipe for c. Candidate data wins over the model's
// prose; the model only contributes tags, difficulty and, when nothing else
// is known, ingredients.
func (p *Planner) hydrate(ctx context.Context, c recipe.Candidate, sel selection) plan.Recipe {
	r := plan.FromCandidate(c)
	for _, tag := range sel.Tags {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" && !slices.Contains(r.Tags, tag) {
			r.Tags = append(r.Tags, tag)
		}
	}
	if d := strings.ToLower(strings.TrimSpace(sel.Difficulty)); d != "" {
		r.Difficulty = d
	}

	if len(c.IngredientsParsed) == 0 && p.lookup != nil && !c.Synthetic() {
		full, err := p.lookup.Lookup(ctx, c.ID)
		if err != nil {
			p.log.Debug("ingredient lookup failed", "recipe_id", c.ID, "error", err)
		} else if len(full.IngredientsParsed) > 0 {
			r.Ingredients = slices.Clone(full.IngredientsParsed)
		}
	}
	if len(r.Ingredients) == 0 {
		r.Ingredients = sel.parsedIngredients()
	}
	return r
}

// dedup replaces recipes repeated within the day or seen on earlier days with
// a fresher candidate from the same pool. A repeat is kept when the pool has
// nothing better, so no meal is ever left empty.
func (p *Planner) dedup(ctx context.Context, dc *dayContext, day *plan.Day) {
	used := make(map[string]struct{})
	for i := range day.Meals {
		m := &day.Meals[i]
		if len(m.Recipes) == 0 || m.Recipes[0].ID == "" {
			continue
		}
		id := m.Recipes[0].ID
		_, dup := used[id]
		if dup || dc.hist.seen(id) {
			if c, ok := dc.pools[m.Type].fresher(id, dup, used, dc.hist); ok {
				p.log.Debug("replacing repeated recipe", "day", day.Date, "meal_type", m.Type, "recipe_id", id, "replacement", c.ID)
				m.Recipes = []plan.Recipe{p.hydrate(ctx, c, selection{})}
				id = c.ID
			}
		}
		used[id] = struct{}{}
	}
}

// fresher returns the best-ranked candidate not used today that improves on
// current. Any unused candidate improves on a within-day duplicate.
func (m mealPool) fresher(current string, dup bool, used map[string]struct{}, h history) (recipe.Candidate, bool) {
	for _, c := range m.ordered {
		if _, taken := used[c.ID]; taken || c.ID == current {
			continue
		}
		if dup || h.rank(c.ID) < h.rank(current) {
			return c, true
		}
		// ordered is sorted by rank, nothing later can improve
		return recipe.Candidate{}, false
	}
	return recipe.Candidate{}, false
}
