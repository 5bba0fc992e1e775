package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"grounded-meal-planner/internal/llm"
	"grounded-meal-planner/internal/plan"
	"grounded-meal-planner/internal/recipe"
	"grounded-meal-planner/internal/shared"
)

type replacement struct {
	Type             string `json:"type"`
	ReplaceWithID    string `json:"replaceWithId"`
	ReplaceWithIDAlt string `json:"replace_with_id"`
}

func (r replacement) id() string {
	if id := strings.TrimSpace(r.ReplaceWithID); id != "" {
		return id
	}
	return strings.TrimSpace(r.ReplaceWithIDAlt)
}

type sanityResponse struct {
	Replacements []replacement `json:"replacements"`
}

// sanityCheck asks the model to flag off-theme meals and applies the
// replacements that name a candidate of the same meal type's pool. Every
// other proposal is ignored. Returns the number of applied replacements.
func (p *Planner) sanityCheck(ctx context.Context, dc *dayContext, day *plan.Day) (int, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "SanityChecker"}

	data := sanityPromptData{Sections: dc.sections}
	for _, m := range day.Meals {
		if len(m.Recipes) == 0 {
			continue
		}
		r := m.Recipes[0]
		data.Meals = append(data.Meals, sanityMeal{
			Type:     m.Type,
			ID:       r.ID,
			Title:    r.Name,
			Calories: formatAmount(r.Nutrition.Calories),
			Protein:  formatAmount(r.Nutrition.ProteinG),
		})
	}
	prompt, err := renderSanityPrompt(data)
	if err != nil {
		return 0, meta, err
	}

	resp, err := p.textGen.GenerateContent(ctx, prompt, llm.GenerateOptions{Temperature: 0, JSON: true})
	if err != nil {
		return 0, meta, fmt.Errorf("failed to get LLM response: %w", err)
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	var out sanityResponse
	if err := llm.DecodeJSON(resp.Content, &out); err != nil {
		return 0, meta, fmt.Errorf("failed to parse sanity response: %w", err)
	}

	applied := 0
	for _, rep := range out.Replacements {
		mt, ok := recipe.ParseMealType(rep.Type)
		id := rep.id()
		meal := day.Meal(mt)
		if !ok || meal == nil || !dc.pools[mt].has(id) {
			p.log.Warn("ignoring sanity replacement outside the pool", "day", day.Date, "meal_type", rep.Type, "recipe_id", id)
			p.record("sanity_ignored")
			continue
		}
		if len(meal.Recipes) > 0 && meal.Recipes[0].ID == id {
			continue
		}
		if inDay(day, id) {
			p.log.Warn("ignoring sanity replacement already used today", "day", day.Date, "meal_type", mt, "recipe_id", id)
			continue
		}
		if dc.hist.seen(id) {
			if _, ok := dc.pools[mt].fresher(id, false, idsExcept(day, mt), dc.hist); ok {
				p.log.Warn("ignoring sanity replacement repeated from earlier days", "day", day.Date, "meal_type", mt, "recipe_id", id)
				p.record("sanity_ignored")
				continue
			}
		}
		meal.Recipes = []plan.Recipe{p.hydrate(ctx, dc.pools[mt].byID[id], selection{})}
		applied++
	}
	return applied, meta, nil
}

func inDay(day *plan.Day, id string) bool {
	for _, m := range day.Meals {
		for _, r := range m.Recipes {
			if r.ID == id {
				return true
			}
		}
	}
	return false
}

// idsExcept collects the recipe ids of every meal of the day other than mt.
func idsExcept(day *plan.Day, mt recipe.MealType) map[string]struct{} {
	used := make(map[string]struct{})
	for _, m := range day.Meals {
		if m.Type == mt {
			continue
		}
		for _, r := range m.Recipes {
			used[r.ID] = struct{}{}
		}
	}
	return used
}
