package planner

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"grounded-meal-planner/internal/filter"
	"grounded-meal-planner/internal/llm"
	"grounded-meal-planner/internal/plan"
	"grounded-meal-planner/internal/recipe"
	"grounded-meal-planner/internal/shared"
)

// dayContext is everything one day of planning reads.
type dayContext struct {
	date      time.Time
	cuisine   string
	mealTypes []recipe.MealType
	pools     map[recipe.MealType]mealPool
	sections  []promptSection
	hist      history
	fallback  plan.Day
	rng       *rand.Rand
}

// fallbackRecipe is the precomputed fallback recipe for mt on this day.
func (dc *dayContext) fallbackRecipe(mt recipe.MealType) plan.Recipe {
	if m := dc.fallback.Meal(mt); m != nil && len(m.Recipes) > 0 {
		return m.Recipes[0]
	}
	return plan.Recipe{Name: string(mt), Source: plan.SourceFallback}
}

// planDay runs prompt, call, parse, grounding, dedup and the sanity pass for
// one day. Any failure before grounding yields the precomputed fallback day.
func (p *Planner) planDay(ctx context.Context, prefs filter.Preferences, dc *dayContext) (plan.Day, []shared.AgentMeta) {
	date := dc.date.Format(plan.DateLayout)
	var metas []shared.AgentMeta

	picks, meta, err := p.selectMeals(ctx, prefs, dc)
	metas = append(metas, meta)
	if err != nil {
		p.log.Warn("day planning failed, using fallback day", "day", date, "error", err)
		p.record("day_fallback")
		return dc.fallback, metas
	}

	day := p.ground(ctx, dc, picks)
	p.dedup(ctx, dc, &day)

	if !p.opts.SkipSanityCheck {
		applied, meta, err := p.sanityCheck(ctx, dc, &day)
		metas = append(metas, meta)
		if err != nil {
			p.log.Warn("sanity check failed, keeping day as is", "day", date, "error", err)
		} else if applied > 0 {
			p.log.Info("sanity check replaced meals", "day", date, "count", applied)
		}
	}

	for i := range day.Meals {
		day.Meals[i].Recompute()
	}
	return day, metas
}

func (p *Planner) selectMeals(ctx context.Context, prefs filter.Preferences, dc *dayContext) (map[recipe.MealType]selection, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "DayPlanner"}

	prompt, err := renderDayPrompt(dc.date, dc.cuisine, prefs, dc.mealTypes, dc.sections)
	if err != nil {
		return nil, meta, err
	}

	resp, err := p.textGen.GenerateContent(ctx, prompt, llm.GenerateOptions{Temperature: p.opts.Temperature, JSON: true})
	if err != nil {
		return nil, meta, fmt.Errorf("failed to get LLM response: %w", err)
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	picks, err := parseDay(resp.Content)
	if err != nil {
		return nil, meta, fmt.Errorf("failed to parse day plan: %w", err)
	}
	return picks, meta, nil
}
