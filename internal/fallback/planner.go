// Package fallback builds meal plans without the index or the LLM. Output is a
// pure function of the seed and the preferences.
package fallback

import (
	"fmt"
	"strings"
	"time"

	"grounded-meal-planner/internal/filter"
	"grounded-meal-planner/internal/plan"
	"grounded-meal-planner/internal/recipe"
)

// Options control the shape of a fallback plan.
type Options struct {
	Seed      uint32
	Days      int
	StartDate time.Time
	MealTypes []recipe.MealType
	// Cuisines are cycled over the days; empty means no cuisine theme.
	Cuisines []string
}

// Plan builds a complete plan. The plan ID and creation time are left for the
// caller so that the same seed yields identical output.
func Plan(prefs filter.Preferences, opts Options) plan.MealPlan {
	if opts.Days < 1 {
		opts.Days = 1
	}
	if len(opts.MealTypes) == 0 {
		opts.MealTypes = []recipe.MealType{recipe.Breakfast, recipe.Lunch, recipe.Dinner}
	}
	start := opts.StartDate
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}

	rng := newMulberry32(opts.Seed)
	diet := prefs.Diet()
	exclusions := prefs.Exclusions()
	filtered := make(map[recipe.MealType]blueprintLibrary, len(opts.MealTypes))
	for _, mt := range opts.MealTypes {
		filtered[mt] = filterLibrary(library[libraryKey(mt)], diet, exclusions)
	}

	p := plan.MealPlan{
		Title:       "Balanced meal plan",
		Description: "A simple rotating plan assembled from pantry staples.",
		StartDate:   start.Format(plan.DateLayout),
		Fallback:    true,
		Seed:        opts.Seed,
	}
	for i := 0; i < opts.Days; i++ {
		day := plan.Day{
			Date:     start.AddDate(0, 0, i).Format(plan.DateLayout),
			Fallback: true,
		}
		if len(opts.Cuisines) > 0 {
			day.Cuisine = recipe.NormalizeCuisine(opts.Cuisines[i%len(opts.Cuisines)])
		}
		for _, mt := range opts.MealTypes {
			r := buildRecipe(rng, mt, filtered[mt], day.Cuisine, diet, exclusions)
			meal := plan.Meal{Type: mt, ScheduledTime: plan.ScheduledTime(mt), Recipes: []plan.Recipe{r}}
			meal.Recompute()
			day.Meals = append(day.Meals, meal)
		}
		p.Days = append(p.Days, day)
	}
	return p
}

func libraryKey(mt recipe.MealType) recipe.MealType {
	if _, ok := library[mt]; ok {
		return mt
	}
	return recipe.Lunch
}

func filterLibrary(lib blueprintLibrary, diet string, exclusions []string) blueprintLibrary {
	keep := func(items []component) []component {
		var out []component
		for _, c := range items {
			if _, hit := filter.MatchExcluded(c.Name, exclusions); hit {
				continue
			}
			if _, conflict := filter.DietConflict(diet, c.Name); conflict {
				continue
			}
			out = append(out, c)
		}
		if len(out) == 0 {
			for _, c := range lastResort {
				if _, hit := filter.MatchExcluded(c.Name, exclusions); !hit {
					out = append(out, c)
				}
			}
		}
		return out
	}
	return blueprintLibrary{
		Bases:    keep(lib.Bases),
		Proteins: keep(lib.Proteins),
		Produce:  keep(lib.Produce),
		Minutes:  lib.Minutes,
	}
}

func buildRecipe(rng *mulberry32, mt recipe.MealType, lib blueprintLibrary, cuisine, diet string, exclusions []string) plan.Recipe {
	var parts []component
	for _, slot := range [][]component{lib.Proteins, lib.Produce, lib.Bases} {
		if len(slot) > 0 {
			parts = append(parts, pick(rng, slot))
		}
	}

	templates := nameTemplates[cuisine]
	if len(templates) == 0 {
		templates = nameTemplates[""]
	}
	name := pick(rng, templates)

	var protein, produce, base string
	if len(parts) > 0 {
		protein = parts[0].Name
	}
	if len(parts) > 1 {
		produce = parts[1].Name
	}
	if len(parts) > 2 {
		base = parts[2].Name
	}
	name = strings.NewReplacer("{protein}", titleCase(protein), "{produce}", titleCase(produce), "{base}", titleCase(base)).Replace(name)
	name = strings.Join(strings.Fields(name), " ")

	ingredients := make([]recipe.ParsedIngredient, 0, len(parts)+2)
	for _, c := range parts {
		ingredients = append(ingredients, recipe.ParsedIngredient{
			Name: c.Name, Amount: recipe.Quantity(c.Amount), Unit: c.Unit, Category: c.Category,
		})
	}
	for _, extra := range pantryExtras {
		if _, hit := filter.MatchExcluded(extra.Name, exclusions); !hit {
			ingredients = append(ingredients, extra)
		}
	}

	instructions := []string{
		fmt.Sprintf("1. Prepare the %s.", orDefault(base, "base")),
		fmt.Sprintf("2. Cook or warm the %s.", orDefault(protein, "protein")),
		fmt.Sprintf("3. Add the %s and cook until just tender.", orDefault(produce, "vegetables")),
		"4. Season to taste and serve.",
	}

	tags := []string{"fallback"}
	if diet != "" {
		tags = append(tags, diet)
	}
	if cuisine != "" {
		tags = append(tags, cuisine)
	}

	return plan.Recipe{
		Name:         name,
		Description:  fmt.Sprintf("A quick %s built from pantry staples.", mt),
		Cuisine:      cuisine,
		Ingredients:  ingredients,
		Instructions: instructions,
		Nutrition:    recipe.DefaultNutrition(mt),
		Tags:         tags,
		Difficulty:   "easy",
		TotalTimeMin: lib.Minutes,
		Source:       plan.SourceFallback,
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
