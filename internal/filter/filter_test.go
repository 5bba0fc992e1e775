package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounded-meal-planner/internal/llm/llmtest"
	"grounded-meal-planner/internal/recipe"
)

func TestExpandExclusions(t *testing.T) {
	got := ExpandExclusions([]string{" Pork ", "prawns", "Cilantro"})

	for _, want := range []string{"pork", "ham", "bacon", "sausage", "prosciutto", "chorizo", "lard", "pancetta", "shrimp", "crab", "cilantro", "prawns"} {
		assert.Contains(t, got, want)
	}
	assert.IsNonDecreasing(t, got)
}

func TestMatchExcluded(t *testing.T) {
	terms := ExpandExclusions([]string{"pork"})

	term, hit := MatchExcluded("Smoked Bacon Carbonara | spaghetti", terms)
	assert.True(t, hit)
	assert.Equal(t, "bacon", term)

	_, hit = MatchExcluded("Graham Cracker Parfait", terms)
	assert.True(t, hit, "substring matching over-excludes on purpose")

	_, hit = MatchExcluded("Lentil soup", terms)
	assert.False(t, hit)
}

func TestDietConflict(t *testing.T) {
	_, hit := DietConflict("vegan", "roasted eggplant | peanut butter | coconut milk")
	assert.False(t, hit)

	word, hit := DietConflict("vegan", "scrambled eggs | toast")
	assert.True(t, hit)
	assert.Equal(t, "egg", word)

	_, hit = DietConflict("pescatarian", "grilled salmon")
	assert.False(t, hit)

	_, hit = DietConflict("", "chicken")
	assert.False(t, hit)
}

func TestExtractKeywords(t *testing.T) {
	f, conf := ExtractKeywords("Vegan please, Italian food under 25 minutes, high protein, no mushrooms. I love chickpeas")

	assert.Equal(t, []string{"vegan"}, f.DietTags)
	assert.Equal(t, "italian", f.Cuisine)
	assert.Equal(t, 25, f.MaxTotalTimeMin)
	require.NotNil(t, f.ProteinG)
	assert.InDelta(t, 25, *f.ProteinG.Min, 1e-9)
	assert.Contains(t, f.ExcludeIngredients, "mushrooms")
	assert.Contains(t, f.IncludeIngredients, "chickpeas")
	assert.NotContains(t, f.IncludeIngredients, "mushrooms")
	assert.InDelta(t, 1.0, conf, 1e-9)

	_, low := ExtractKeywords("something cozy")
	assert.Less(t, low, DefaultConfidenceThreshold)
}

func TestDeterministic(t *testing.T) {
	prefs := Preferences{
		DietType:      "Plant-based",
		Allergies:     []string{"peanuts"},
		Goals:         []string{"build muscle"},
		Cuisines:      []string{"Middle Eastern"},
		CalorieTarget: 2000,
	}

	f, conf := Deterministic(recipe.Lunch, prefs)
	assert.Equal(t, recipe.Lunch, f.MealType)
	assert.Equal(t, []string{"vegan"}, f.DietTags)
	assert.Equal(t, "middle_eastern", f.Cuisine)
	assert.Contains(t, f.ExcludeIngredients, "peanut")
	assert.Contains(t, f.ExcludeIngredients, "satay")
	require.NotNil(t, f.Calories)
	assert.InDelta(t, 480, *f.Calories.Min, 1e-6)
	assert.InDelta(t, 800, *f.Calories.Max, 1e-6)
	require.NotNil(t, f.ProteinG)
	assert.InDelta(t, 25, *f.ProteinG.Min, 1e-9)
	assert.Equal(t, 1.0, conf)
}

func TestFiltersHelpers(t *testing.T) {
	f := Filters{DietTags: []string{"vegan"}, IncludeIngredients: []string{"tofu", "spinach", "rice"}}

	anchor, boosts := f.AnchorIngredient()
	assert.Equal(t, "tofu", anchor)
	assert.Equal(t, []string{"spinach", "rice"}, boosts)

	relaxed := f.WithoutDietTags()
	assert.Empty(t, relaxed.DietTags)
	assert.Equal(t, []string{"vegan"}, f.DietTags)

	merged := f.Merge(Filters{DietTags: []string{"gluten_free", "vegan"}, Cuisine: "thai"})
	assert.Equal(t, []string{"vegan", "gluten_free"}, merged.DietTags)
	assert.Equal(t, "thai", merged.Cuisine)
}

func TestBuilder_Build(t *testing.T) {
	ctx := context.Background()
	prefs := Preferences{DietType: "vegan", Allergies: []string{"pork"}, Notes: "something warming"}

	t.Run("SynthesisWins", func(t *testing.T) {
		gen := &llmtest.TextGenerator{Routes: []llmtest.Route{
			{Marker: "# Notes Parser Prompt", Reply: llmtest.Static(`{"include_ingredients":["lentils"]}`)},
			{Marker: "# Filter Synthesis Prompt", Reply: llmtest.Static("```json\n{\"diet_tags\":[\"Vegan\"],\"cuisine\":\"Indian\",\"calories_range\":[400,650],\"meal_type\":\"snack\"}\n```")},
		}}
		b := NewBuilder(gen, 0, nil)

		f, metas := b.Build(ctx, recipe.Dinner, prefs)
		assert.Equal(t, recipe.Dinner, f.MealType)
		assert.Equal(t, "indian", f.Cuisine)
		assert.Equal(t, []string{"vegan"}, f.DietTags)
		assert.Contains(t, f.ExcludeIngredients, "bacon", "user exclusions survive synthesis")
		require.NotNil(t, f.Calories)
		assert.InDelta(t, 650, *f.Calories.Max, 1e-9)
		assert.Equal(t, "something warming", f.Query)
		assert.Len(t, metas, 2)

		for _, o := range gen.Options() {
			assert.Zero(t, o.Temperature)
			assert.True(t, o.JSON)
		}
	})

	t.Run("SynthesisFailureFallsBack", func(t *testing.T) {
		gen := &llmtest.TextGenerator{Routes: []llmtest.Route{
			{Marker: "# Notes Parser Prompt", Reply: llmtest.Static(`{"include_ingredients":["lentils"]}`)},
			{Marker: "# Filter Synthesis Prompt", Reply: llmtest.Fail(errors.New("quota"))},
		}}
		f, _ := NewBuilder(gen, 0, nil).Build(ctx, recipe.Dinner, prefs)

		assert.Equal(t, []string{"vegan"}, f.DietTags)
		assert.Equal(t, []string{"lentils"}, f.IncludeIngredients)
		assert.Contains(t, f.ExcludeIngredients, "pork")
	})

	t.Run("GarbageSynthesisFallsBack", func(t *testing.T) {
		gen := &llmtest.TextGenerator{Routes: []llmtest.Route{
			{Marker: "# Notes Parser Prompt", Reply: llmtest.Static(`not json`)},
			{Marker: "# Filter Synthesis Prompt", Reply: llmtest.Static(`{invalid json,,}`)},
		}}
		f, _ := NewBuilder(gen, 0, nil).Build(ctx, recipe.Breakfast, prefs)

		assert.Equal(t, recipe.Breakfast, f.MealType)
		assert.Equal(t, []string{"vegan"}, f.DietTags)
	})

	t.Run("NoLLM", func(t *testing.T) {
		f, metas := NewBuilder(nil, 0, nil).Build(ctx, recipe.Lunch, prefs)
		assert.Empty(t, metas)
		assert.Equal(t, recipe.Lunch, f.MealType)
	})
}
