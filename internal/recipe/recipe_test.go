package recipe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNutrition(t *testing.T) {
	t.Run("Aliases", func(t *testing.T) {
		n := NormalizeNutrition(map[string]any{
			"Calories":      "1,250 kcal",
			"protein_grams": 30.0,
			"Carbohydrates": "45g",
			"total fat":     12,
			"fibre":         json.Number("6.5"),
		})
		require.NotNil(t, n.Calories)
		assert.InDelta(t, 1250, *n.Calories, 1e-9)
		assert.InDelta(t, 30, *n.ProteinG, 1e-9)
		assert.InDelta(t, 45, *n.CarbsG, 1e-9)
		assert.InDelta(t, 12, *n.FatG, 1e-9)
		assert.InDelta(t, 6.5, *n.FiberG, 1e-9)
		assert.Nil(t, n.SugarG)
	})

	t.Run("CanonicalNameWins", func(t *testing.T) {
		n := NormalizeNutrition(map[string]any{"protein": 10.0, "protein_g": 22.0})
		assert.InDelta(t, 22, *n.ProteinG, 1e-9)
	})

	t.Run("NestedTakesPrecedence", func(t *testing.T) {
		n := NormalizeNutrition(map[string]any{
			"calories":  100.0,
			"nutrition": map[string]any{"kcal": 420.0},
		})
		assert.InDelta(t, 420, *n.Calories, 1e-9)
	})

	t.Run("UnmarshalJSON", func(t *testing.T) {
		var d Document
		require.NoError(t, json.Unmarshal([]byte(`{"id":"r1","nutrition":{"protein":"18 g","energy_kcal":510}}`), &d))
		assert.InDelta(t, 18, *d.Nutrition.ProteinG, 1e-9)
		assert.InDelta(t, 510, *d.Nutrition.Calories, 1e-9)
	})
}

func TestNutritionAdd(t *testing.T) {
	a := Nutrition{Calories: Float(300), ProteinG: Float(10)}
	b := Nutrition{Calories: Float(200), FatG: Float(5)}

	sum := a.Add(b)
	assert.InDelta(t, 500, *sum.Calories, 1e-9)
	assert.InDelta(t, 10, *sum.ProteinG, 1e-9)
	assert.InDelta(t, 5, *sum.FatG, 1e-9)
	assert.Nil(t, sum.SugarG)
	assert.True(t, Nutrition{}.Add(Nutrition{}).IsEmpty())
}

func TestDocumentDecodingTolerance(t *testing.T) {
	raw := `{
		"id": "r7",
		"title": " Chickpea Curry ",
		"cuisine": "Middle Eastern",
		"meal_type": "Dinner,supper,lunch",
		"diet_tags": ["Vegan", "gluten free"],
		"ingredients_raw": "1 can chickpeas\n2 cups Spinach, chopped",
		"ingredients_parsed": [{"name": "chickpeas", "amount": "1 1/2", "unit": "can"}],
		"instructions": "Warm the spices.\nSimmer everything.",
		"total_time_minutes": 25
	}`

	var d Document
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	d.Normalize()

	assert.Equal(t, "Chickpea Curry", d.Title)
	assert.Equal(t, "middle_eastern", d.Cuisine)
	assert.Equal(t, []string{"dinner", "lunch"}, []string(d.MealType))
	assert.Equal(t, []string{"vegan", "gluten_free"}, []string(d.DietTags))
	assert.Equal(t, []string{"Warm the spices.", "Simmer everything."}, []string(d.Instructions))
	assert.InDelta(t, 1.5, float64(d.IngredientsParsed[0].Amount), 1e-9)
	assert.Equal(t, []string{"chickpeas"}, []string(d.IngredientsNorm))
	assert.True(t, d.HasMealType(Dinner))
	assert.False(t, d.HasMealType(Breakfast))
}

func TestNormalizeIngredient(t *testing.T) {
	cases := map[string]string{
		"2 cups Rolled Oats, divided": "rolled oats",
		"1/2 tsp salt":                "salt",
		"Tofu (firm)":                 "tofu",
		"3 cloves of garlic":          "garlic",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeIngredient(in), in)
	}
}

func TestCandidateQualityGate(t *testing.T) {
	base := Candidate{
		ID:           "r1",
		Title:        "Oat Bowl",
		Ingredients:  []string{"oats"},
		Instructions: []string{"Mix."},
	}
	assert.True(t, base.Usable())

	noTitle := base
	noTitle.Title = "  "
	assert.False(t, noTitle.Usable())

	noSteps := base
	noSteps.Instructions = nil
	assert.False(t, noSteps.Usable())

	parsedOnly := base
	parsedOnly.Ingredients = nil
	parsedOnly.IngredientsParsed = []ParsedIngredient{{Name: "oats"}}
	assert.True(t, parsedOnly.Usable())

	neither := base
	neither.Ingredients = nil
	assert.False(t, neither.Usable())
}

func TestCandidateFromDocument(t *testing.T) {
	d := Document{
		ID:              "r2",
		Title:           "Shakshuka",
		Description:     "<p>Eggs poached in <b>spiced</b> tomato.</p>",
		Cuisine:         "North African",
		IngredientsNorm: []string{"egg", "tomato"},
		Instructions:    []string{"<li>Simmer sauce.</li>", " ", "Crack eggs."},
		Extra:           map[string]any{"calories": 380.0, "protein": "21g"},
	}

	c := CandidateFromDocument(d)
	assert.Equal(t, "Eggs poached in spiced tomato.", c.Description)
	assert.Equal(t, "north_african", c.Cuisine)
	assert.Equal(t, []string{"egg", "tomato"}, c.Ingredients)
	assert.Equal(t, []string{"Simmer sauce.", "Crack eggs."}, c.Instructions)
	assert.InDelta(t, 380, c.Nutrition.CaloriesOrZero(), 1e-9)
	assert.InDelta(t, 21, c.Nutrition.ProteinOrZero(), 1e-9)
	assert.Contains(t, c.SearchableText(), "tomato")
	assert.False(t, c.Synthetic())
	assert.True(t, IsSynthetic(SyntheticIDPrefix+"abc"))
}
