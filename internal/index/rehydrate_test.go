package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounded-meal-planner/internal/recipe"
)

func TestRehydrate_Flattened(t *testing.T) {
	fields := map[string]any{
		"id":                 "r1",
		"title":              "  Rice and Beans ",
		"cuisine":            "Latin American",
		"meal_type":          "Lunch,supper",
		"diet_tags":          []any{"Vegan", "gluten free"},
		"ingredients_raw":    "1 cup rice\n2 cups black beans, drained",
		"ingredients_parsed": `[{"name":"rice","amount":"1 1/2","unit":"cup"}]`,
		"calories":           "1,250 kcal",
		"protein":            12.0,
		"total_time_minutes": 25.0,
		"source":             "web",
		"_rankingScore":      0.91,
		"payload":            "",
	}

	doc, err := Rehydrate(fields)
	require.NoError(t, err)

	assert.Equal(t, "r1", doc.ID)
	assert.Equal(t, "Rice and Beans", doc.Title)
	assert.Equal(t, "latin_american", doc.Cuisine)
	assert.Equal(t, recipe.StringList{"lunch", "dinner"}, doc.MealType)
	assert.Equal(t, recipe.StringList{"vegan", "gluten_free"}, doc.DietTags)
	assert.Len(t, doc.IngredientsRaw, 2)
	require.Len(t, doc.IngredientsParsed, 1)
	assert.InDelta(t, 1.5, float64(doc.IngredientsParsed[0].Amount), 1e-9)
	assert.Equal(t, recipe.StringList{"rice"}, doc.IngredientsNorm)
	assert.Equal(t, 25, doc.TotalTimeMinutes)
	require.NotNil(t, doc.Nutrition.Calories)
	assert.InDelta(t, 1250, *doc.Nutrition.Calories, 1e-9)
	require.NotNil(t, doc.Nutrition.ProteinG)
	assert.InDelta(t, 12, *doc.Nutrition.ProteinG, 1e-9)
	assert.Equal(t, "web", doc.Extra["source"])
	assert.NotContains(t, doc.Extra, "_rankingScore")
}

func TestRehydrate_PrefersPayload(t *testing.T) {
	original := recipe.Document{
		ID:             "r2",
		Title:          "Shakshuka",
		MealType:       recipe.StringList{"breakfast"},
		IngredientsRaw: recipe.StringList{"4 eggs", "1 can tomatoes"},
		Instructions:   recipe.StringList{"Simmer sauce.", "Poach eggs."},
		Nutrition:      recipe.Nutrition{Calories: recipe.Float(380)},
		Embedding:      []float32{0.1, 0.2},
	}
	body, err := payload(original)
	require.NoError(t, err)
	assert.NotContains(t, body, "embedding")

	doc, err := Rehydrate(map[string]any{"id": "r2", "title": "stale", "payload": body})
	require.NoError(t, err)
	assert.Equal(t, "Shakshuka", doc.Title)
	assert.Equal(t, recipe.StringList{"Simmer sauce.", "Poach eggs."}, doc.Instructions)
	assert.Equal(t, recipe.StringList{"eggs", "tomatoes"}, doc.IngredientsNorm)
	assert.InDelta(t, 380, *doc.Nutrition.Calories, 1e-9)
}

func TestRehydrate_BadParsedIngredients(t *testing.T) {
	_, err := Rehydrate(map[string]any{"id": "r3", "ingredients_parsed": "{not json"})
	assert.Error(t, err)
}

func TestVectorCodec(t *testing.T) {
	in := []float32{0.5, -1.25, 3}
	out, err := byteSliceToFloat32Slice(float32SliceToByteSlice(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = byteSliceToFloat32Slice([]byte{1, 2, 3})
	assert.Error(t, err)

	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 3}), 1e-9)
}
