package planner

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounded-meal-planner/internal/llm"
	"grounded-meal-planner/internal/recipe"
)

func TestParseDay(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[recipe.MealType]string
	}{
		{
			name: "meals array",
			raw:  `{"meals": [{"type": "Breakfast", "recipeId": "a"}, {"type": "dinner", "recipe_id": "b"}]}`,
			want: map[recipe.MealType]string{recipe.Breakfast: "a", recipe.Dinner: "b"},
		},
		{
			name: "fenced with comments and trailing commas",
			raw:  "```json\n{\"meals\": [\n  // first\n  {\"type\": \"lunch\", \"id\": \"c\",},\n]}\n```",
			want: map[recipe.MealType]string{recipe.Lunch: "c"},
		},
		{
			name: "meals keyed by type",
			raw:  `{"meals": {"breakfast": {"recipeId": "a"}, "supper": {"recipeId": "d"}}}`,
			want: map[recipe.MealType]string{recipe.Breakfast: "a", recipe.Dinner: "d"},
		},
		{
			name: "top level keys and bare ids",
			raw:  `{"date": "2026-03-02", "lunch": "x", "snack": {"recipes": [{"id": "s1"}]}}`,
			want: map[recipe.MealType]string{recipe.Lunch: "x", recipe.Snack: "s1"},
		},
		{
			name: "prose around the object",
			raw:  `Here is your plan: {"meals": [{"meal_type": "dinner", "recipeId": "z"}]} Enjoy!`,
			want: map[recipe.MealType]string{recipe.Dinner: "z"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDay(tt.raw)
			require.NoError(t, err)
			ids := make(map[recipe.MealType]string, len(got))
			for mt, s := range got {
				ids[mt] = s.recipeID()
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestParseDay_Unparseable(t *testing.T) {
	_, err := parseDay("{invalid json,,}")
	assert.ErrorIs(t, err, llm.ErrUnparseable)
}

func TestSelection_ParsedIngredients(t *testing.T) {
	s := selection{Ingredients: []any{"  tofu ", map[string]any{"name": "rice", "amount": 100, "unit": "g"}, 42, map[string]any{"unit": "g"}}}
	assert.Equal(t, []recipe.ParsedIngredient{
		{Name: "tofu"},
		{Name: "rice", Amount: 100, Unit: "g"},
	}, s.parsedIngredients())
}

func TestHistory_CommitDoesNotMutate(t *testing.T) {
	h0 := newHistory()
	h1 := h0.commit([]string{"a", "b"})
	h2 := h1.commit([]string{"c"})

	assert.False(t, h0.seen("a"))
	assert.True(t, h1.recent("a"))
	assert.False(t, h2.recent("a"))
	assert.True(t, h2.seen("a"))
	assert.Equal(t, 2, h2.rank("c"))
	assert.Equal(t, 1, h2.rank("b"))
	assert.Equal(t, 0, h2.rank("z"))
}

func TestHistory_OrderPrefersFreshCandidates(t *testing.T) {
	h := newHistory().commit([]string{"old"}).commit([]string{"yesterday"})
	pool := []recipe.Candidate{{ID: "yesterday"}, {ID: "old"}, {ID: "new1"}, {ID: "new2"}}

	got := h.order(pool, rand.New(rand.NewPCG(1, 2)))
	require.Len(t, got, 4)
	assert.ElementsMatch(t, []string{"new1", "new2"}, []string{got[0].ID, got[1].ID})
	assert.Equal(t, "old", got[2].ID)
	assert.Equal(t, "yesterday", got[3].ID)
	assert.Equal(t, "yesterday", pool[0].ID, "input must not be reordered")
}

func TestCandidateLine(t *testing.T) {
	c := recipe.Candidate{ID: "r1", Title: "Miso Soup", Cuisine: "japanese", TotalTimeMin: 15, Nutrition: recipe.Nutrition{Calories: recipe.Float(180.4)}}
	assert.Equal(t, "- id=r1 | Miso Soup | japanese | 15 min | 180 kcal", candidateLine(c))
	assert.Equal(t, "- id=r2 | Toast | any | ? min | ? kcal", candidateLine(recipe.Candidate{ID: "r2", Title: "Toast"}))
}
