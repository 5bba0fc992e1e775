package index

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounded-meal-planner/internal/database"
	"grounded-meal-planner/internal/filter"
	"grounded-meal-planner/internal/recipe"
)

func newSQLiteIndex(t *testing.T) (*HybridIndex, *SQLiteStore) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "index.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewSQLiteStore(db.SQL, nil)
	return New(store, nil), store
}

func seedRecipes() []recipe.Document {
	return []recipe.Document{
		{
			ID: "oats", Title: "Overnight Oats", MealType: recipe.StringList{"breakfast"},
			DietTags:       recipe.StringList{"vegan"},
			IngredientsRaw: recipe.StringList{"1 cup rolled oats", "1 banana"},
			Instructions:   recipe.StringList{"Soak overnight."},
			Nutrition:      recipe.Nutrition{Calories: recipe.Float(350), ProteinG: recipe.Float(12)},
			TotalTimeMinutes: 5,
			Embedding:        []float32{1, 0, 0},
		},
		{
			ID: "bacon", Title: "Bacon and Eggs", MealType: recipe.StringList{"breakfast"},
			IngredientsRaw: recipe.StringList{"2 eggs", "3 slices bacon"},
			Instructions:   recipe.StringList{"Fry."},
			Nutrition:      recipe.Nutrition{Calories: recipe.Float(520)},
			TotalTimeMinutes: 15,
			Embedding:        []float32{0, 1, 0},
		},
		{
			ID: "tofu", Title: "Tofu Scramble", MealType: recipe.StringList{"breakfast", "lunch"},
			DietTags:       recipe.StringList{"vegan"},
			IngredientsRaw: recipe.StringList{"1 block tofu", "spinach"},
			Instructions:   recipe.StringList{"Crumble and cook."},
			Embedding:      []float32{0.9, 0.1, 0},
		},
		{
			ID: "curry", Title: "Chickpea Curry", MealType: recipe.StringList{"dinner"},
			DietTags:       recipe.StringList{"vegan"},
			IngredientsRaw: recipe.StringList{"1 can chickpeas", "coconut milk"},
			Instructions:   recipe.StringList{"Simmer."},
			Nutrition:      recipe.Nutrition{Calories: recipe.Float(610)},
			TotalTimeMinutes: 40,
		},
	}
}

func TestSQLiteStore_ScalarSearch(t *testing.T) {
	idx, _ := newSQLiteIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, seedRecipes()))

	docs, err := idx.Search(ctx, filter.Filters{MealType: recipe.Breakfast}, SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"bacon", "oats", "tofu"}, ids(docs))

	docs, err = idx.Search(ctx, filter.Filters{
		MealType:           recipe.Breakfast,
		ExcludeIngredients: []string{"pork"},
	}, SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"oats", "tofu"}, ids(docs))

	docs, err = idx.Search(ctx, filter.Filters{
		DietTags: []string{"vegan"},
		Calories: &filter.Range{Max: recipe.Float(400)},
	}, SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"oats", "tofu"}, ids(docs), "recipes without calories still match")

	docs, err = idx.Search(ctx, filter.Filters{IncludeIngredients: []string{"chickpeas"}}, SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"curry"}, ids(docs))
}

func TestSQLiteStore_VectorSearch(t *testing.T) {
	idx, _ := newSQLiteIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, seedRecipes()))

	docs, err := idx.Search(ctx, filter.Filters{
		MealType:    recipe.Breakfast,
		QueryVector: []float32{1, 0, 0},
	}, SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"oats", "tofu", "bacon"}, ids(docs))
}

func TestSQLiteStore_VectorSearchKeepsRecipesWithoutEmbedding(t *testing.T) {
	idx, _ := newSQLiteIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, seedRecipes()))

	docs, err := idx.Search(ctx, filter.Filters{
		MealType:    recipe.Dinner,
		QueryVector: []float32{1, 0, 0},
	}, SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"curry"}, ids(docs))

	docs, err = idx.Search(ctx, filter.Filters{QueryVector: []float32{1, 1, 0}}, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.Equal(t, "curry", docs[3].ID, "unembedded recipes rank last")
}

func TestSQLiteStore_SeededScalarSearchVariesRows(t *testing.T) {
	idx, _ := newSQLiteIndex(t)
	ctx := context.Background()

	var docs []recipe.Document
	for i := range 200 {
		docs = append(docs, recipe.Document{
			ID:             fmt.Sprintf("r%03d", i),
			Title:          fmt.Sprintf("Lunch %d", i),
			MealType:       recipe.StringList{"lunch"},
			IngredientsRaw: recipe.StringList{"rice"},
			Instructions:   recipe.StringList{"Cook."},
		})
	}
	require.NoError(t, idx.Upsert(ctx, docs))

	f := filter.Filters{MealType: recipe.Lunch}
	unseeded, err := idx.Search(ctx, f, SearchOptions{Size: 24})
	require.NoError(t, err)
	assert.Equal(t, "r000", unseeded[0].ID)
	assert.Equal(t, "r023", unseeded[23].ID)

	distinct := make(map[string]struct{})
	for seed := range uint64(20) {
		got, err := idx.Search(ctx, f, SearchOptions{Size: 24, Seed: &seed})
		require.NoError(t, err)
		require.Len(t, got, 24)
		for _, d := range got {
			distinct[d.ID] = struct{}{}
		}
	}
	assert.Greater(t, len(distinct), 100)

	seed := uint64(7)
	first, err := idx.Search(ctx, f, SearchOptions{Size: 24, Seed: &seed})
	require.NoError(t, err)
	second, err := idx.Search(ctx, f, SearchOptions{Size: 24, Seed: &seed})
	require.NoError(t, err)
	assert.Equal(t, ids(first), ids(second))
}

func TestSeededOffset(t *testing.T) {
	seed := uint64(12345)
	assert.Zero(t, seededOffset(Query{Limit: 10}, 500), "unseeded")
	assert.Zero(t, seededOffset(Query{Limit: 10, Seed: &seed}, 10), "nothing to skip")
	assert.Zero(t, seededOffset(Query{Limit: 10, Seed: &seed, Vector: []float32{1}}, 500), "vector queries rank by similarity")

	offset := seededOffset(Query{Limit: 10, Seed: &seed}, 500)
	assert.GreaterOrEqual(t, offset, int64(0))
	assert.LessOrEqual(t, offset, int64(490))
	assert.Equal(t, offset, seededOffset(Query{Limit: 10, Seed: &seed}, 500))
}

func TestSQLiteStore_GetAndUpdate(t *testing.T) {
	idx, store := newSQLiteIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, seedRecipes()))

	got, err := idx.GetByID(ctx, "oats")
	require.NoError(t, err)
	assert.Equal(t, "Overnight Oats", got.Title)
	assert.Equal(t, recipe.StringList{"Soak overnight."}, got.Instructions)
	assert.InDelta(t, 12, *got.Nutrition.ProteinG, 1e-9)
	assert.Nil(t, got.Embedding)

	_, err = idx.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	updated := seedRecipes()[0]
	updated.Title = "Banana Overnight Oats"
	require.NoError(t, idx.Upsert(ctx, []recipe.Document{updated}))

	got, err = idx.GetByID(ctx, "oats")
	require.NoError(t, err)
	assert.Equal(t, "Banana Overnight Oats", got.Title)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
