package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounded-meal-planner/internal/filter"
	"grounded-meal-planner/internal/index"
	"grounded-meal-planner/internal/recipe"
	"grounded-meal-planner/internal/shared"
)

type stubBuilder struct {
	filters filter.Filters
	calls   int
}

func (b *stubBuilder) Build(_ context.Context, mt recipe.MealType, _ filter.Preferences) (filter.Filters, []shared.AgentMeta) {
	b.calls++
	f := b.filters.Clone()
	f.MealType = mt
	return f, []shared.AgentMeta{{AgentName: "FilterSynthesizer"}}
}

type stubEmbedder struct {
	vector []float32
	texts  []string
}

func (e *stubEmbedder) Embed(_ context.Context, text string) []float32 {
	e.texts = append(e.texts, text)
	return e.vector
}

type stubIndex struct {
	docs    []recipe.Document
	err     error
	filters []filter.Filters
	opts    []index.SearchOptions
}

func (i *stubIndex) Search(_ context.Context, f filter.Filters, opts index.SearchOptions) ([]recipe.Document, error) {
	i.filters = append(i.filters, f)
	i.opts = append(i.opts, opts)
	return i.docs, i.err
}

func (i *stubIndex) GetByID(_ context.Context, id string) (*recipe.Document, error) {
	for _, d := range i.docs {
		if d.ID == id {
			d := d
			return &d, nil
		}
	}
	if i.err != nil {
		return nil, i.err
	}
	return nil, index.ErrNotFound
}

func breakfastDocs() []recipe.Document {
	return []recipe.Document{
		{ID: "tofu", Title: "Tofu Scramble", DietTags: recipe.StringList{"vegan"},
			IngredientsRaw: recipe.StringList{"tofu", "turmeric"}, Instructions: recipe.StringList{"<p>Crumble tofu.</p>"},
			Extra: map[string]any{"kcal": 310.0}},
		{ID: "ham", Title: "Ham Omelette", IngredientsRaw: recipe.StringList{"eggs", "ham"}, Instructions: recipe.StringList{"Whisk."}},
		{ID: "eggs", Title: "Shakshuka", IngredientsRaw: recipe.StringList{"egg", "tomato"}, Instructions: recipe.StringList{"Simmer."}},
		{ID: "oats", Title: "Peanut Butter Oats", IngredientsRaw: recipe.StringList{"oats", "peanut butter"}, Instructions: recipe.StringList{"Mix."}},
	}
}

func TestService_Search(t *testing.T) {
	builder := &stubBuilder{filters: filter.Filters{Query: "something hearty"}}
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2}}
	idx := &stubIndex{docs: breakfastDocs()}
	svc := NewService(builder, embedder, idx, nil)

	seed := uint64(7)
	res, err := svc.Search(context.Background(), Request{
		MealType:    recipe.Breakfast,
		Preferences: filter.Preferences{DietType: "vegan", Allergies: []string{"pork"}},
		Size:        12,
		Seed:        &seed,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, builder.calls)
	assert.Equal(t, []string{"something hearty"}, embedder.texts)
	require.Len(t, idx.filters, 1)
	assert.Equal(t, []float32{0.1, 0.2}, idx.filters[0].QueryVector)
	assert.Equal(t, recipe.Breakfast, idx.filters[0].MealType)
	assert.Equal(t, 12, idx.opts[0].Size)
	assert.Equal(t, &seed, idx.opts[0].Seed)

	var ids []string
	for _, c := range res.Candidates {
		ids = append(ids, c.ID)
	}
	// ham is excluded, shakshuka conflicts with vegan, peanut butter is plant based
	assert.Equal(t, []string{"tofu", "oats"}, ids)
	assert.Equal(t, 2, res.Dropped)
	assert.Len(t, res.Meta, 1)

	tofu := res.Candidates[0]
	assert.Equal(t, []string{"Crumble tofu."}, tofu.Instructions)
	require.NotNil(t, tofu.Nutrition.Calories)
	assert.InDelta(t, 310, *tofu.Nutrition.Calories, 1e-9)
}

func TestService_PresetFiltersSkipBuilder(t *testing.T) {
	builder := &stubBuilder{}
	idx := &stubIndex{docs: breakfastDocs()[:1]}
	svc := NewService(builder, &stubEmbedder{}, idx, nil)

	preset := filter.Filters{MealType: recipe.Lunch, Cuisine: "thai"}
	res, err := svc.Search(context.Background(), Request{MealType: recipe.Lunch, Filters: &preset})
	require.NoError(t, err)

	assert.Zero(t, builder.calls)
	assert.Equal(t, "thai", res.Filters.Cuisine)
	assert.Nil(t, idx.filters[0].QueryVector, "no query text, no vector")
	assert.Len(t, res.Candidates, 1)
}

func TestService_EmbeddingFailureDegradesToScalar(t *testing.T) {
	builder := &stubBuilder{filters: filter.Filters{Query: "spicy"}}
	idx := &stubIndex{docs: breakfastDocs()}
	svc := NewService(builder, &stubEmbedder{vector: nil}, idx, nil)

	res, err := svc.Search(context.Background(), Request{MealType: recipe.Dinner})
	require.NoError(t, err)
	assert.Nil(t, idx.filters[0].QueryVector)
	assert.Len(t, res.Candidates, 4)
}

func TestService_IndexError(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewService(&stubBuilder{}, nil, &stubIndex{err: boom}, nil)

	_, err := svc.Search(context.Background(), Request{MealType: recipe.Snack})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "snack")
}

func TestService_Lookup(t *testing.T) {
	svc := NewService(&stubBuilder{}, nil, &stubIndex{docs: breakfastDocs()}, nil)
	ctx := context.Background()

	c, err := svc.Lookup(ctx, "eggs")
	require.NoError(t, err)
	assert.Equal(t, "Shakshuka", c.Title)
	assert.Equal(t, []string{"egg", "tomato"}, c.Ingredients)

	_, err = svc.Lookup(ctx, "nope")
	assert.ErrorIs(t, err, index.ErrNotFound)
}

func TestPostFilter(t *testing.T) {
	candidates := []recipe.Candidate{
		{ID: "1", Title: "Sweet Potato Hash", Ingredients: []string{"sweet potato"}},
		{ID: "2", Title: "Lentil Stew", Ingredients: []string{"lentils"}},
		{ID: "3", Title: "Cheese Toast", Ingredients: []string{"bread", "cheddar cheese"}, DietTags: []string{"vegetarian"}},
	}

	kept, dropped := PostFilter(candidates, filter.ExpandExclusions([]string{"potato"}), "")
	assert.Equal(t, 1, dropped, "substring matching also blocks sweet potato")
	assert.Len(t, kept, 2)

	kept, dropped = PostFilter(candidates, nil, "vegan")
	assert.Equal(t, 1, dropped)
	assert.Equal(t, "1", kept[0].ID)
	assert.Equal(t, "2", kept[1].ID)
}
