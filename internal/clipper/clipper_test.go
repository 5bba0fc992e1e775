package clipper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounded-meal-planner/internal/llm"
	"grounded-meal-planner/internal/llm/llmtest"
	"grounded-meal-planner/internal/recipe"
)

const pageHTML = `
<html>
	<head>
		<script>alert('bad');</script>
		<script type="application/ld+json">{"@type": "Recipe", "name": "Tasty Soup"}</script>
	</head>
	<body>
		<nav>Home | About</nav>
		<h1>Tasty Soup</h1>
		<div class="ads">Buy stuff!</div>
		<p>Simmer lentils with onion.</p>
		<footer>Copyright 2024</footer>
	</body>
</html>`

const extracted = "```json\n" + `{
	"title": "Tasty Soup",
	"description": "A warm bowl.",
	"cuisine": "Middle Eastern",
	"meal_type": ["Supper", "lunch"],
	"diet_tags": ["Vegan"],
	"ingredients": [{"name": "Red lentils", "amount": "1 1/2", "unit": "cup"}, "onion"],
	"instructions": ["Rinse lentils.", "Simmer 20 minutes."],
	"total_time_min": 35,
	"nutrition": {"kcal": 410, "protein": 19}
}` + "\n```"

type memorySink struct {
	docs []recipe.Document
	err  error
}

func (m *memorySink) Upsert(ctx context.Context, docs []recipe.Document) error {
	if m.err != nil {
		return m.err
	}
	m.docs = append(m.docs, docs...)
	return nil
}

type fixedEmbedder []float32

func (f fixedEmbedder) Embed(ctx context.Context, text string) []float32 {
	return f
}

func TestCleanHTML(t *testing.T) {
	content, structured, err := cleanHTML(pageHTML)
	require.NoError(t, err)

	assert.Contains(t, content, "Tasty Soup")
	assert.Contains(t, content, "Simmer lentils with onion.")
	assert.NotContains(t, content, "alert('bad')")
	assert.NotContains(t, content, "Buy stuff!")
	assert.NotContains(t, content, "Copyright 2024")
	assert.NotContains(t, content, "Home | About")
	assert.Contains(t, structured, `"@type": "Recipe"`)
}

func TestTruncateKeepsRunes(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abé", 3))
	assert.Equal(t, "abé", truncate("abéd", 4))
}

func TestClipURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pageHTML))
	}))
	defer ts.Close()

	tg := &llmtest.TextGenerator{Routes: []llmtest.Route{{Marker: "# Recipe Extraction Prompt", Reply: llmtest.Static(extracted)}}}
	sink := &memorySink{}
	c := NewClipper(tg, fixedEmbedder{0.1, 0.2}, sink, nil)

	doc, meta, err := c.ClipURL(context.Background(), ts.URL+"/soup")
	require.NoError(t, err)

	assert.Equal(t, "RecipeExtractor", meta.AgentName)
	assert.Equal(t, DocumentID(ts.URL+"/soup"), doc.ID)
	assert.True(t, strings.HasPrefix(doc.ID, IDPrefix))
	assert.Equal(t, "middle_eastern", doc.Cuisine)
	assert.ElementsMatch(t, []string{"dinner", "lunch"}, []string(doc.MealType))
	assert.Equal(t, []string{"vegan"}, []string(doc.DietTags))
	require.Len(t, doc.IngredientsParsed, 2)
	assert.InDelta(t, 1.5, float64(doc.IngredientsParsed[0].Amount), 0.001)
	assert.Equal(t, "onion", doc.IngredientsParsed[1].Name)
	assert.Equal(t, 35, doc.TotalTimeMinutes)
	require.NotNil(t, doc.Nutrition.Calories)
	assert.InDelta(t, 410, *doc.Nutrition.Calories, 0.001)
	assert.Equal(t, []float32{0.1, 0.2}, doc.Embedding)
	assert.Equal(t, ts.URL+"/soup", doc.URL)

	require.Len(t, sink.docs, 1)
	assert.Equal(t, doc.ID, sink.docs[0].ID)

	prompts := tg.Prompts("# Recipe Extraction Prompt")
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Simmer lentils with onion.")
	assert.Contains(t, prompts[0], "Structured data found on the page")
	assert.True(t, tg.Options()[0].JSON)
}

func TestClipURL_SameURLSameID(t *testing.T) {
	assert.Equal(t, DocumentID("https://example.com/a"), DocumentID("https://example.com/a"))
	assert.NotEqual(t, DocumentID("https://example.com/a"), DocumentID("https://example.com/b"))
}

func TestClipURL_Errors(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pageHTML))
	}))
	defer ok.Close()
	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer missing.Close()

	extractOK := llmtest.Route{Marker: "# Recipe Extraction Prompt", Reply: llmtest.Static(extracted)}

	tests := []struct {
		name    string
		url     string
		route   llmtest.Route
		sinkErr error
		want    error
		wantMsg string
	}{
		{name: "status", url: missing.URL, route: extractOK, wantMsg: "status 404"},
		{name: "not a recipe", url: ok.URL, route: llmtest.Route{Marker: "# Recipe Extraction Prompt", Reply: llmtest.Static(`{"title": "", "ingredients": []}`)}, want: ErrNoRecipe},
		{name: "unparseable", url: ok.URL, route: llmtest.Route{Marker: "# Recipe Extraction Prompt", Reply: llmtest.Static("sorry, no")}, want: llm.ErrUnparseable},
		{name: "llm down", url: ok.URL, route: llmtest.Route{Marker: "# Recipe Extraction Prompt", Reply: llmtest.Fail(errors.New("boom"))}, wantMsg: "boom"},
		{name: "sink", url: ok.URL, route: extractOK, sinkErr: errors.New("disk full"), wantMsg: "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := &llmtest.TextGenerator{Routes: []llmtest.Route{tt.route}}
			sink := &memorySink{err: tt.sinkErr}
			c := NewClipper(tg, nil, sink, nil)

			_, _, err := c.ClipURL(context.Background(), tt.url)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			assert.Empty(t, sink.docs)
		})
	}
}
