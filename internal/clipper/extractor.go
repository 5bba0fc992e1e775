package clipper

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"grounded-meal-planner/internal/llm"
	"grounded-meal-planner/internal/logger"
	"grounded-meal-planner/internal/recipe"
	"grounded-meal-planner/internal/shared"
)

//go:embed extract_prompt.md
var extractPrompt string

var extractTmpl = template.Must(template.New("extract").Parse(extractPrompt))

// MaxContentChars caps the page text sent to the model.
const MaxContentChars = 12000

// ErrNoRecipe is returned when a page holds nothing that looks like a recipe.
var ErrNoRecipe = errors.New("no recipe found")

// Extractor turns recipe web pages into index documents with the LLM.
type Extractor struct {
	textGen llm.TextGenerator
	log     *logger.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(textGen llm.TextGenerator, log *logger.Logger) *Extractor {
	return &Extractor{textGen: textGen, log: logger.OrNop(log)}
}

type extractData struct {
	SourceURL      string
	StructuredData string
	Content        string
}

type extractedRecipe struct {
	Title          string                    `json:"title"`
	Description    string                    `json:"description"`
	Cuisine        string                    `json:"cuisine"`
	MealType       recipe.StringList         `json:"meal_type"`
	DietTags       recipe.StringList         `json:"diet_tags"`
	Ingredients    []ingredient              `json:"ingredients"`
	IngredientsRaw recipe.StringList         `json:"ingredients_raw"`
	Instructions   recipe.StringList         `json:"instructions"`
	Allergens      recipe.StringList         `json:"allergens"`
	TotalTimeMin   int                       `json:"total_time_min"`
	Nutrition      recipe.Nutrition          `json:"nutrition"`
}

// ingredient accepts a structured entry or a plain ingredient line.
type ingredient recipe.ParsedIngredient

func (i *ingredient) UnmarshalJSON(data []byte) error {
	var line string
	if err := json.Unmarshal(data, &line); err == nil {
		*i = ingredient{Name: line}
		return nil
	}
	var p recipe.ParsedIngredient
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = ingredient(p)
	return nil
}

// Extract builds a document with the given id from raw page HTML.
func (e *Extractor) Extract(ctx context.Context, id, html, sourceURL string) (recipe.Document, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "RecipeExtractor"}

	content, structured, err := cleanHTML(html)
	if err != nil {
		return recipe.Document{}, meta, fmt.Errorf("failed to clean html: %w", err)
	}
	if content == "" && structured == "" {
		return recipe.Document{}, meta, ErrNoRecipe
	}

	var buf bytes.Buffer
	data := extractData{SourceURL: sourceURL, StructuredData: structured, Content: content}
	if err := extractTmpl.Execute(&buf, data); err != nil {
		return recipe.Document{}, meta, fmt.Errorf("failed to render extraction prompt: %w", err)
	}

	resp, err := e.textGen.GenerateContent(ctx, buf.String(), llm.GenerateOptions{JSON: true})
	if err != nil {
		return recipe.Document{}, meta, fmt.Errorf("failed to get LLM response: %w", err)
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	var out extractedRecipe
	if err := llm.DecodeJSON(resp.Content, &out); err != nil {
		return recipe.Document{}, meta, fmt.Errorf("failed to parse extracted recipe: %w", err)
	}

	doc := out.document(id, sourceURL)
	if doc.Title == "" || (len(doc.IngredientsParsed) == 0 && len(doc.IngredientsRaw) == 0) {
		return recipe.Document{}, meta, ErrNoRecipe
	}
	doc.Normalize()
	e.log.Debug("extracted recipe", "id", id, "title", doc.Title, "ingredients", len(doc.IngredientsNorm))
	return doc, meta, nil
}

func (r extractedRecipe) document(id, sourceURL string) recipe.Document {
	parsed := make([]recipe.ParsedIngredient, 0, len(r.Ingredients))
	raw := make([]string, 0, len(r.Ingredients)+len(r.IngredientsRaw))
	for _, item := range r.Ingredients {
		ing := recipe.ParsedIngredient(item)
		ing.Name = strings.TrimSpace(ing.Name)
		if ing.Name == "" {
			continue
		}
		parsed = append(parsed, ing)
		raw = append(raw, ing.Name)
	}
	raw = append(raw, r.IngredientsRaw...)

	return recipe.Document{
		ID:                id,
		Title:             strings.TrimSpace(r.Title),
		Description:       strings.TrimSpace(r.Description),
		Cuisine:           r.Cuisine,
		MealType:          r.MealType,
		DietTags:          r.DietTags,
		IngredientsRaw:    raw,
		IngredientsParsed: parsed,
		Instructions:      r.Instructions,
		Allergens:         r.Allergens,
		Nutrition:         r.Nutrition,
		TotalTimeMinutes:  r.TotalTimeMin,
		URL:               sourceURL,
	}
}

// cleanHTML returns the visible page text with noise removed, plus any
// schema.org Recipe JSON-LD blocks found before scripts are dropped.
func cleanHTML(html string) (content, structured string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", err
	}

	var blocks []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); strings.Contains(text, `"Recipe"`) {
			blocks = append(blocks, text)
		}
	})

	doc.Find("script, style, noscript, nav, header, footer, aside, form, iframe, .ads, #ads, .comments, #comments").Remove()

	content = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if content == "" {
		content = strings.Join(strings.Fields(doc.Text()), " ")
	}
	return truncate(content, MaxContentChars), truncate(strings.Join(blocks, "\n"), MaxContentChars), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
