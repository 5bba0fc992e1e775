package candidates

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"grounded-meal-planner/internal/filter"
	"grounded-meal-planner/internal/llm"
	"grounded-meal-planner/internal/logger"
	"grounded-meal-planner/internal/recipe"
	"grounded-meal-planner/internal/shared"
)

//go:embed synthesis_prompt.md
var synthesisPrompt string

var synthesisTmpl = template.Must(template.New("synthesis").Parse(synthesisPrompt))

// SynthesisTemperature leaves room for variety between generated recipes.
const SynthesisTemperature = 0.7

// SynthesisRequest describes a batch of recipes to invent.
type SynthesisRequest struct {
	MealType    recipe.MealType
	Preferences filter.Preferences
	Filters     filter.Filters
	Count       int
}

// Synthesizer generates schema-valid recipes with the LLM when the index has none.
type Synthesizer struct {
	textGen llm.TextGenerator
	log     *logger.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(textGen llm.TextGenerator, log *logger.Logger) *Synthesizer {
	return &Synthesizer{textGen: textGen, log: logger.OrNop(log)}
}

type synthesisData struct {
	MealType        recipe.MealType
	Count           int
	Diet            string
	DietAvoid       string
	Exclusions      string
	Cuisine         string
	MaxTotalTimeMin int
	Goals           string
}

type synthesizedRecipe struct {
	Title        string                    `json:"title"`
	Description  string                    `json:"description"`
	Cuisine      string                    `json:"cuisine"`
	TotalTimeMin int                       `json:"total_time_min"`
	DietTags     recipe.StringList         `json:"diet_tags"`
	Ingredients  []recipe.ParsedIngredient `json:"ingredients"`
	Instructions recipe.StringList         `json:"instructions"`
	Nutrition    recipe.Nutrition          `json:"nutrition"`
}

// Generate asks the LLM for req.Count recipes. Returned candidates carry
// synthetic ids and default macros where the model gave none.
func (s *Synthesizer) Generate(ctx context.Context, req SynthesisRequest) ([]recipe.Candidate, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "RecipeSynthesizer"}
	if req.Count <= 0 {
		return nil, meta, nil
	}

	diet := req.Preferences.Diet()
	exclusions := filter.ExpandExclusions(append(req.Preferences.Exclusions(), req.Filters.ExcludeIngredients...))
	data := synthesisData{
		MealType:        req.MealType,
		Count:           req.Count,
		Diet:            diet,
		DietAvoid:       strings.Join(filter.DietForbidden(diet), ", "),
		Exclusions:      strings.Join(exclusions, ", "),
		Cuisine:         req.Filters.Cuisine,
		MaxTotalTimeMin: req.Filters.MaxTotalTimeMin,
		Goals:           strings.Join(req.Preferences.Goals, ", "),
	}

	var buf bytes.Buffer
	if err := synthesisTmpl.Execute(&buf, data); err != nil {
		return nil, meta, fmt.Errorf("failed to render synthesis prompt: %w", err)
	}

	resp, err := s.textGen.GenerateContent(ctx, buf.String(), llm.GenerateOptions{Temperature: SynthesisTemperature, JSON: true})
	if err != nil {
		return nil, meta, fmt.Errorf("failed to get LLM response: %w", err)
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	recipes, err := decodeRecipes(resp.Content)
	if err != nil {
		return nil, meta, err
	}

	out := make([]recipe.Candidate, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, r.candidate(req.MealType, diet))
		if len(out) == req.Count {
			break
		}
	}
	s.log.Info("synthesized recipes", "meal_type", req.MealType, "requested", req.Count, "received", len(out))
	return out, meta, nil
}

// decodeRecipes accepts {"recipes": [...]} or a bare array.
func decodeRecipes(raw string) ([]synthesizedRecipe, error) {
	var wrapped struct {
		Recipes []synthesizedRecipe `json:"recipes"`
	}
	if err := llm.DecodeJSON(raw, &wrapped); err == nil && len(wrapped.Recipes) > 0 {
		return wrapped.Recipes, nil
	}

	var list []synthesizedRecipe
	if err := llm.DecodeJSON(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse synthesized recipes: %w", err)
	}
	return list, nil
}

func (r synthesizedRecipe) candidate(mt recipe.MealType, diet string) recipe.Candidate {
	names := make([]string, 0, len(r.Ingredients))
	parsed := make([]recipe.ParsedIngredient, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		ing.Name = strings.TrimSpace(ing.Name)
		if ing.Name == "" {
			continue
		}
		parsed = append(parsed, ing)
		names = append(names, ing.Name)
	}

	tags := make([]string, 0, len(r.DietTags)+1)
	for _, t := range r.DietTags {
		tags = append(tags, recipe.NormalizeTag(t))
	}
	if diet != "" && !slices.Contains(tags, diet) {
		tags = append(tags, diet)
	}

	nutrition := r.Nutrition.Merge(recipe.DefaultNutrition(mt))
	return recipe.Candidate{
		ID:                recipe.SyntheticIDPrefix + uuid.NewString(),
		Title:             strings.TrimSpace(r.Title),
		Description:       strings.TrimSpace(r.Description),
		Cuisine:           recipe.NormalizeCuisine(r.Cuisine),
		MealType:          []string{string(mt)},
		DietTags:          tags,
		TotalTimeMin:      r.TotalTimeMin,
		Nutrition:         nutrition,
		Ingredients:       names,
		IngredientsParsed: parsed,
		Instructions:      r.Instructions,
	}
}
