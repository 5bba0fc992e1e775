package filter

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"grounded-meal-planner/internal/llm"
	"grounded-meal-planner/internal/logger"
	"grounded-meal-planner/internal/recipe"
	"grounded-meal-planner/internal/shared"
)

//go:embed synthesis_prompt.md
var synthesisPrompt string

//go:embed notes_prompt.md
var notesPrompt string

var (
	synthesisTmpl = template.Must(template.New("synthesis").Parse(synthesisPrompt))
	notesTmpl     = template.Must(template.New("notes").Parse(notesPrompt))
)

// DefaultConfidenceThreshold is the keyword confidence below which notes are sent to the LLM.
const DefaultConfidenceThreshold = 0.75

// Builder turns preferences into index filters for a meal type.
type Builder struct {
	textGen   llm.TextGenerator
	threshold float64
	log       *logger.Logger
}

// NewBuilder creates a Builder. A nil textGen limits it to the deterministic path.
func NewBuilder(textGen llm.TextGenerator, threshold float64, log *logger.Logger) *Builder {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Builder{textGen: textGen, threshold: threshold, log: logger.OrNop(log)}
}

// Build returns filters for mealType. LLM synthesis is tried first; any failure
// falls back to the deterministic filters. User exclusions are always present in
// the result.
func (b *Builder) Build(ctx context.Context, mealType recipe.MealType, prefs Preferences) (Filters, []shared.AgentMeta) {
	var metas []shared.AgentMeta

	base, confidence := Deterministic(mealType, prefs)
	if b.textGen != nil && prefs.Notes != "" && confidence < b.threshold {
		parsed, meta, err := b.parseNotes(ctx, prefs.Notes)
		metas = append(metas, meta)
		if err != nil {
			b.log.Warn("notes parsing failed, keeping keyword filters", "meal_type", mealType, "error", err)
		} else {
			base = base.Merge(parsed)
		}
	}
	base = base.normalize()

	if b.textGen == nil {
		return base, metas
	}

	synth, meta, err := b.synthesize(ctx, mealType, prefs)
	metas = append(metas, meta)
	if err != nil {
		b.log.Warn("filter synthesis failed, using deterministic filters", "meal_type", mealType, "error", err)
		return base, metas
	}

	synth.MealType = mealType
	synth.Query = base.Query
	synth.ExcludeIngredients = union(synth.ExcludeIngredients, base.ExcludeIngredients)
	return synth.normalize(), metas
}

// Deterministic builds filters from structured preferences plus keyword extraction
// over the notes. It returns the keyword confidence (1 when there are no notes).
func Deterministic(mealType recipe.MealType, prefs Preferences) (Filters, float64) {
	f := Filters{
		MealType:           mealType,
		ExcludeIngredients: prefs.Exclusions(),
		MaxTotalTimeMin:    prefs.MaxTotalTimeMin,
		Query:              strings.TrimSpace(prefs.Notes),
	}
	if diet := prefs.Diet(); diet != "" {
		f.DietTags = []string{diet}
	}
	if len(prefs.Cuisines) == 1 {
		f.Cuisine = prefs.Cuisines[0]
	}
	f.GoalFit = append(f.GoalFit, prefs.Goals...)
	if prefs.ActivityLevel != "" {
		f.ActivityFit = []string{prefs.ActivityLevel}
	}

	if prefs.CalorieTarget > 0 {
		if share, ok := mealCalorieShare[string(mealType)]; ok {
			target := float64(prefs.CalorieTarget) * share
			f.Calories = &Range{Min: floatPtr(target * 0.75), Max: floatPtr(target * 1.25)}
		}
	}
	for _, goal := range prefs.Goals {
		g := strings.ToLower(goal)
		if strings.Contains(g, "muscle") || strings.Contains(g, "protein") || strings.Contains(g, "gain") {
			floor := 25.0
			if mealType == recipe.Snack {
				floor = 10
			}
			f.ProteinG = &Range{Min: &floor}
			break
		}
	}

	confidence := 1.0
	if f.Query != "" {
		var kw Filters
		kw, confidence = ExtractKeywords(f.Query)
		kw.Query = ""
		f = f.Merge(kw)
	}
	return f.normalize(), confidence
}

type synthesisData struct {
	MealType    recipe.MealType
	Preferences string
}

func (b *Builder) synthesize(ctx context.Context, mealType recipe.MealType, prefs Preferences) (Filters, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "FilterSynthesizer"}

	prefsJSON, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return Filters{}, meta, fmt.Errorf("failed to marshal preferences: %w", err)
	}

	var buf bytes.Buffer
	if err := synthesisTmpl.Execute(&buf, synthesisData{MealType: mealType, Preferences: string(prefsJSON)}); err != nil {
		return Filters{}, meta, fmt.Errorf("failed to render synthesis prompt: %w", err)
	}

	resp, err := b.textGen.GenerateContent(ctx, buf.String(), llm.GenerateOptions{Temperature: 0, JSON: true})
	if err != nil {
		return Filters{}, meta, fmt.Errorf("failed to get LLM response: %w", err)
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	var f Filters
	if err := llm.DecodeJSON(resp.Content, &f); err != nil {
		return Filters{}, meta, fmt.Errorf("failed to parse synthesized filters: %w", err)
	}
	return f, meta, nil
}

func (b *Builder) parseNotes(ctx context.Context, notes string) (Filters, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "NotesParser"}

	var buf bytes.Buffer
	if err := notesTmpl.Execute(&buf, struct{ Notes string }{notes}); err != nil {
		return Filters{}, meta, fmt.Errorf("failed to render notes prompt: %w", err)
	}

	resp, err := b.textGen.GenerateContent(ctx, buf.String(), llm.GenerateOptions{Temperature: 0, JSON: true})
	if err != nil {
		return Filters{}, meta, fmt.Errorf("failed to get LLM response: %w", err)
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	var f Filters
	if err := llm.DecodeJSON(resp.Content, &f); err != nil {
		return Filters{}, meta, fmt.Errorf("failed to parse notes filters: %w", err)
	}
	f.MealType = ""
	return f, meta, nil
}
