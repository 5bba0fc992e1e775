package planner

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"grounded-meal-planner/internal/filter"
	"grounded-meal-planner/internal/recipe"
)

//go:embed day_prompt.md
var dayPrompt string

//go:embed sanity_prompt.md
var sanityPrompt string

var (
	dayTmpl    = template.Must(template.New("day").Parse(dayPrompt))
	sanityTmpl = template.Must(template.New("sanity").Parse(sanityPrompt))
)

// DefaultPromptLines caps the candidates listed per meal type.
const DefaultPromptLines = 20

type promptSection struct {
	MealType recipe.MealType
	Lines    []string
}

type dayPromptData struct {
	Date        string
	Weekday     string
	Cuisine     string
	Preferences string
	MealTypes   string
	Sections    []promptSection
}

type sanityMeal struct {
	Type     recipe.MealType
	ID       string
	Title    string
	Calories string
	Protein  string
}

type sanityPromptData struct {
	Meals    []sanityMeal
	Sections []promptSection
}

// candidateLine renders one candidate as "- id=<id> | title | cuisine | time | kcal".
func candidateLine(c recipe.Candidate) string {
	cuisine := c.Cuisine
	if cuisine == "" {
		cuisine = "any"
	}
	minutes := "? min"
	if c.TotalTimeMin > 0 {
		minutes = fmt.Sprintf("%d min", c.TotalTimeMin)
	}
	kcal := "? kcal"
	if c.Nutrition.Calories != nil {
		kcal = fmt.Sprintf("%.0f kcal", *c.Nutrition.Calories)
	}
	return fmt.Sprintf("- id=%s | %s | %s | %s | %s", c.ID, c.Title, cuisine, minutes, kcal)
}

func buildSections(mealTypes []recipe.MealType, pools map[recipe.MealType]mealPool, limit int) []promptSection {
	out := make([]promptSection, 0, len(mealTypes))
	for _, mt := range mealTypes {
		s := promptSection{MealType: mt}
		for i, c := range pools[mt].ordered {
			if i == limit {
				break
			}
			s.Lines = append(s.Lines, candidateLine(c))
		}
		if len(s.Lines) == 0 {
			s.Lines = []string{"- (no candidates, leave recipeId empty)"}
		}
		out = append(out, s)
	}
	return out
}

func renderDayPrompt(date time.Time, cuisine string, prefs filter.Preferences, mealTypes []recipe.MealType, sections []promptSection) (string, error) {
	prefsJSON, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal preferences: %w", err)
	}
	names := make([]string, len(mealTypes))
	for i, mt := range mealTypes {
		names[i] = string(mt)
	}

	var buf bytes.Buffer
	err = dayTmpl.Execute(&buf, dayPromptData{
		Date:        date.Format("2006-01-02"),
		Weekday:     date.Weekday().String(),
		Cuisine:     cuisine,
		Preferences: string(prefsJSON),
		MealTypes:   strings.Join(names, ", "),
		Sections:    sections,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render day prompt: %w", err)
	}
	return buf.String(), nil
}

func renderSanityPrompt(data sanityPromptData) (string, error) {
	var buf bytes.Buffer
	if err := sanityTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render sanity prompt: %w", err)
	}
	return buf.String(), nil
}

func formatAmount(v *float64) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%.0f", *v)
}
