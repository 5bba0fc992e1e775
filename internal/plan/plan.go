// Package plan holds the meal plan model produced by the planner.
package plan

import (
	"time"

	"github.com/google/uuid"

	"grounded-meal-planner/internal/recipe"
)

// DateLayout is the format of Day.Date.
const DateLayout = "2006-01-02"

// Recipe sources.
const (
	SourceIndex     = "index"
	SourceSynthetic = "synthetic"
	SourceFallback  = "fallback"
)

// MealPlan is an ordered list of days.
type MealPlan struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartDate   string    `json:"start_date"`
	Days        []Day     `json:"days"`
	// Fallback is set when the whole plan came from the deterministic planner.
	Fallback bool      `json:"fallback,omitempty"`
	Seed     uint32    `json:"seed"`
	Created  time.Time `json:"created_at,omitzero"`
}

// Day is one planned date.
type Day struct {
	Date     string `json:"date"`
	Cuisine  string `json:"cuisine,omitempty"`
	Meals    []Meal `json:"meals"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Meal is one slot of a day. After grounding it holds exactly one recipe.
type Meal struct {
	Type           recipe.MealType  `json:"type"`
	ScheduledTime  string           `json:"scheduled_time"`
	Recipes        []Recipe         `json:"recipes"`
	TotalNutrition recipe.Nutrition `json:"total_nutrition"`
}

// Recipe is a recipe as it appears in a plan. An empty ID is serialized as
// absent and marks a recipe not backed by the index.
type Recipe struct {
	ID           string                    `json:"id,omitempty"`
	Name         string                    `json:"name"`
	Description  string                    `json:"description,omitempty"`
	Cuisine      string                    `json:"cuisine,omitempty"`
	Ingredients  []recipe.ParsedIngredient `json:"ingredients"`
	Instructions []string                  `json:"instructions"`
	Nutrition    recipe.Nutrition          `json:"nutrition"`
	Tags         []string                  `json:"tags,omitempty"`
	Difficulty   string                    `json:"difficulty,omitempty"`
	TotalTimeMin int                       `json:"total_time_min,omitempty"`
	Source       string                    `json:"source,omitempty"`
	URL          string                    `json:"url,omitempty"`
}

var scheduledTimes = map[recipe.MealType]string{
	recipe.Breakfast: "08:00",
	recipe.Lunch:     "12:30",
	recipe.Snack:     "16:00",
	recipe.Dinner:    "19:00",
}

// ScheduledTime is the default time of day for a meal type.
func ScheduledTime(mt recipe.MealType) string {
	if t, ok := scheduledTimes[mt]; ok {
		return t
	}
	return "12:00"
}

// Recompute sets TotalNutrition to the sum over the meal's recipes.
func (m *Meal) Recompute() {
	var total recipe.Nutrition
	for _, r := range m.Recipes {
		total = total.Add(r.Nutrition)
	}
	m.TotalNutrition = total
}

// Meal returns the meal of type mt, or nil.
func (d *Day) Meal(mt recipe.MealType) *Meal {
	for i := range d.Meals {
		if d.Meals[i].Type == mt {
			return &d.Meals[i]
		}
	}
	return nil
}

// RecipeIDs returns the non-empty recipe ids of the day in meal order.
func (d Day) RecipeIDs() []string {
	var ids []string
	for _, m := range d.Meals {
		for _, r := range m.Recipes {
			if r.ID != "" {
				ids = append(ids, r.ID)
			}
		}
	}
	return ids
}

// TotalNutrition sums the day's meals.
func (d Day) TotalNutrition() recipe.Nutrition {
	var total recipe.Nutrition
	for _, m := range d.Meals {
		total = total.Add(m.TotalNutrition)
	}
	return total
}

// FromCandidate converts a candidate into a plan recipe.
func FromCandidate(c recipe.Candidate) Recipe {
	ingredients := append([]recipe.ParsedIngredient(nil), c.Parsed()...)
	source := SourceIndex
	if c.Synthetic() {
		source = SourceSynthetic
	}
	return Recipe{
		ID:           c.ID,
		Name:         c.Title,
		Description:  c.Description,
		Cuisine:      c.Cuisine,
		Ingredients:  ingredients,
		Instructions: append([]string(nil), c.Instructions...),
		Nutrition:    c.Nutrition,
		Tags:         append([]string(nil), c.DietTags...),
		TotalTimeMin: c.TotalTimeMin,
		Source:       source,
		URL:          c.URL,
	}
}
