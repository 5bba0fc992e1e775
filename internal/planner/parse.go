package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"grounded-meal-planner/internal/llm"
	"grounded-meal-planner/internal/recipe"
)

// selection is what the model proposed for one meal.
type selection struct {
	Type        string           `json:"type"`
	MealType    string           `json:"meal_type"`
	RecipeID    string           `json:"recipeId"`
	RecipeIDAlt string           `json:"recipe_id"`
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Nutrition   recipe.Nutrition `json:"nutrition"`
	Ingredients []any            `json:"ingredients"`
	Tags        []string         `json:"tags"`
	Difficulty  string           `json:"difficulty"`
	Recipes     []selection      `json:"recipes"`
}

// recipeID returns the chosen id under any of its accepted spellings.
func (s selection) recipeID() string {
	for _, id := range []string{s.RecipeID, s.RecipeIDAlt, s.ID} {
		if id = strings.TrimSpace(id); id != "" {
			return id
		}
	}
	if len(s.Recipes) > 0 {
		return s.Recipes[0].recipeID()
	}
	return ""
}

func (s selection) mealType() (recipe.MealType, bool) {
	if mt, ok := recipe.ParseMealType(s.Type); ok {
		return mt, true
	}
	return recipe.ParseMealType(s.MealType)
}

// parsedIngredients converts the model's ingredient list, which may hold
// plain strings or objects.
func (s selection) parsedIngredients() []recipe.ParsedIngredient {
	var out []recipe.ParsedIngredient
	for _, item := range s.Ingredients {
		switch v := item.(type) {
		case string:
			if name := strings.TrimSpace(v); name != "" {
				out = append(out, recipe.ParsedIngredient{Name: name})
			}
		case map[string]any:
			raw, err := json.Marshal(v)
			if err != nil {
				continue
			}
			var p recipe.ParsedIngredient
			if json.Unmarshal(raw, &p) == nil && strings.TrimSpace(p.Name) != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// parseDay decodes a day response. It accepts {"meals": [...]},
// {"meals": {"breakfast": {...}}} and {"breakfast": {...}, ...}.
func parseDay(raw string) (map[recipe.MealType]selection, error) {
	var top map[string]json.RawMessage
	if err := llm.DecodeJSON(raw, &top); err != nil {
		return nil, err
	}

	body := top
	if meals, ok := top["meals"]; ok {
		var list []selection
		if err := json.Unmarshal(meals, &list); err == nil {
			return byMealType(list), nil
		}
		if err := json.Unmarshal(meals, &body); err != nil {
			return nil, fmt.Errorf("unexpected meals shape: %w", llm.ErrUnparseable)
		}
	}

	out := make(map[recipe.MealType]selection)
	for key, msg := range body {
		mt, ok := recipe.ParseMealType(key)
		if !ok {
			continue
		}
		var s selection
		if err := json.Unmarshal(msg, &s); err != nil {
			// a bare id string
			var id string
			if json.Unmarshal(msg, &id) != nil {
				continue
			}
			s.ID = id
		}
		out[mt] = s
	}
	return out, nil
}

func byMealType(list []selection) map[recipe.MealType]selection {
	out := make(map[recipe.MealType]selection, len(list))
	for _, s := range list {
		mt, ok := s.mealType()
		if !ok {
			continue
		}
		if _, dup := out[mt]; !dup {
			out[mt] = s
		}
	}
	return out
}
