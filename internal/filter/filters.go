package filter

import (
	"encoding/json"
	"slices"
	"strings"

	"grounded-meal-planner/internal/recipe"
)

// Range is an inclusive numeric interval; either bound may be open.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// UnmarshalJSON also accepts a two-element array [min, max].
func (r *Range) UnmarshalJSON(data []byte) error {
	var pair []*float64
	if err := json.Unmarshal(data, &pair); err == nil {
		*r = Range{}
		if len(pair) > 0 {
			r.Min = pair[0]
		}
		if len(pair) > 1 {
			r.Max = pair[1]
		}
		return nil
	}
	type plain Range
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Range(p)
	return nil
}

// IsZero reports whether neither bound is set.
func (r *Range) IsZero() bool {
	return r == nil || (r.Min == nil && r.Max == nil)
}

// Filters is the structured query handed to the recipe index.
type Filters struct {
	MealType           recipe.MealType `json:"meal_type,omitempty"`
	DietTags           []string        `json:"diet_tags,omitempty"`
	IncludeIngredients []string        `json:"include_ingredients,omitempty"`
	ExcludeIngredients []string        `json:"exclude_ingredients,omitempty"`
	Cuisine            string          `json:"cuisine,omitempty"`
	MaxTotalTimeMin    int             `json:"max_total_time_min,omitempty"`
	Calories           *Range          `json:"calories_range,omitempty"`
	ProteinG           *Range          `json:"protein_g_range,omitempty"`
	GoalFit            []string        `json:"goal_fit,omitempty"`
	ActivityFit        []string        `json:"activity_fit,omitempty"`
	// Query is free text used to build the query vector.
	Query       string    `json:"query,omitempty"`
	QueryVector []float32 `json:"-"`
}

// Clone returns a deep copy.
func (f Filters) Clone() Filters {
	out := f
	out.DietTags = slices.Clone(f.DietTags)
	out.IncludeIngredients = slices.Clone(f.IncludeIngredients)
	out.ExcludeIngredients = slices.Clone(f.ExcludeIngredients)
	out.GoalFit = slices.Clone(f.GoalFit)
	out.ActivityFit = slices.Clone(f.ActivityFit)
	out.QueryVector = slices.Clone(f.QueryVector)
	if f.Calories != nil {
		c := *f.Calories
		out.Calories = &c
	}
	if f.ProteinG != nil {
		p := *f.ProteinG
		out.ProteinG = &p
	}
	return out
}

// WithoutDietTags is the relaxed form used when a diet-tagged query finds nothing.
func (f Filters) WithoutDietTags() Filters {
	out := f.Clone()
	out.DietTags = nil
	return out
}

// AnchorIngredient splits include_ingredients into the required first entry and
// the remaining optional boosts.
func (f Filters) AnchorIngredient() (anchor string, boosts []string) {
	if len(f.IncludeIngredients) == 0 {
		return "", nil
	}
	return f.IncludeIngredients[0], f.IncludeIngredients[1:]
}

// Merge overlays o onto f: scalars from o win when set, lists are unioned.
func (f Filters) Merge(o Filters) Filters {
	out := f.Clone()
	if o.MealType != "" {
		out.MealType = o.MealType
	}
	if o.Cuisine != "" {
		out.Cuisine = o.Cuisine
	}
	if o.MaxTotalTimeMin > 0 {
		out.MaxTotalTimeMin = o.MaxTotalTimeMin
	}
	if !o.Calories.IsZero() {
		c := *o.Calories
		out.Calories = &c
	}
	if !o.ProteinG.IsZero() {
		p := *o.ProteinG
		out.ProteinG = &p
	}
	if o.Query != "" {
		out.Query = o.Query
	}
	out.DietTags = union(out.DietTags, o.DietTags)
	out.IncludeIngredients = union(out.IncludeIngredients, o.IncludeIngredients)
	out.ExcludeIngredients = union(out.ExcludeIngredients, o.ExcludeIngredients)
	out.GoalFit = union(out.GoalFit, o.GoalFit)
	out.ActivityFit = union(out.ActivityFit, o.ActivityFit)
	return out
}

// normalize canonicalizes tags, cuisine and ingredient case and re-expands exclusions.
func (f Filters) normalize() Filters {
	out := f.Clone()
	out.Cuisine = recipe.NormalizeCuisine(out.Cuisine)
	out.DietTags = mapUnique(out.DietTags, recipe.NormalizeTag)
	out.GoalFit = mapUnique(out.GoalFit, recipe.NormalizeTag)
	out.ActivityFit = mapUnique(out.ActivityFit, recipe.NormalizeTag)
	out.IncludeIngredients = mapUnique(out.IncludeIngredients, recipe.NormalizeIngredient)
	out.ExcludeIngredients = ExpandExclusions(out.ExcludeIngredients)

	// an ingredient cannot be both required and excluded
	if len(out.ExcludeIngredients) > 0 {
		kept := out.IncludeIngredients[:0]
		for _, ing := range out.IncludeIngredients {
			if _, hit := MatchExcluded(ing, out.ExcludeIngredients); !hit {
				kept = append(kept, ing)
			}
		}
		out.IncludeIngredients = kept
	}
	if len(out.IncludeIngredients) == 0 {
		out.IncludeIngredients = nil
	}
	return out
}

func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, s := range b {
		if s = strings.TrimSpace(s); s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func mapUnique(in []string, fn func(string) string) []string {
	var out []string
	for _, s := range in {
		if v := fn(s); v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
