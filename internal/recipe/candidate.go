package recipe

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SyntheticIDPrefix marks recipes generated by the LLM rather than read from the index.
const SyntheticIDPrefix = "llm-"

// IsSynthetic reports whether id belongs to an LLM-generated recipe.
func IsSynthetic(id string) bool {
	return strings.HasPrefix(id, SyntheticIDPrefix)
}

// Candidate is a recipe offered to the day planner for one meal type.
type Candidate struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description,omitempty"`
	Cuisine           string             `json:"cuisine,omitempty"`
	MealType          []string           `json:"meal_type,omitempty"`
	DietTags          []string           `json:"diet_tags,omitempty"`
	TotalTimeMin      int                `json:"total_time_min,omitempty"`
	Nutrition         Nutrition          `json:"nutrition"`
	Ingredients       []string           `json:"ingredients,omitempty"`
	IngredientsParsed []ParsedIngredient `json:"ingredients_parsed,omitempty"`
	Instructions      []string           `json:"instructions,omitempty"`
	Allergens         []string           `json:"allergens,omitempty"`
	URL               string             `json:"url,omitempty"`
}

// CandidateFromDocument converts an index document into the planner's normalized shape.
func CandidateFromDocument(d Document) Candidate {
	nutrition := d.Nutrition
	if len(d.Extra) > 0 {
		nutrition = nutrition.Merge(NormalizeNutrition(d.Extra))
	}

	ingredients := []string(d.IngredientsRaw)
	if len(ingredients) == 0 {
		ingredients = d.IngredientsNorm
	}
	if len(ingredients) == 0 {
		for _, p := range d.IngredientsParsed {
			ingredients = append(ingredients, p.Name)
		}
	}

	instructions := make([]string, 0, len(d.Instructions))
	for _, step := range d.Instructions {
		if step = PlainText(step); step != "" {
			instructions = append(instructions, step)
		}
	}

	return Candidate{
		ID:                d.ID,
		Title:             strings.TrimSpace(d.Title),
		Description:       PlainText(d.Description),
		Cuisine:           NormalizeCuisine(d.Cuisine),
		MealType:          d.MealType,
		DietTags:          d.DietTags,
		TotalTimeMin:      d.TotalTimeMinutes,
		Nutrition:         nutrition,
		Ingredients:       ingredients,
		IngredientsParsed: d.IngredientsParsed,
		Instructions:      instructions,
		Allergens:         d.Allergens,
		URL:               d.URL,
	}
}

// Usable is the quality gate: a candidate needs a title, instructions and ingredients.
func (c Candidate) Usable() bool {
	return strings.TrimSpace(c.Title) != "" &&
		len(c.Instructions) > 0 &&
		(len(c.Ingredients) > 0 || len(c.IngredientsParsed) > 0)
}

// Synthetic reports whether the candidate was generated by the LLM.
func (c Candidate) Synthetic() bool {
	return IsSynthetic(c.ID)
}

// HasDietTag reports whether the candidate carries tag.
func (c Candidate) HasDietTag(tag string) bool {
	tag = NormalizeTag(tag)
	for _, t := range c.DietTags {
		if NormalizeTag(t) == tag {
			return true
		}
	}
	return false
}

// SearchableText is the lowercase text exclusion checks run against: title,
// ingredients and allergens.
func (c Candidate) SearchableText() string {
	parts := []string{c.Title}
	parts = append(parts, c.Ingredients...)
	for _, p := range c.IngredientsParsed {
		parts = append(parts, p.Name)
	}
	parts = append(parts, c.Allergens...)
	return strings.ToLower(strings.Join(parts, " | "))
}

// SearchableText is the lowercase text exclusion checks run against.
func (d Document) SearchableText() string {
	parts := []string{d.Title}
	parts = append(parts, d.IngredientsRaw...)
	parts = append(parts, d.IngredientsNorm...)
	for _, p := range d.IngredientsParsed {
		parts = append(parts, p.Name)
	}
	parts = append(parts, d.Allergens...)
	return strings.ToLower(strings.Join(parts, " | "))
}

// Parsed returns structured ingredients, deriving name-only entries from raw lines when needed.
func (c Candidate) Parsed() []ParsedIngredient {
	if len(c.IngredientsParsed) > 0 {
		return c.IngredientsParsed
	}
	out := make([]ParsedIngredient, 0, len(c.Ingredients))
	for _, ing := range c.Ingredients {
		out = append(out, ParsedIngredient{Name: ing})
	}
	return out
}

// PlainText strips HTML markup, returning s unchanged when it has none.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
