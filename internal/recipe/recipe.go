package recipe

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MealType is one of the four daily meal slots.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

// MealTypes lists the meal slots in the order they appear in a day.
var MealTypes = []MealType{Breakfast, Lunch, Dinner, Snack}

// ParseMealType maps common spellings ("Brunch", "supper") onto a MealType.
func ParseMealType(s string) (MealType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "breakfast", "brunch":
		return Breakfast, true
	case "lunch":
		return Lunch, true
	case "dinner", "supper":
		return Dinner, true
	case "snack", "snacks", "dessert":
		return Snack, true
	}
	return "", false
}

// StringList decodes either a JSON array of strings or a single delimited string.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = cleanList(list)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = SplitList(s)
	return nil
}

// SplitList splits newline-delimited text, or comma-delimited text when it has no newlines.
func SplitList(s string) []string {
	sep := ","
	if strings.Contains(s, "\n") {
		sep = "\n"
	}
	return cleanList(strings.Split(s, sep))
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

var fractionRe = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)$`)

// Quantity is an ingredient amount that also accepts numeric strings like "1.5" or "1 1/2".
type Quantity float64

func (q *Quantity) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*q = Quantity(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*q = 0
		return nil
	}
	*q = Quantity(parseAmount(s))
	return nil
}

func parseAmount(s string) float64 {
	var total float64
	for _, part := range strings.Fields(strings.TrimSpace(s)) {
		if m := fractionRe.FindStringSubmatch(part); m != nil {
			num, _ := strconv.ParseFloat(m[1], 64)
			den, _ := strconv.ParseFloat(m[2], 64)
			if den != 0 {
				total += num / den
			}
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			break
		}
		total += f
	}
	return total
}

// ParsedIngredient is one structured ingredient line.
type ParsedIngredient struct {
	Name     string   `json:"name"`
	Amount   Quantity `json:"amount,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Category string   `json:"category,omitempty"`
}

// Document is a recipe as stored in the recipe index.
type Document struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description,omitempty"`
	Cuisine           string             `json:"cuisine,omitempty"`
	MealType          StringList         `json:"meal_type,omitempty"`
	DietTags          StringList         `json:"diet_tags,omitempty"`
	IngredientsRaw    StringList         `json:"ingredients_raw,omitempty"`
	IngredientsNorm   StringList         `json:"ingredients_norm,omitempty"`
	IngredientsParsed []ParsedIngredient `json:"ingredients_parsed,omitempty"`
	Instructions      StringList         `json:"instructions,omitempty"`
	Allergens         StringList         `json:"allergens,omitempty"`
	Nutrition         Nutrition          `json:"nutrition"`
	TotalTimeMinutes  int                `json:"total_time_minutes,omitempty"`
	URL               string             `json:"url,omitempty"`
	Embedding         []float32          `json:"embedding,omitempty"`

	// Extra holds unmapped fields from a flattened index record.
	Extra map[string]any `json:"-"`
}

// Normalize canonicalizes cuisine, meal types, tags and fills ingredients_norm when absent.
func (d *Document) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Cuisine = NormalizeCuisine(d.Cuisine)

	mealTypes := make([]string, 0, len(d.MealType))
	for _, mt := range d.MealType {
		if parsed, ok := ParseMealType(mt); ok {
			mealTypes = appendUnique(mealTypes, string(parsed))
		}
	}
	d.MealType = mealTypes

	tags := make([]string, 0, len(d.DietTags))
	for _, tag := range d.DietTags {
		tags = appendUnique(tags, NormalizeTag(tag))
	}
	d.DietTags = tags

	if len(d.IngredientsNorm) == 0 {
		var norm []string
		for _, p := range d.IngredientsParsed {
			norm = appendUnique(norm, NormalizeIngredient(p.Name))
		}
		if len(norm) == 0 {
			for _, raw := range d.IngredientsRaw {
				norm = appendUnique(norm, NormalizeIngredient(raw))
			}
		}
		d.IngredientsNorm = norm
	}
}

// HasMealType reports whether the document is tagged for mt.
func (d Document) HasMealType(mt MealType) bool {
	for _, m := range d.MealType {
		if m == string(mt) {
			return true
		}
	}
	return false
}

// EmbeddingText is the text embedded for vector search.
func (d Document) EmbeddingText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", d.Title)
	if d.Cuisine != "" {
		fmt.Fprintf(&sb, "Cuisine: %s\n", d.Cuisine)
	}
	if len(d.DietTags) > 0 {
		fmt.Fprintf(&sb, "Tags: %s\n", strings.Join(d.DietTags, ", "))
	}
	ingredients := d.IngredientsNorm
	if len(ingredients) == 0 {
		ingredients = d.IngredientsRaw
	}
	fmt.Fprintf(&sb, "Ingredients: %s", strings.Join(ingredients, ", "))
	if d.Description != "" {
		fmt.Fprintf(&sb, "\nDescription: %s", PlainText(d.Description))
	}
	return sb.String()
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeCuisine lowercases and joins words with underscores ("Middle Eastern" -> "middle_eastern").
func NormalizeCuisine(s string) string {
	return strings.Trim(nonWord.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_"), "_")
}

// NormalizeTag canonicalizes a diet tag ("Gluten Free" -> "gluten_free").
func NormalizeTag(s string) string {
	return NormalizeCuisine(s)
}

var quantityPrefix = regexp.MustCompile(`^[\d\s/.,½¼¾⅓⅔-]+`)

var units = map[string]bool{
	"cup": true, "cups": true, "tbsp": true, "tsp": true, "tablespoon": true, "tablespoons": true,
	"teaspoon": true, "teaspoons": true, "g": true, "gram": true, "grams": true, "kg": true,
	"ml": true, "l": true, "oz": true, "ounce": true, "ounces": true, "lb": true, "lbs": true,
	"pound": true, "pounds": true, "pinch": true, "clove": true, "cloves": true, "can": true,
	"cans": true, "slice": true, "slices": true, "handful": true, "of": true,
}

// NormalizeIngredient reduces an ingredient line to a lowercase name token
// ("2 cups Rolled Oats, divided" -> "rolled oats").
func NormalizeIngredient(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, ",("); i >= 0 {
		s = s[:i]
	}
	s = quantityPrefix.ReplaceAllString(s, "")
	words := strings.Fields(s)
	for len(words) > 1 && units[words[0]] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
