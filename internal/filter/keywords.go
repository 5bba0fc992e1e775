package filter

import (
	"regexp"
	"strconv"
	"strings"
)

type vocabEntry struct {
	phrase string
	value  string
}

var dietVocab = []vocabEntry{
	{"plant-based", "vegan"}, {"plant based", "vegan"}, {"vegan", "vegan"},
	{"vegetarian", "vegetarian"}, {"pescatarian", "pescatarian"},
	{"keto", "keto"}, {"paleo", "paleo"}, {"gluten-free", "gluten_free"}, {"gluten free", "gluten_free"},
	{"dairy-free", "dairy_free"}, {"dairy free", "dairy_free"}, {"low carb", "low_carb"}, {"low-carb", "low_carb"},
	{"halal", "halal"}, {"kosher", "kosher"},
}

var cuisineVocab = []string{
	"italian", "mexican", "indian", "chinese", "japanese", "thai", "french", "greek", "mediterranean",
	"korean", "spanish", "american", "middle eastern", "vietnamese", "moroccan", "turkish", "lebanese",
	"brazilian", "caribbean", "ethiopian",
}

var ingredientVocab = []string{
	"chicken", "salmon", "tuna", "tofu", "tempeh", "lentils", "chickpeas", "beans", "eggs", "spinach",
	"mushrooms", "quinoa", "rice", "pasta", "beef", "turkey", "shrimp", "avocado", "oats", "sweet potato",
	"broccoli", "kale", "cauliflower", "yogurt", "cheese", "peppers", "zucchini", "eggplant",
}

var avoidStopwords = map[string]bool{
	"more": true, "less": true, "longer": true, "time": true, "added": true, "extra": true,
	"too": true, "a": true, "the": true, "fuss": true, "cooking": true, "oven": true,
}

var (
	minutesRe = regexp.MustCompile(`(?:under|less than|within|max(?:imum)?|<)\s*(\d{1,3})\s*(?:min|mins|minutes)`)
	avoidRe   = regexp.MustCompile(`\b(?:no|without|avoid|allergic to)\s+([a-z]+)(?:\s+([a-z]+))?`)
)

// ExtractKeywords derives filters from free-text notes with fixed vocabularies.
// The confidence grows with the number of independent signals found.
func ExtractKeywords(notes string) (Filters, float64) {
	text := strings.ToLower(notes)
	var f Filters
	confidence := 0.0

	for _, v := range dietVocab {
		if strings.Contains(text, v.phrase) {
			f.DietTags = union(f.DietTags, []string{v.value})
		}
	}
	if len(f.DietTags) > 0 {
		confidence += 0.3
	}

	for _, c := range cuisineVocab {
		if strings.Contains(text, c) {
			f.Cuisine = c
			confidence += 0.25
			break
		}
	}

	if m := minutesRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			f.MaxTotalTimeMin = n
			confidence += 0.15
		}
	} else if strings.Contains(text, "quick") || strings.Contains(text, "fast") || strings.Contains(text, "busy") {
		f.MaxTotalTimeMin = 30
		confidence += 0.1
	}

	switch {
	case strings.Contains(text, "high protein") || strings.Contains(text, "high-protein") || strings.Contains(text, "more protein"):
		f.ProteinG = &Range{Min: floatPtr(25)}
		confidence += 0.2
	case strings.Contains(text, "low calorie") || strings.Contains(text, "low-calorie") || strings.Contains(text, "light meals"):
		f.Calories = &Range{Max: floatPtr(450)}
		confidence += 0.2
	}

	for _, m := range avoidRe.FindAllStringSubmatch(text, -1) {
		term := m[1]
		if pair := m[1] + " " + m[2]; m[2] != "" && knownPhrase(pair) {
			term = pair
		}
		if !avoidStopwords[term] {
			f.ExcludeIngredients = union(f.ExcludeIngredients, []string{term})
		}
	}
	if len(f.ExcludeIngredients) > 0 {
		confidence += 0.15
	}

	for _, ing := range ingredientVocab {
		if !strings.Contains(text, ing) {
			continue
		}
		if _, excluded := MatchExcluded(ing, f.ExcludeIngredients); excluded {
			continue
		}
		f.IncludeIngredients = union(f.IncludeIngredients, []string{ing})
		confidence += 0.1
	}

	if confidence > 1 {
		confidence = 1
	}
	return f, confidence
}

func floatPtr(v float64) *float64 {
	return &v
}

// knownPhrase reports whether a two-word phrase names a family or vocabulary ingredient.
func knownPhrase(p string) bool {
	if _, ok := familyAliases[p]; ok {
		return true
	}
	if _, ok := exclusionFamilies[p]; ok {
		return true
	}
	for _, ing := range ingredientVocab {
		if ing == p {
			return true
		}
	}
	return false
}
