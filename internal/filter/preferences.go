package filter

import "strings"

// Preferences describe the user a plan is generated for.
type Preferences struct {
	DietType        string   `json:"diet_type,omitempty"`
	Allergies       []string `json:"allergies,omitempty"`
	Dislikes        []string `json:"dislikes,omitempty"`
	Goals           []string `json:"goals,omitempty"`
	ActivityLevel   string   `json:"activity_level,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	Cuisines        []string `json:"cuisines,omitempty"`
	MaxTotalTimeMin int      `json:"max_total_time_min,omitempty"`
	// CalorieTarget is the daily calorie goal; zero means unspecified.
	CalorieTarget int `json:"calorie_target,omitempty"`
}

// Exclusions returns the synonym-expanded allergy and dislike terms.
func (p Preferences) Exclusions() []string {
	raw := make([]string, 0, len(p.Allergies)+len(p.Dislikes))
	raw = append(raw, p.Allergies...)
	raw = append(raw, p.Dislikes...)
	return ExpandExclusions(raw)
}

// Diet returns the canonical diet type ("plant based" -> "vegan").
func (p Preferences) Diet() string {
	d := strings.ToLower(strings.TrimSpace(p.DietType))
	d = strings.NewReplacer("-", " ", "_", " ").Replace(d)
	switch d {
	case "", "none", "omnivore", "any", "no preference":
		return ""
	case "plant based", "vegan":
		return "vegan"
	case "vegetarian", "veggie", "lacto ovo vegetarian":
		return "vegetarian"
	case "pescatarian", "pescetarian":
		return "pescatarian"
	}
	return strings.ReplaceAll(d, " ", "_")
}

// mealCalorieShare is the fraction of the daily target each meal is budgeted.
var mealCalorieShare = map[string]float64{
	"breakfast": 0.25,
	"lunch":     0.32,
	"dinner":    0.33,
	"snack":     0.10,
}
