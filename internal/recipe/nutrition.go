package recipe

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Nutrition is a per-serving macro estimate. Every field is optional.
type Nutrition struct {
	Calories *float64 `json:"calories,omitempty"`
	ProteinG *float64 `json:"protein_g,omitempty"`
	CarbsG   *float64 `json:"carbs_g,omitempty"`
	FatG     *float64 `json:"fat_g,omitempty"`
	FiberG   *float64 `json:"fiber_g,omitempty"`
	SugarG   *float64 `json:"sugar_g,omitempty"`
}

// Accepted source names per canonical field, in priority order.
var nutritionAliases = []struct {
	field   string
	aliases []string
}{
	{"calories", []string{"calories", "kcal", "calories_kcal", "energy_kcal", "energy", "cal", "calorie"}},
	{"protein_g", []string{"protein_g", "protein_grams", "protein", "proteins", "protein_content"}},
	{"carbs_g", []string{"carbs_g", "carbs_grams", "carbs", "carbohydrates_g", "carbohydrates", "carbohydrate", "total_carbs"}},
	{"fat_g", []string{"fat_g", "fat_grams", "fat", "fats", "total_fat"}},
	{"fiber_g", []string{"fiber_g", "fiber_grams", "fiber", "fibre", "dietary_fiber"}},
	{"sugar_g", []string{"sugar_g", "sugar_grams", "sugar", "sugars"}},
}

// NormalizeNutrition maps heterogeneous macro field names onto Nutrition. A nested
// "nutrition" object takes precedence over top-level fields.
func NormalizeNutrition(raw map[string]any) Nutrition {
	if raw == nil {
		return Nutrition{}
	}

	flat := make(map[string]any, len(raw))
	for k, v := range raw {
		flat[normalizeKey(k)] = v
	}

	var n Nutrition
	if nested, ok := flat["nutrition"].(map[string]any); ok {
		n = NormalizeNutrition(nested)
	}

	for _, entry := range nutritionAliases {
		target := n.field(entry.field)
		if *target != nil {
			continue
		}
		for _, alias := range entry.aliases {
			if v, ok := toFloat(flat[alias]); ok {
				*target = &v
				break
			}
		}
	}
	return n
}

func (n *Nutrition) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		*n = Nutrition{}
		return nil
	}
	*n = NormalizeNutrition(raw)
	return nil
}

func (n *Nutrition) field(name string) **float64 {
	switch name {
	case "calories":
		return &n.Calories
	case "protein_g":
		return &n.ProteinG
	case "carbs_g":
		return &n.CarbsG
	case "fat_g":
		return &n.FatG
	case "fiber_g":
		return &n.FiberG
	default:
		return &n.SugarG
	}
}

// IsEmpty reports whether no macro is known.
func (n Nutrition) IsEmpty() bool {
	return n.Calories == nil && n.ProteinG == nil && n.CarbsG == nil &&
		n.FatG == nil && n.FiberG == nil && n.SugarG == nil
}

// Merge fills fields missing in n from o.
func (n Nutrition) Merge(o Nutrition) Nutrition {
	for _, entry := range nutritionAliases {
		dst := n.field(entry.field)
		if *dst == nil {
			*dst = *o.field(entry.field)
		}
	}
	return n
}

// Add sums two nutrition records treating missing values as zero. A field stays
// unset only when both sides lack it.
func (n Nutrition) Add(o Nutrition) Nutrition {
	var out Nutrition
	for _, entry := range nutritionAliases {
		a, b := *n.field(entry.field), *o.field(entry.field)
		if a == nil && b == nil {
			continue
		}
		sum := deref(a) + deref(b)
		*out.field(entry.field) = &sum
	}
	return out
}

// CaloriesOrZero returns the calorie estimate or 0.
func (n Nutrition) CaloriesOrZero() float64 {
	return deref(n.Calories)
}

// ProteinOrZero returns the protein estimate or 0.
func (n Nutrition) ProteinOrZero() float64 {
	return deref(n.ProteinG)
}

// Float returns a pointer to v for building Nutrition literals.
func Float(v float64) *float64 {
	return &v
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.NewReplacer(" ", "_", "-", "_", "(", "", ")", "").Replace(k)
	return k
}

var leadingNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		m := leadingNumber.FindString(strings.ReplaceAll(x, ",", ""))
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m, 64)
		return f, err == nil
	}
	return 0, false
}

// DefaultNutrition is the placeholder estimate used for generated recipes
// that come without macros.
func DefaultNutrition(mt MealType) Nutrition {
	var cal, protein, carbs, fat float64
	switch mt {
	case Breakfast:
		cal, protein, carbs, fat = 400, 20, 50, 14
	case Lunch:
		cal, protein, carbs, fat = 550, 30, 60, 18
	case Dinner:
		cal, protein, carbs, fat = 650, 35, 65, 22
	default:
		cal, protein, carbs, fat = 200, 8, 22, 8
	}
	return Nutrition{Calories: &cal, ProteinG: &protein, CarbsG: &carbs, FatG: &fat}
}
