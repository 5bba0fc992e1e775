package shopping

import (
	"cmp"
	"slices"
	"strings"

	"grounded-meal-planner/internal/plan"
	"grounded-meal-planner/internal/recipe"
)

// OtherCategory holds items whose recipe gave no category.
const OtherCategory = "other"

// FromPlan sums the ingredients of every planned recipe. Lines with the same
// normalized name and unit are merged; a line without an amount only counts
// toward Recipes. Items are sorted by category, then name.
func FromPlan(p plan.MealPlan) ShoppingList {
	type key struct{ name, unit string }
	byKey := make(map[key]*Item)

	for _, d := range p.Days {
		for _, m := range d.Meals {
			for _, r := range m.Recipes {
				for _, ing := range r.Ingredients {
					name := recipe.NormalizeIngredient(ing.Name)
					if name == "" {
						continue
					}
					k := key{name: name, unit: strings.ToLower(strings.TrimSpace(ing.Unit))}
					item, ok := byKey[k]
					if !ok {
						item = &Item{Name: name, Unit: k.unit, Category: OtherCategory}
						byKey[k] = item
					}
					if c := strings.ToLower(strings.TrimSpace(ing.Category)); c != "" && item.Category == OtherCategory {
						item.Category = c
					}
					item.Amount += float64(ing.Amount)
					item.Recipes++
				}
			}
		}
	}

	items := make([]Item, 0, len(byKey))
	for _, item := range byKey {
		items = append(items, *item)
	}
	slices.SortFunc(items, func(a, b Item) int {
		return cmp.Or(
			cmp.Compare(a.Category, b.Category),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Unit, b.Unit),
		)
	})
	return ShoppingList{PlanID: p.ID.String(), Items: items}
}
