package fallback

import "grounded-meal-planner/internal/recipe"

// component is one ingredient slot of a blueprint.
type component struct {
	Name     string
	Amount   float64
	Unit     string
	Category string
}

// blueprintLibrary lists the components a fallback recipe is assembled from,
// per meal type: a base, a protein and a produce item.
type blueprintLibrary struct {
	Bases    []component
	Proteins []component
	Produce  []component
	Minutes  int
}

var library = map[recipe.MealType]blueprintLibrary{
	recipe.Breakfast: {
		Bases: []component{
			{"rolled oats", 60, "g", "grains"},
			{"whole grain toast", 2, "slices", "bakery"},
			{"buckwheat pancakes", 3, "pieces", "grains"},
			{"chia pudding", 1, "cup", "pantry"},
			{"quinoa porridge", 1, "cup", "grains"},
		},
		Proteins: []component{
			{"eggs", 2, "", "protein"},
			{"greek yogurt", 150, "g", "dairy"},
			{"smoked salmon", 60, "g", "seafood"},
			{"tofu", 120, "g", "protein"},
			{"almond butter", 2, "tbsp", "pantry"},
			{"hemp seeds", 2, "tbsp", "pantry"},
		},
		Produce: []component{
			{"blueberries", 80, "g", "produce"},
			{"banana", 1, "", "produce"},
			{"spinach", 40, "g", "produce"},
			{"strawberries", 80, "g", "produce"},
			{"avocado", 0.5, "", "produce"},
		},
		Minutes: 15,
	},
	recipe.Lunch: {
		Bases: []component{
			{"brown rice", 150, "g", "grains"},
			{"whole wheat wrap", 1, "", "bakery"},
			{"quinoa", 150, "g", "grains"},
			{"mixed greens", 80, "g", "produce"},
			{"soba noodles", 120, "g", "grains"},
		},
		Proteins: []component{
			{"grilled chicken", 150, "g", "protein"},
			{"chickpeas", 150, "g", "legumes"},
			{"tuna", 120, "g", "seafood"},
			{"black beans", 150, "g", "legumes"},
			{"feta cheese", 50, "g", "dairy"},
			{"tempeh", 120, "g", "protein"},
		},
		Produce: []component{
			{"cherry tomatoes", 100, "g", "produce"},
			{"cucumber", 0.5, "", "produce"},
			{"roasted peppers", 80, "g", "produce"},
			{"shredded carrots", 60, "g", "produce"},
			{"kale", 50, "g", "produce"},
		},
		Minutes: 25,
	},
	recipe.Dinner: {
		Bases: []component{
			{"basmati rice", 150, "g", "grains"},
			{"whole wheat pasta", 100, "g", "grains"},
			{"sweet potato", 1, "", "produce"},
			{"couscous", 120, "g", "grains"},
			{"polenta", 150, "g", "grains"},
		},
		Proteins: []component{
			{"chicken thighs", 180, "g", "protein"},
			{"salmon fillet", 160, "g", "seafood"},
			{"lentils", 180, "g", "legumes"},
			{"lean beef", 150, "g", "protein"},
			{"firm tofu", 180, "g", "protein"},
			{"white beans", 180, "g", "legumes"},
		},
		Produce: []component{
			{"broccoli", 120, "g", "produce"},
			{"zucchini", 1, "", "produce"},
			{"green beans", 100, "g", "produce"},
			{"mushrooms", 100, "g", "produce"},
			{"cauliflower", 120, "g", "produce"},
		},
		Minutes: 35,
	},
	recipe.Snack: {
		Bases: []component{
			{"rice cakes", 2, "", "pantry"},
			{"whole grain crackers", 6, "", "pantry"},
			{"oat bar", 1, "", "pantry"},
			{"apple slices", 1, "", "produce"},
		},
		Proteins: []component{
			{"hummus", 3, "tbsp", "legumes"},
			{"cottage cheese", 100, "g", "dairy"},
			{"roasted chickpeas", 40, "g", "legumes"},
			{"peanut butter", 1, "tbsp", "pantry"},
			{"pumpkin seeds", 2, "tbsp", "pantry"},
		},
		Produce: []component{
			{"carrot sticks", 80, "g", "produce"},
			{"grapes", 80, "g", "produce"},
			{"celery", 2, "stalks", "produce"},
			{"pear", 1, "", "produce"},
		},
		Minutes: 5,
	},
}

// lastResort is used when every option of a slot was filtered out.
var lastResort = []component{
	{"seasonal vegetables", 150, "g", "produce"},
	{"steamed rice", 150, "g", "grains"},
	{"fresh herbs", 1, "handful", "produce"},
}

// nameTemplates are filled with {protein}, {produce} and {base}.
var nameTemplates = map[string][]string{
	"": {
		"{protein} and {produce} {base}",
		"{base} with {protein} and {produce}",
		"Simple {protein} {base} Bowl",
	},
	"italian": {
		"Rustic {protein} {base} with {produce}",
		"{base} al Forno with {protein}",
	},
	"mexican": {
		"{protein} and {produce} {base} Fiesta",
		"Smoky {protein} {base} with {produce} Salsa",
	},
	"japanese": {
		"{protein} {base} Donburi with {produce}",
		"Miso-glazed {protein} over {base}",
	},
	"indian": {
		"Masala {protein} with {produce} and {base}",
		"Spiced {produce} and {protein} {base}",
	},
	"mediterranean": {
		"Mediterranean {protein} {base} with {produce}",
		"Lemon-herb {protein} and {produce} {base}",
	},
	"thai": {
		"Thai Basil {protein} with {produce} and {base}",
	},
}

var pantryExtras = []recipe.ParsedIngredient{
	{Name: "olive oil", Amount: 1, Unit: "tsp", Category: "pantry"},
	{Name: "salt and pepper", Category: "pantry"},
}
