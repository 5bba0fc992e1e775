package filter

import (
	"regexp"
	"sort"
	"strings"
)

// exclusionFamilies expands a user term into the ingredient names that imply it.
var exclusionFamilies = map[string][]string{
	"pork":      {"pork", "ham", "bacon", "sausage", "prosciutto", "chorizo", "lard", "pancetta", "salami", "pepperoni", "guanciale"},
	"shellfish": {"shellfish", "shrimp", "prawn", "crab", "lobster", "clam", "mussel", "oyster", "scallop", "crayfish", "langoustine"},
	"potato":    {"potato", "hash brown", "french fries", "tater tot", "gnocchi"},
	"peanut":    {"peanut", "groundnut", "satay"},
	"tree nut":  {"almond", "cashew", "walnut", "pecan", "pistachio", "hazelnut", "macadamia", "brazil nut"},
	"dairy":     {"milk", "cheese", "butter", "cream", "yogurt", "yoghurt", "ghee", "whey", "casein"},
	"gluten":    {"wheat", "flour", "barley", "rye", "couscous", "seitan", "bulgur", "pasta", "bread"},
	"egg":       {"egg", "mayonnaise", "meringue"},
	"fish":      {"fish", "salmon", "tuna", "cod", "anchovy", "sardine", "trout", "mackerel", "halibut", "tilapia"},
	"soy":       {"soy", "tofu", "tempeh", "edamame", "miso"},
	"beef":      {"beef", "steak", "veal", "brisket"},
}

var familyAliases = map[string]string{
	"pig":       "pork",
	"pork meat": "pork",
	"seafood":   "shellfish",
	"prawns":    "shellfish",
	"potatoes":  "potato",
	"peanuts":   "peanut",
	"nuts":      "tree nut",
	"tree nuts": "tree nut",
	"lactose":   "dairy",
	"milk":      "dairy",
	"wheat":     "gluten",
	"eggs":      "egg",
	"soya":      "soy",
	"soybeans":  "soy",
	"red meat":  "beef",
}

// ExpandExclusions lowercases terms and adds every member of any family a term names.
// The result is sorted and de-duplicated.
func ExpandExclusions(terms []string) []string {
	set := make(map[string]struct{})
	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		set[t] = struct{}{}
		family := t
		if alias, ok := familyAliases[t]; ok {
			family = alias
		}
		for _, member := range exclusionFamilies[family] {
			set[member] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MatchExcluded returns the first term contained in text. Matching is plain
// substring containment, so "ham" also rejects "graham crackers".
func MatchExcluded(text string, terms []string) (string, bool) {
	text = strings.ToLower(text)
	for _, term := range terms {
		if term != "" && strings.Contains(text, term) {
			return term, true
		}
	}
	return "", false
}

var meatWords = []string{"chicken", "beef", "pork", "ham", "bacon", "lamb", "turkey", "duck", "veal", "sausage", "chorizo", "prosciutto", "gelatin", "steak", "mince"}

var seafoodWords = []string{"fish", "salmon", "tuna", "cod", "shrimp", "prawn", "anchovy", "sardine", "crab", "mussel", "clam"}

var animalProductWords = []string{"milk", "cheese", "butter", "cream", "yogurt", "yoghurt", "egg", "honey", "ghee", "whey", "mayonnaise", "parmesan", "mozzarella", "feta"}

// dietForbidden lists ingredient words incompatible with a diet type.
var dietForbidden = map[string][]string{
	"pescatarian": meatWords,
	"vegetarian":  concat(meatWords, seafoodWords),
	"vegan":       concat(meatWords, seafoodWords, animalProductWords),
}

// Plant-based ingredient names that contain a forbidden word but are compatible.
var dietSafePhrases = []string{
	"peanut butter", "almond butter", "cashew butter", "nut butter", "cocoa butter", "vegan butter",
	"coconut milk", "oat milk", "almond milk", "soy milk", "rice milk", "coconut cream",
	"vegan cheese", "vegan mayonnaise", "eggplant",
}

var wordSplit = regexp.MustCompile(`[^a-z]+`)

// DietConflict reports the first ingredient word in text that the diet forbids.
// Unlike exclusions it matches whole words (plural tolerant), so "eggplant" is fine for vegans.
func DietConflict(diet, text string) (string, bool) {
	forbidden := dietForbidden[diet]
	if len(forbidden) == 0 {
		return "", false
	}
	text = strings.ToLower(text)
	for _, phrase := range dietSafePhrases {
		text = strings.ReplaceAll(text, phrase, " ")
	}

	words := make(map[string]struct{})
	for _, w := range wordSplit.Split(text, -1) {
		if w == "" {
			continue
		}
		words[w] = struct{}{}
		words[strings.TrimSuffix(w, "s")] = struct{}{}
	}
	for _, f := range forbidden {
		if _, ok := words[f]; ok {
			return f, true
		}
	}
	return "", false
}

// DietForbidden returns the forbidden ingredient words for diet.
func DietForbidden(diet string) []string {
	return dietForbidden[diet]
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
