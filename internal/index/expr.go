package index

import (
	"fmt"
	"strconv"
	"strings"

	"grounded-meal-planner/internal/filter"
)

// Dialect selects the filter expression syntax of a backend.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
	DialectMeilisearch
)

func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectMeilisearch:
		return "meilisearch"
	default:
		return "sqlite"
	}
}

// BuildExpression compiles the scalar part of f into a boolean expression for d.
// Exclusions are never compiled; they are applied after retrieval. An empty
// string means no constraint.
func BuildExpression(f filter.Filters, d Dialect) string {
	b := exprBuilder{dialect: d}

	if len(f.DietTags) > 0 {
		b.anyOf("diet_tags", f.DietTags)
	}
	if f.MealType != "" {
		b.anyOf("meal_type", []string{string(f.MealType)})
	}
	if f.Cuisine != "" {
		b.add(fmt.Sprintf("cuisine = %s", b.literal(f.Cuisine)))
	}
	if f.MaxTotalTimeMin > 0 {
		b.numeric("total_time_minutes", nil, floatPtr(float64(f.MaxTotalTimeMin)))
	}
	if !f.Calories.IsZero() {
		b.numeric("calories", f.Calories.Min, f.Calories.Max)
	}
	if !f.ProteinG.IsZero() {
		b.numeric("protein_g", f.ProteinG.Min, f.ProteinG.Max)
	}
	if anchor, _ := f.AnchorIngredient(); anchor != "" {
		b.ingredient(anchor)
	}
	return strings.Join(b.clauses, " AND ")
}

type exprBuilder struct {
	dialect Dialect
	clauses []string
}

func (b *exprBuilder) add(clause string) {
	b.clauses = append(b.clauses, clause)
}

func (b *exprBuilder) like() string {
	if b.dialect == DialectPostgres {
		return "ILIKE"
	}
	return "LIKE"
}

// anyOf matches documents whose list column contains any of values.
func (b *exprBuilder) anyOf(column string, values []string) {
	if b.dialect == DialectMeilisearch {
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = b.literal(v)
		}
		b.add(fmt.Sprintf("%s IN [%s]", column, strings.Join(quoted, ", ")))
		return
	}

	ors := make([]string, len(values))
	for i, v := range values {
		ors[i] = fmt.Sprintf("%s %s %s ESCAPE '\\'", column, b.like(), sqlQuote("%"+escapeLike(v)+"%"))
	}
	b.add("(" + strings.Join(ors, " OR ") + ")")
}

func (b *exprBuilder) ingredient(name string) {
	if b.dialect == DialectMeilisearch {
		b.add(fmt.Sprintf("ingredients_norm = %s", b.literal(name)))
		return
	}
	pattern := sqlQuote("%" + escapeLike(name) + "%")
	b.add(fmt.Sprintf("(ingredients_norm %[1]s %[2]s ESCAPE '\\' OR ingredients_raw %[1]s %[2]s ESCAPE '\\')", b.like(), pattern))
}

// numeric adds an inclusive range; documents without the field still match.
func (b *exprBuilder) numeric(column string, lo, hi *float64) {
	var bounds []string
	if lo != nil {
		bounds = append(bounds, fmt.Sprintf("%s >= %s", column, formatNumber(*lo)))
	}
	if hi != nil {
		bounds = append(bounds, fmt.Sprintf("%s <= %s", column, formatNumber(*hi)))
	}
	if len(bounds) == 0 {
		return
	}
	missing := column + " IS NULL"
	if b.dialect == DialectMeilisearch {
		missing = fmt.Sprintf("%s NOT EXISTS OR %s IS NULL", column, column)
	}
	b.add(fmt.Sprintf("(%s OR (%s))", missing, strings.Join(bounds, " AND ")))
}

func (b *exprBuilder) literal(s string) string {
	if b.dialect == DialectMeilisearch {
		return meiliQuote(s)
	}
	return sqlQuote(s)
}

func sqlQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(s))
}

func meiliQuote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func floatPtr(v float64) *float64 {
	return &v
}
