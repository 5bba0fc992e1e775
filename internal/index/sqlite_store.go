package index

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"grounded-meal-planner/internal/logger"
	"grounded-meal-planner/internal/recipe"
)

const recipeColumns = `r.id, r.title, r.description, r.cuisine, r.meal_type, r.diet_tags,
	r.ingredients_raw, r.ingredients_norm, r.allergens, r.calories, r.protein_g, r.carbs_g,
	r.fat_g, r.fiber_g, r.sugar_g, r.total_time_minutes, r.url, r.payload`

// SQLiteStore keeps recipes and their embeddings in SQLite. Vector ranking is
// computed in process over the rows that pass the scalar expression.
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
}

// NewSQLiteStore creates a store over a migrated database.
func NewSQLiteStore(d *sql.DB, log *logger.Logger) *SQLiteStore {
	return &SQLiteStore{db: d, log: logger.OrNop(log)}
}

func (s *SQLiteStore) Dialect() Dialect {
	return DialectSQLite
}

func (s *SQLiteStore) wrap(op string, err error) error {
	return &StoreError{Backend: "sqlite", Op: op, Err: err}
}

// Search runs the scalar expression and, when q.Vector is set, ranks the
// matching rows by cosine similarity.
func (s *SQLiteStore) Search(ctx context.Context, q Query) ([]Hit, error) {
	where := q.Expression
	if where == "" {
		where = "1 = 1"
	}

	if len(q.Vector) == 0 {
		order := "r.id"
		var args []any
		if q.Seed != nil {
			mul, add := permutation(*q.Seed)
			order = fmt.Sprintf("(r.rowid * ? + ?) %% %d, r.id", permModulus)
			args = append(args, mul, add)
		}
		query := fmt.Sprintf(`SELECT %s FROM recipes r WHERE %s ORDER BY %s LIMIT ? OFFSET ?`, recipeColumns, where, order)
		rows, err := s.db.QueryContext(ctx, query, append(args, q.Limit, q.Offset)...)
		if err != nil {
			return nil, s.wrap("search", err)
		}
		defer rows.Close()

		var hits []Hit
		for rows.Next() {
			fields, err := scanRecipe(rows)
			if err != nil {
				return nil, s.wrap("scan", err)
			}
			doc, err := Rehydrate(fields)
			if err != nil {
				s.log.Warn("skipping unreadable recipe", "id", fields["id"], "error", err)
				continue
			}
			hits = append(hits, Hit{Document: doc})
		}
		if err := rows.Err(); err != nil {
			return nil, s.wrap("search", err)
		}
		return hits, nil
	}

	query := fmt.Sprintf(`SELECT %s, e.embedding FROM recipes r
		LEFT JOIN recipe_embeddings e ON e.recipe_id = r.id WHERE %s`, recipeColumns, where)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, s.wrap("vector search", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var blob []byte
		fields, err := scanRecipe(rows, &blob)
		if err != nil {
			return nil, s.wrap("scan", err)
		}
		doc, err := Rehydrate(fields)
		if err != nil {
			s.log.Warn("skipping unreadable recipe", "id", fields["id"], "error", err)
			continue
		}
		// Recipes stored without an embedding still match and rank last.
		var score float64
		if blob != nil {
			embedding, err := byteSliceToFloat32Slice(blob)
			if err != nil {
				s.log.Warn("ignoring corrupt embedding", "id", fields["id"], "error", err)
			} else {
				score = cosineSimilarity(q.Vector, embedding)
			}
		}
		hits = append(hits, Hit{Document: doc, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("vector search", err)
	}

	slices.SortStableFunc(hits, func(a, b Hit) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if q.Offset >= len(hits) {
		return nil, nil
	}
	hits = hits[q.Offset:]
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

// Get retrieves a recipe by its ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*recipe.Document, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM recipes r WHERE r.id = ?`, recipeColumns), id)
	fields, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, s.wrap("get", err)
	}
	doc, err := Rehydrate(fields)
	if err != nil {
		return nil, s.wrap("get", err)
	}
	return &doc, nil
}

// Upsert inserts or replaces recipes, and their embeddings when present, in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, docs []recipe.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, doc := range docs {
		body, err := payload(doc)
		if err != nil {
			return s.wrap("upsert", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO recipes (id, title, description, cuisine, meal_type, diet_tags, ingredients_raw,
				ingredients_norm, allergens, calories, protein_g, carbs_g, fat_g, fiber_g, sugar_g,
				total_time_minutes, url, payload, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				title = excluded.title, description = excluded.description, cuisine = excluded.cuisine,
				meal_type = excluded.meal_type, diet_tags = excluded.diet_tags,
				ingredients_raw = excluded.ingredients_raw, ingredients_norm = excluded.ingredients_norm,
				allergens = excluded.allergens, calories = excluded.calories, protein_g = excluded.protein_g,
				carbs_g = excluded.carbs_g, fat_g = excluded.fat_g, fiber_g = excluded.fiber_g,
				sugar_g = excluded.sugar_g, total_time_minutes = excluded.total_time_minutes,
				url = excluded.url, payload = excluded.payload, updated_at = excluded.updated_at`,
			doc.ID, doc.Title, doc.Description, doc.Cuisine,
			joinLower(doc.MealType, ","), joinLower(doc.DietTags, ","),
			strings.Join(doc.IngredientsRaw, "\n"), joinLower(doc.IngredientsNorm, ","), joinLower(doc.Allergens, ","),
			doc.Nutrition.Calories, doc.Nutrition.ProteinG, doc.Nutrition.CarbsG,
			doc.Nutrition.FatG, doc.Nutrition.FiberG, doc.Nutrition.SugarG,
			nullableInt(doc.TotalTimeMinutes), doc.URL, body, time.Now().UTC(),
		)
		if err != nil {
			return s.wrap("upsert", err)
		}

		if len(doc.Embedding) > 0 {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO recipe_embeddings (recipe_id, embedding) VALUES (?, ?)
				ON CONFLICT (recipe_id) DO UPDATE SET embedding = excluded.embedding`,
				doc.ID, float32SliceToByteSlice(doc.Embedding))
			if err != nil {
				return s.wrap("upsert embedding", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return s.wrap("commit", err)
	}
	return nil
}

// Count returns the number of stored recipes.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&n); err != nil {
		return 0, s.wrap("count", err)
	}
	return n, nil
}

// Close is a no-op; the database handle is owned by the caller.
func (s *SQLiteStore) Close() error {
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner, extra ...any) (map[string]any, error) {
	var (
		id, title, description, cuisine, mealType, dietTags string
		ingredientsRaw, ingredientsNorm, allergens, url, body string
		calories, protein, carbs, fat, fiber, sugar          *float64
		totalTime                                            *int64
	)
	dest := []any{&id, &title, &description, &cuisine, &mealType, &dietTags,
		&ingredientsRaw, &ingredientsNorm, &allergens, &calories, &protein, &carbs,
		&fat, &fiber, &sugar, &totalTime, &url, &body}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	fields := map[string]any{
		"id":               id,
		"title":            title,
		"description":      description,
		"cuisine":          cuisine,
		"meal_type":        mealType,
		"diet_tags":        dietTags,
		"ingredients_raw":  ingredientsRaw,
		"ingredients_norm": ingredientsNorm,
		"allergens":        allergens,
		"url":              url,
		payloadField:       body,
	}
	for name, v := range map[string]*float64{
		"calories": calories, "protein_g": protein, "carbs_g": carbs,
		"fat_g": fat, "fiber_g": fiber, "sugar_g": sugar,
	} {
		if v != nil {
			fields[name] = *v
		}
	}
	if totalTime != nil {
		fields["total_time_minutes"] = float64(*totalTime)
	}
	return fields, nil
}

func joinLower(list []string, sep string) string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = strings.ToLower(s)
	}
	return strings.Join(out, sep)
}

func nullableInt(v int) any {
	if v <= 0 {
		return nil
	}
	return v
}
