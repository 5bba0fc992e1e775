package index

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"grounded-meal-planner/internal/logger"
	"grounded-meal-planner/internal/recipe"
)

const pgRecipeColumns = `r.id, r.title, r.description, r.cuisine, r.meal_type, r.diet_tags,
	r.ingredients_raw, r.ingredients_norm, r.allergens, r.calories, r.protein_g, r.carbs_g,
	r.fat_g, r.fiber_g, r.sugar_g, r.total_time_minutes, r.url, r.payload`

// PostgresStore keeps recipes in Postgres with pgvector embeddings.
type PostgresStore struct {
	pool *pgxpool.Pool
	dim  int
	log  *logger.Logger
}

// NewPostgresStore connects to dsn, ensures the schema exists and registers
// the pgvector types on every pooled connection.
func NewPostgresStore(ctx context.Context, dsn string, dim int, log *logger.Logger) (*PostgresStore, error) {
	if err := ensureSchema(ctx, dsn, dim); err != nil {
		return nil, err
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &PostgresStore{pool: pool, dim: dim, log: logger.OrNop(log)}, nil
}

// ensureSchema runs on a plain connection because the vector type must exist
// before the pool registers it.
func ensureSchema(ctx context.Context, dsn string, dim int) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close(ctx)

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS recipes (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			cuisine TEXT NOT NULL DEFAULT '',
			meal_type TEXT NOT NULL DEFAULT '',
			diet_tags TEXT NOT NULL DEFAULT '',
			ingredients_raw TEXT NOT NULL DEFAULT '',
			ingredients_norm TEXT NOT NULL DEFAULT '',
			allergens TEXT NOT NULL DEFAULT '',
			calories DOUBLE PRECISION,
			protein_g DOUBLE PRECISION,
			carbs_g DOUBLE PRECISION,
			fat_g DOUBLE PRECISION,
			fiber_g DOUBLE PRECISION,
			sugar_g DOUBLE PRECISION,
			total_time_minutes INTEGER,
			url TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL DEFAULT '',
			embedding vector(%d),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dim),
		`CREATE INDEX IF NOT EXISTS idx_recipes_cuisine ON recipes (cuisine)`,
	}
	for _, stmt := range statements {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return &StoreError{Backend: "postgres", Op: "ensure schema", Err: err}
		}
	}
	return nil
}

func (s *PostgresStore) Dialect() Dialect {
	return DialectPostgres
}

func (s *PostgresStore) wrap(op string, err error) error {
	return &StoreError{Backend: "postgres", Op: op, Err: err}
}

// Search filters with the compiled expression and orders by cosine distance
// when a vector is given.
func (s *PostgresStore) Search(ctx context.Context, q Query) ([]Hit, error) {
	where := q.Expression
	if where == "" {
		where = "TRUE"
	}

	var (
		rows pgx.Rows
		err  error
	)
	switch {
	case len(q.Vector) > 0:
		vec := pgvector.NewVector(q.Vector)
		rows, err = s.pool.Query(ctx, fmt.Sprintf(
			`SELECT %s, COALESCE(1 - (r.embedding <=> $1), 0) FROM recipes r
			WHERE %s
			ORDER BY r.embedding <=> $1 NULLS LAST, r.id LIMIT $2 OFFSET $3`,
			pgRecipeColumns, where), vec, q.Limit, q.Offset)
	case q.Seed != nil:
		rows, err = s.pool.Query(ctx, fmt.Sprintf(
			`SELECT %s, 0::float8 FROM recipes r WHERE %s ORDER BY md5(r.id || $3::text), r.id LIMIT $1 OFFSET $2`,
			pgRecipeColumns, where), q.Limit, q.Offset, strconv.FormatUint(*q.Seed, 10))
	default:
		rows, err = s.pool.Query(ctx, fmt.Sprintf(
			`SELECT %s, 0::float8 FROM recipes r WHERE %s ORDER BY r.id LIMIT $1 OFFSET $2`,
			pgRecipeColumns, where), q.Limit, q.Offset)
	}
	if err != nil {
		return nil, s.wrap("search", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var score float64
		fields, err := scanRecipe(rows, &score)
		if err != nil {
			return nil, s.wrap("scan", err)
		}
		doc, err := Rehydrate(fields)
		if err != nil {
			s.log.Warn("skipping unreadable recipe", "id", fields["id"], "error", err)
			continue
		}
		hits = append(hits, Hit{Document: doc, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("search", err)
	}
	return hits, nil
}

// Get retrieves a recipe by its ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*recipe.Document, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM recipes r WHERE r.id = $1`, pgRecipeColumns), id)
	fields, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

// Upsert writes docs in a single batch.
func (s *PostgresStore) Upsert(ctx context.Context, docs []recipe.Document) error {
	if len(docs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, doc := range docs {
		body, err := payload(doc)
		if err != nil {
			return s.wrap("upsert", err)
		}
		var embedding any
		if len(doc.Embedding) > 0 {
			if len(doc.Embedding) != s.dim {
				return s.wrap("upsert", fmt.Errorf("recipe %s: embedding has %d dimensions, want %d", doc.ID, len(doc.Embedding), s.dim))
			}
			embedding = pgvector.NewVector(doc.Embedding)
		}
		batch.Queue(`
			INSERT INTO recipes (id, title, description, cuisine, meal_type, diet_tags, ingredients_raw,
				ingredients_norm, allergens, calories, protein_g, carbs_g, fat_g, fiber_g, sugar_g,
				total_time_minutes, url, payload, embedding, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, now())
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title, description = EXCLUDED.description, cuisine = EXCLUDED.cuisine,
				meal_type = EXCLUDED.meal_type, diet_tags = EXCLUDED.diet_tags,
				ingredients_raw = EXCLUDED.ingredients_raw, ingredients_norm = EXCLUDED.ingredients_norm,
				allergens = EXCLUDED.allergens, calories = EXCLUDED.calories, protein_g = EXCLUDED.protein_g,
				carbs_g = EXCLUDED.carbs_g, fat_g = EXCLUDED.fat_g, fiber_g = EXCLUDED.fiber_g,
				sugar_g = EXCLUDED.sugar_g, total_time_minutes = EXCLUDED.total_time_minutes,
				url = EXCLUDED.url, payload = EXCLUDED.payload,
				embedding = COALESCE(EXCLUDED.embedding, recipes.embedding), updated_at = now()`,
			doc.ID, doc.Title, doc.Description, doc.Cuisine,
			joinLower(doc.MealType, ","), joinLower(doc.DietTags, ","),
			strings.Join(doc.IngredientsRaw, "\n"), joinLower(doc.IngredientsNorm, ","), joinLower(doc.Allergens, ","),
			doc.Nutrition.Calories, doc.Nutrition.ProteinG, doc.Nutrition.CarbsG,
			doc.Nutrition.FatG, doc.Nutrition.FiberG, doc.Nutrition.SugarG,
			nullableInt(doc.TotalTimeMinutes), doc.URL, body, embedding,
		)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return s.wrap("upsert", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
