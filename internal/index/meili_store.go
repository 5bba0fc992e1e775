package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"grounded-meal-planner/internal/logger"
	"grounded-meal-planner/internal/recipe"
)

const meiliTaskTimeout = 30 * time.Second

var meiliFilterable = []string{
	"id", "meal_type", "diet_tags", "cuisine", "ingredients_norm",
	"total_time_minutes", "calories", "protein_g",
}

// MeiliStore keeps recipes in a Meilisearch index. Vectors are sent as
// user-provided embeddings under the configured embedder name.
type MeiliStore struct {
	index    meilisearch.IndexManager
	embedder string
	log      *logger.Logger
}

// NewMeiliClient connects to a Meilisearch server.
func NewMeiliClient(host, apiKey string) meilisearch.ServiceManager {
	return meilisearch.New(host, meilisearch.WithAPIKey(apiKey))
}

// NewMeiliStore wraps the named index. Call EnsureIndex before first use.
func NewMeiliStore(client meilisearch.ServiceManager, indexName, embedder string, log *logger.Logger) *MeiliStore {
	return &MeiliStore{
		index:    client.Index(indexName),
		embedder: embedder,
		log:      logger.OrNop(log),
	}
}

func (s *MeiliStore) wrap(op string, err error) error {
	return &StoreError{Backend: "meilisearch", Op: op, Err: err}
}

// EnsureIndex makes the filter attributes filterable.
func (s *MeiliStore) EnsureIndex(ctx context.Context) error {
	task, err := s.index.UpdateFilterableAttributes(&meiliFilterable)
	if err != nil {
		return s.wrap("ensure index", err)
	}
	if _, err := s.index.WaitForTask(task.TaskUID, meiliTaskTimeout); err != nil {
		return s.wrap("ensure index", fmt.Errorf("failed to wait for settings task: %w", err))
	}
	s.log.Info("meilisearch filterable attributes updated", "attributes", meiliFilterable)
	return nil
}

func (s *MeiliStore) Dialect() Dialect {
	return DialectMeilisearch
}

// Search runs a filtered search, semantic when q.Vector is set.
func (s *MeiliStore) Search(ctx context.Context, q Query) ([]Hit, error) {
	req := &meilisearch.SearchRequest{
		Limit:            int64(q.Limit),
		Offset:           int64(q.Offset),
		ShowRankingScore: true,
	}
	if q.Expression != "" {
		req.Filter = q.Expression
	}
	if len(q.Vector) > 0 {
		req.Vector = q.Vector
		req.Hybrid = &meilisearch.SearchRequestHybrid{
			Embedder:      s.embedder,
			SemanticRatio: 1,
		}
	}

	result, err := s.index.Search("", req)
	if err != nil {
		return nil, s.wrap("search", err)
	}
	if offset := seededOffset(q, result.EstimatedTotalHits); offset > 0 {
		req.Offset = offset
		if result, err = s.index.Search("", req); err != nil {
			return nil, s.wrap("search", err)
		}
	}

	records, err := decodeHits(result.Hits)
	if err != nil {
		return nil, s.wrap("decode hits", err)
	}

	hits := make([]Hit, 0, len(records))
	for _, fields := range records {
		doc, err := Rehydrate(fields)
		if err != nil {
			s.log.Warn("skipping unreadable recipe", "id", fields["id"], "error", err)
			continue
		}
		var score float64
		if len(q.Vector) > 0 {
			score, _ = fields["_rankingScore"].(float64)
		}
		hits = append(hits, Hit{Document: doc, Score: score})
	}
	return hits, nil
}

// seededOffset picks, for a seeded scalar query, a window inside the total
// result set. Meilisearch has no seeded sort, so the window moves instead.
func seededOffset(q Query, total int64) int64 {
	if q.Seed == nil || len(q.Vector) > 0 || q.Offset > 0 || q.Limit <= 0 {
		return 0
	}
	spare := total - int64(q.Limit)
	if spare <= 0 {
		return 0
	}
	mul, add := permutation(*q.Seed)
	return (mul + add) % (spare + 1)
}

// Get looks a recipe up through an id filter.
func (s *MeiliStore) Get(ctx context.Context, id string) (*recipe.Document, error) {
	hits, err := s.Search(ctx, Query{Expression: "id = " + meiliQuote(id), Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, ErrNotFound
	}
	return &hits[0].Document, nil
}

// Upsert adds or replaces documents and waits for indexing to finish.
func (s *MeiliStore) Upsert(ctx context.Context, docs []recipe.Document) error {
	if len(docs) == 0 {
		return nil
	}

	records := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		body, err := payload(doc)
		if err != nil {
			return s.wrap("upsert", err)
		}
		record := map[string]any{
			"id":               doc.ID,
			"title":            doc.Title,
			"description":      doc.Description,
			"cuisine":          doc.Cuisine,
			"meal_type":        lowerAll(doc.MealType),
			"diet_tags":        lowerAll(doc.DietTags),
			"ingredients_raw":  []string(doc.IngredientsRaw),
			"ingredients_norm": lowerAll(doc.IngredientsNorm),
			"allergens":        lowerAll(doc.Allergens),
			"url":              doc.URL,
			payloadField:       body,
		}
		if doc.TotalTimeMinutes > 0 {
			record["total_time_minutes"] = doc.TotalTimeMinutes
		}
		for name, v := range map[string]*float64{
			"calories": doc.Nutrition.Calories, "protein_g": doc.Nutrition.ProteinG,
			"carbs_g": doc.Nutrition.CarbsG, "fat_g": doc.Nutrition.FatG,
		} {
			if v != nil {
				record[name] = *v
			}
		}
		if len(doc.Embedding) > 0 && s.embedder != "" {
			record["_vectors"] = map[string]any{s.embedder: doc.Embedding}
		}
		records = append(records, record)
	}

	task, err := s.index.AddDocuments(records)
	if err != nil {
		return s.wrap("upsert", err)
	}
	if _, err := s.index.WaitForTask(task.TaskUID, meiliTaskTimeout); err != nil {
		return s.wrap("upsert", fmt.Errorf("failed to wait for indexing task: %w", err))
	}
	return nil
}

// Close is a no-op; the HTTP client holds no resources.
func (s *MeiliStore) Close() error {
	return nil
}

// decodeHits converts the client's hit representation into plain maps.
func decodeHits(hits any) ([]map[string]any, error) {
	data, err := json.Marshal(hits)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func lowerAll(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = strings.ToLower(s)
	}
	return out
}
