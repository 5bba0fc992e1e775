package index

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"grounded-meal-planner/internal/recipe"
)

// payloadField holds the full serialized document when a backend stores one.
const payloadField = "payload"

// Rehydrate rebuilds a document from a backend record. The serialized payload is
// preferred; otherwise the document is reconstructed from flattened fields.
func Rehydrate(fields map[string]any) (recipe.Document, error) {
	if doc, ok := fromPayload(fields); ok {
		doc.Normalize()
		return doc, nil
	}

	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		if v == nil || k == payloadField || strings.HasPrefix(k, "_") {
			continue
		}
		clean[k] = v
	}

	var parsed []recipe.ParsedIngredient
	if raw, ok := clean["ingredients_parsed"].(string); ok {
		if strings.TrimSpace(raw) != "" {
			if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
				return recipe.Document{}, fmt.Errorf("failed to decode ingredients_parsed: %w", err)
			}
		}
		delete(clean, "ingredients_parsed")
	}
	if v, ok := clean["total_time_minutes"].(float64); ok {
		clean["total_time_minutes"] = int(math.Round(v))
	}
	delete(clean, "nutrition")

	data, err := json.Marshal(clean)
	if err != nil {
		return recipe.Document{}, fmt.Errorf("failed to encode flattened record: %w", err)
	}
	var doc recipe.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return recipe.Document{}, fmt.Errorf("failed to decode flattened record: %w", err)
	}
	if parsed != nil {
		doc.IngredientsParsed = parsed
	}
	doc.Nutrition = recipe.NormalizeNutrition(fields)
	doc.Extra = clean
	doc.Normalize()
	return doc, nil
}

func fromPayload(fields map[string]any) (recipe.Document, bool) {
	var data []byte
	switch p := fields[payloadField].(type) {
	case string:
		if strings.TrimSpace(p) == "" {
			return recipe.Document{}, false
		}
		data = []byte(p)
	case []byte:
		if len(p) == 0 {
			return recipe.Document{}, false
		}
		data = p
	case map[string]any:
		var err error
		if data, err = json.Marshal(p); err != nil {
			return recipe.Document{}, false
		}
	default:
		return recipe.Document{}, false
	}

	var doc recipe.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return recipe.Document{}, false
	}
	if doc.ID == "" {
		doc.ID, _ = fields["id"].(string)
	}
	return doc, doc.ID != ""
}

// payload serializes doc for storage, without its embedding.
func payload(doc recipe.Document) (string, error) {
	doc.Embedding = nil
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal recipe payload: %w", err)
	}
	return string(data), nil
}
