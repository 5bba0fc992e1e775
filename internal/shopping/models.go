// Package shopping derives and stores the shopping list of a meal plan.
package shopping

import "time"

// Item is one aggregated line of a shopping list.
type Item struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	Category string  `json:"category"`
	// Recipes counts the planned recipes that need the item.
	Recipes int `json:"recipes"`
}

// ShoppingList represents a shopping list for a meal plan.
type ShoppingList struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	PlanID    string    `json:"plan_id"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}
