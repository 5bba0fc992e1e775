package shopping

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository handles persistence of shopping lists.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new shopping list repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save stores the list for its plan, replacing a previous list of that plan.
func (r *Repository) Save(ctx context.Context, list ShoppingList) (int64, error) {
	itemsJSON, err := json.Marshal(list.Items)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal shopping list items: %w", err)
	}
	created := list.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO shopping_lists (user_id, plan_id, items, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (plan_id) DO UPDATE SET
			user_id = excluded.user_id,
			items = excluded.items,
			created_at = excluded.created_at
		RETURNING id`,
		list.UserID, list.PlanID, string(itemsJSON), created,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert shopping list: %w", err)
	}
	return id, nil
}

// GetByPlanID retrieves the shopping list of a plan, or nil when there is none.
func (r *Repository) GetByPlanID(ctx context.Context, planID string) (*ShoppingList, error) {
	var (
		list  ShoppingList
		items string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, plan_id, items, created_at
		FROM shopping_lists
		WHERE plan_id = ?`, planID,
	).Scan(&list.ID, &list.UserID, &list.PlanID, &items, &list.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No shopping list found
		}
		return nil, fmt.Errorf("failed to get shopping list by plan ID: %w", err)
	}

	if err := json.Unmarshal([]byte(items), &list.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list items: %w", err)
	}
	return &list, nil
}

// DeleteByPlanID deletes the shopping list of a plan.
func (r *Repository) DeleteByPlanID(ctx context.Context, planID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE plan_id = ?`, planID); err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}
	return nil
}
