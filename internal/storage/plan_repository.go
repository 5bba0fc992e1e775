// Package storage persists finished meal plans.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"grounded-meal-planner/internal/plan"
)

// StoredPlan is a meal plan row.
type StoredPlan struct {
	ID        int64
	UserID    string
	PlanID    string
	Fallback  bool
	Plan      plan.MealPlan
	CreatedAt time.Time
}

// PlanRepository is a database-backed repository for meal plans.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d}
}

// Save stores the plan unchanged as JSON and returns the row id.
func (r *PlanRepository) Save(ctx context.Context, userID string, p plan.MealPlan) (int64, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal meal plan: %w", err)
	}
	created := p.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO meal_plans (user_id, plan_id, plan_data, fallback, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		userID, p.ID.String(), data, p.Fallback, created,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save meal plan for user %s: %w", userID, err)
	}
	return res.LastInsertId()
}

// ListRecentByUserID retrieves the N most recent meal plans for a given user.
func (r *PlanRepository) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]StoredPlan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, plan_id, plan_data, fallback, created_at
		FROM meal_plans
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent meal plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	var plans []StoredPlan
	for rows.Next() {
		var (
			sp   StoredPlan
			data []byte
		)
		if err := rows.Scan(&sp.ID, &sp.UserID, &sp.PlanID, &data, &sp.Fallback, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan: %w", err)
		}
		if err := json.Unmarshal(data, &sp.Plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal meal plan %d: %w", sp.ID, err)
		}
		plans = append(plans, sp)
	}
	return plans, rows.Err()
}
