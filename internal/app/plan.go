package app

import (
	"context"
	"fmt"

	"grounded-meal-planner/internal/candidates"
	"grounded-meal-planner/internal/filter"
	"grounded-meal-planner/internal/plan"
	"grounded-meal-planner/internal/planner"
	"grounded-meal-planner/internal/recipe"
	"grounded-meal-planner/internal/search"
	"grounded-meal-planner/internal/shared"
	"grounded-meal-planner/internal/shopping"
	"grounded-meal-planner/internal/storage"
)

// GeneratePlan runs the planner for userID, records agent usage and saves the
// plan with its shopping list. Failing to record or save is logged; the plan
// is still returned.
func (a *App) GeneratePlan(ctx context.Context, userID string, req planner.PlanRequest) (plan.MealPlan, error) {
	if req.Days == 0 {
		req.Days = a.cfg.PlanDays
	}
	if userID == "" {
		userID = a.cfg.DefaultUserID
	}

	p, metas, err := a.planner.GeneratePlan(ctx, req)
	if err != nil {
		return plan.MealPlan{}, fmt.Errorf("failed to generate plan: %w", err)
	}

	a.recordMetas(ctx, metas)
	a.recorder.ObservePlan(p.Fallback)

	if _, err := a.planRepo.Save(ctx, userID, p); err != nil {
		a.log.Warn("failed to save meal plan", "user_id", userID, "plan_id", p.ID, "error", err)
	}
	list := shopping.FromPlan(p)
	list.UserID = userID
	list.CreatedAt = p.Created
	if _, err := a.shoppingRepo.Save(ctx, list); err != nil {
		a.log.Warn("failed to save shopping list", "user_id", userID, "plan_id", p.ID, "error", err)
	}
	a.log.Info("meal plan generated", "user_id", userID, "plan_id", p.ID, "days", len(p.Days), "fallback", p.Fallback, "agent_calls", len(metas))
	return p, nil
}

// RecentPlans lists the last saved plans of userID, newest first.
func (a *App) RecentPlans(ctx context.Context, userID string, limit int) ([]storage.StoredPlan, error) {
	if userID == "" {
		userID = a.cfg.DefaultUserID
	}
	return a.planRepo.ListRecentByUserID(ctx, userID, limit)
}

// ShoppingList returns the saved shopping list of planID, or nil when the plan
// has none.
func (a *App) ShoppingList(ctx context.Context, planID string) (*shopping.ShoppingList, error) {
	return a.shoppingRepo.GetByPlanID(ctx, planID)
}

// Search runs one search for mealType and returns the usable candidates.
func (a *App) Search(ctx context.Context, mealType recipe.MealType, prefs filter.Preferences, size int) (search.Result, error) {
	if size <= 0 {
		size = a.cfg.CandidatePoolSize
	}
	res, err := a.search.Search(ctx, search.Request{MealType: mealType, Preferences: prefs, Size: size})
	if err != nil {
		return res, err
	}
	a.recordMetas(ctx, res.Meta)
	res.Candidates = candidates.QualityGate(res.Candidates)
	return res, nil
}

func (a *App) recordMetas(ctx context.Context, metas []shared.AgentMeta) {
	for _, m := range metas {
		if m.AgentName != "" {
			a.recorder.ObserveAgent(m)
		}
	}
	if err := a.metricsStore.RecordAll(ctx, metas); err != nil {
		a.log.Warn("failed to record agent metrics", "error", err)
	}
}
