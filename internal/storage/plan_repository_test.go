package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grounded-meal-planner/internal/database"
	"grounded-meal-planner/internal/plan"
	"grounded-meal-planner/internal/recipe"
)

func TestPlanRepository_SaveAndListRecent(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "plans.db"), nil)
	require.NoError(t, err)
	defer db.Close()
	repo := NewPlanRepository(db.SQL)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		p := plan.MealPlan{
			ID:        uuid.New(),
			Title:     "plan",
			StartDate: base.AddDate(0, 0, i).Format(plan.DateLayout),
			Fallback:  i == 2,
			Seed:      uint32(i),
			Created:   base.Add(time.Duration(i) * time.Hour),
			Days: []plan.Day{{
				Date: base.AddDate(0, 0, i).Format(plan.DateLayout),
				Meals: []plan.Meal{{
					Type:    recipe.Dinner,
					Recipes: []plan.Recipe{{ID: "r1", Name: "Stew", Nutrition: recipe.Nutrition{Calories: recipe.Float(600)}}},
				}},
			}},
		}
		id, err := repo.Save(ctx, "user-1", p)
		require.NoError(t, err)
		assert.Positive(t, id)
	}
	_, err = repo.Save(ctx, "user-2", plan.MealPlan{ID: uuid.New(), Title: "other"})
	require.NoError(t, err)

	plans, err := repo.ListRecentByUserID(ctx, "user-1", 2)
	require.NoError(t, err)
	require.Len(t, plans, 2)

	newest := plans[0]
	assert.Equal(t, uint32(2), newest.Plan.Seed)
	assert.True(t, newest.Fallback)
	assert.Equal(t, newest.Plan.ID.String(), newest.PlanID)
	assert.Equal(t, "2026-03-03", newest.Plan.StartDate)
	require.Len(t, newest.Plan.Days, 1)
	assert.Equal(t, "Stew", newest.Plan.Days[0].Meals[0].Recipes[0].Name)
	assert.InDelta(t, 600, *newest.Plan.Days[0].Meals[0].Recipes[0].Nutrition.Calories, 0.001)
	assert.Equal(t, uint32(1), plans[1].Plan.Seed)

	none, err := repo.ListRecentByUserID(ctx, "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}
