package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"grounded-meal-planner/internal/plan"
	"grounded-meal-planner/internal/planner"
	"grounded-meal-planner/internal/shopping"
)

var planOpts struct {
	prefs    preferenceFlags
	days     int
	start    string
	snacks   bool
	seed     uint32
	pins     []string
	user     string
	json     bool
	shopping bool
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate a meal plan",
	Long: `Generate a multi-day meal plan grounded in the recipe index. The plan is
saved for the user and printed.

Examples:
  meal-planner plan                                   # PLAN_DAYS days from today
  meal-planner plan --days 3 --diet vegan --allergies peanut
  meal-planner plan --pin italian,thai --seed 42      # Reproducible, cuisine per day
  meal-planner plan --shopping                        # Also print the shopping list
  meal-planner plan --json                            # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planOpts.prefs.register(planCmd)
	fs := planCmd.Flags()
	fs.IntVar(&planOpts.days, "days", 0, "number of days (default PLAN_DAYS)")
	fs.StringVar(&planOpts.start, "start", "", "first day as YYYY-MM-DD (default today)")
	fs.BoolVar(&planOpts.snacks, "snacks", true, "include a snack every day (default INCLUDE_SNACKS)")
	fs.Uint32Var(&planOpts.seed, "seed", 0, "fix every random choice for a reproducible plan")
	fs.StringSliceVar(&planOpts.pins, "pin", nil, "cuisines cycled over the days")
	fs.StringVar(&planOpts.user, "user", "", "user the plan is saved for (default DEFAULT_USER_ID)")
	fs.BoolVar(&planOpts.json, "json", false, "output as JSON")
	fs.BoolVar(&planOpts.shopping, "shopping", false, "print the plan's shopping list")
}

func runPlan(cmd *cobra.Command, args []string) error {
	req := planner.PlanRequest{
		Preferences:   planOpts.prefs.preferences(),
		Days:          planOpts.days,
		IncludeSnacks: cfg.IncludeSnacks,
		CuisinePins:   planOpts.pins,
	}
	if cmd.Flags().Changed("snacks") {
		req.IncludeSnacks = planOpts.snacks
	}
	if cmd.Flags().Changed("seed") {
		seed := planOpts.seed
		req.Seed = &seed
	}
	if planOpts.start != "" {
		start, err := time.Parse(plan.DateLayout, planOpts.start)
		if err != nil {
			return fmt.Errorf("invalid --start %q: %w", planOpts.start, err)
		}
		req.StartDate = start
	}

	p, err := application.GeneratePlan(cmd.Context(), planOpts.user, req)
	if err != nil {
		return err
	}

	if planOpts.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	printPlan(cmd.OutOrStdout(), p)

	if planOpts.shopping {
		list, err := application.ShoppingList(cmd.Context(), p.ID.String())
		if err != nil {
			return err
		}
		if list != nil {
			printShoppingList(cmd.OutOrStdout(), *list)
		}
	}
	return nil
}

func printPlan(w io.Writer, p plan.MealPlan) {
	fmt.Fprintf(w, "=== %s ===\n", strings.ToUpper(p.Title))
	if p.Description != "" {
		fmt.Fprintln(w, p.Description)
	}
	if p.Fallback {
		fmt.Fprintln(w, "(recipe retrieval failed, showing the offline fallback plan)")
	}
	fmt.Fprintf(w, "seed: %d\n", p.Seed)

	for _, d := range p.Days {
		header := d.Date
		if t, err := time.Parse(plan.DateLayout, d.Date); err == nil {
			header = t.Format("Monday 2006-01-02")
		}
		if d.Cuisine != "" {
			header += " · " + d.Cuisine
		}
		if d.Fallback {
			header += " (fallback)"
		}
		fmt.Fprintf(w, "\n%s\n", header)

		for _, m := range d.Meals {
			for _, r := range m.Recipes {
				fmt.Fprintf(w, "  %s %-9s %s", m.ScheduledTime, m.Type, r.Name)
				if r.Nutrition.Calories != nil {
					fmt.Fprintf(w, " (%.0f kcal)", *r.Nutrition.Calories)
				}
				if r.ID != "" {
					fmt.Fprintf(w, " [%s]", r.ID)
				}
				fmt.Fprintln(w)
			}
		}
		if total := d.TotalNutrition(); total.Calories != nil {
			fmt.Fprintf(w, "  total %.0f kcal, %.0f g protein\n", total.CaloriesOrZero(), total.ProteinOrZero())
		}
	}
}

func printShoppingList(w io.Writer, list shopping.ShoppingList) {
	fmt.Fprintln(w, "\n=== SHOPPING LIST ===")
	if len(list.Items) == 0 {
		fmt.Fprintln(w, "(no ingredients known for this plan)")
		return
	}
	category := ""
	for _, item := range list.Items {
		if item.Category != category {
			category = item.Category
			fmt.Fprintf(w, "%s:\n", category)
		}
		fmt.Fprintf(w, "  - %s", item.Name)
		if item.Amount > 0 {
			fmt.Fprintf(w, " %g", item.Amount)
			if item.Unit != "" {
				fmt.Fprintf(w, " %s", item.Unit)
			}
		}
		fmt.Fprintln(w)
	}
}
