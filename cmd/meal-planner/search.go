package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"grounded-meal-planner/internal/recipe"
)

var searchOpts struct {
	prefs preferenceFlags
	size  int
	json  bool
}

var searchCmd = &cobra.Command{
	Use:   "search <meal-type>",
	Short: "Show the recipe candidates for one meal type",
	Long: `Run the filter builder, query embedding and index search for one meal
type and print the usable candidates.

Examples:
  meal-planner search breakfast
  meal-planner search dinner --diet vegan --dislikes pork --size 10`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"breakfast", "lunch", "dinner", "snack"},
	RunE:      runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchOpts.prefs.register(searchCmd)
	searchCmd.Flags().IntVar(&searchOpts.size, "size", 0, "number of results (default CANDIDATE_POOL_SIZE)")
	searchCmd.Flags().BoolVar(&searchOpts.json, "json", false, "output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	mt, ok := recipe.ParseMealType(args[0])
	if !ok {
		return fmt.Errorf("unknown meal type %q", args[0])
	}

	res, err := application.Search(cmd.Context(), mt, searchOpts.prefs.preferences(), searchOpts.size)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if searchOpts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Candidates)
	}

	tbl := newTable(out, "id", "title", "cuisine", "min", "kcal", "tags")
	for _, c := range res.Candidates {
		kcal := "?"
		if c.Nutrition.Calories != nil {
			kcal = fmt.Sprintf("%.0f", *c.Nutrition.Calories)
		}
		tbl.add(c.ID, c.Title, c.Cuisine, strconv.Itoa(c.TotalTimeMin), kcal, strings.Join(c.DietTags, ","))
	}
	if err := tbl.render(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d candidates, %d dropped by exclusions\n", len(res.Candidates), res.Dropped)
	return nil
}
