package main

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	statsDays    int
	cleanupDays  int
	historyUser  string
	historyLimit int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show LLM usage and data file sizes",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var cleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Delete old execution metrics",
	Args:  cobra.NoArgs,
	RunE:  runCleanup,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently generated plans",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(statsCmd, cleanupCmd, historyCmd)
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "number of days to report")
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "delete metrics older than this many days (default METRICS_RETENTION_DAYS)")
	historyCmd.Flags().StringVar(&historyUser, "user", "", "user id (default DEFAULT_USER_ID)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 5, "number of plans to list")
}

func runStats(cmd *cobra.Command, args []string) error {
	stats, err := application.Stats(cmd.Context(), statsDays)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "=== LLM USAGE (last %d days) ===\n", statsDays)
	daily := newTable(out, "date", "calls", "prompt", "completion")
	for _, d := range stats.Daily {
		daily.add(d.Date, strconv.Itoa(d.TotalExecution), strconv.Itoa(d.TotalPrompt), strconv.Itoa(d.TotalCompletion))
	}
	if err := daily.render(); err != nil {
		return err
	}
	fmt.Fprintln(out)
	agents := newTable(out, "agent", "calls", "prompt", "completion", "avg ms")
	for _, a := range stats.Agents {
		agents.add(a.AgentName, strconv.Itoa(a.Executions), strconv.Itoa(a.TotalPrompt), strconv.Itoa(a.TotalCompletion), fmt.Sprintf("%.0f", a.AvgLatencyMS))
	}
	if err := agents.render(); err != nil {
		return err
	}

	sys := stats.System
	fmt.Fprintln(out, "\n=== SYSTEM ===")
	fmt.Fprintf(out, "memory: %d MB alloc, %d MB sys, %d GC, %d goroutines\n", sys.AllocMB, sys.SysMB, sys.NumGC, sys.Goroutines)
	paths := make([]string, 0, len(sys.DataSizes))
	for p := range sys.DataSizes {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		fmt.Fprintf(out, "%s: %s\n", p, sys.DataSizes[p])
	}
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	n, err := application.CleanupMetrics(cmd.Context(), cleanupDays)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d metrics.\n", n)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	plans, err := application.RecentPlans(cmd.Context(), historyUser, historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(plans) == 0 {
		fmt.Fprintln(out, "No plans yet.")
		return nil
	}
	tbl := newTable(out, "created", "plan", "start", "days", "fallback")
	for _, p := range plans {
		tbl.add(p.CreatedAt.Format("2006-01-02 15:04"), p.PlanID, p.Plan.StartDate, strconv.Itoa(len(p.Plan.Days)), strconv.FormatBool(p.Fallback))
	}
	return tbl.render()
}
