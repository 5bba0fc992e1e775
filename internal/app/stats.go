package app

import (
	"context"
	"fmt"

	"grounded-meal-planner/internal/config"
	"grounded-meal-planner/internal/metrics"
)

// Stats is a usage and health report.
type Stats struct {
	Daily  []metrics.DailyUsage
	Agents []metrics.AgentUsage
	System metrics.SysHealth
}

// Stats reports agent usage over the last days and the size of local data files.
func (a *App) Stats(ctx context.Context, days int) (Stats, error) {
	daily, err := a.metricsStore.GetDailyUsage(ctx, days)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load daily usage: %w", err)
	}
	agents, err := a.metricsStore.GetAgentUsage(ctx, days)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load agent usage: %w", err)
	}

	paths := []string{a.cfg.DataDir, a.cfg.MetricsDBPath}
	if a.cfg.IndexBackend == config.BackendSQLite {
		paths = append(paths, a.cfg.SQLitePath)
	}
	return Stats{Daily: daily, Agents: agents, System: metrics.GetSysHealth(paths...)}, nil
}

// CleanupMetrics deletes execution metrics older than days, defaulting to
// the configured retention.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = a.cfg.MetricsRetentionDays
	}
	n, err := a.metricsStore.Cleanup(ctx, days)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	a.log.Info("cleaned up execution metrics", "deleted", n, "older_than_days", days)
	return n, nil
}

// WriteMetricsTextfile dumps the run's Prometheus collectors to path.
func (a *App) WriteMetricsTextfile(path string) error {
	if err := a.recorder.WriteTextfile(path); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
