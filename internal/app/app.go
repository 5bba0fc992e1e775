// Package app wires the planning pipeline, the recipe index and the
// persistence layers into the operations the CLI exposes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"grounded-meal-planner/internal/candidates"
	"grounded-meal-planner/internal/clipper"
	"grounded-meal-planner/internal/config"
	"grounded-meal-planner/internal/database"
	"grounded-meal-planner/internal/embedding"
	"grounded-meal-planner/internal/filter"
	"grounded-meal-planner/internal/ghost"
	"grounded-meal-planner/internal/index"
	"grounded-meal-planner/internal/llm"
	"grounded-meal-planner/internal/logger"
	"grounded-meal-planner/internal/metrics"
	"grounded-meal-planner/internal/planner"
	"grounded-meal-planner/internal/search"
	"grounded-meal-planner/internal/shopping"
	"grounded-meal-planner/internal/storage"
)

// Components are the external dependencies of an App.
type Components struct {
	TextGen   llm.TextGenerator
	Embedders []embedding.Provider
	Store     index.Store
	// DB holds execution metrics, saved plans and shopping lists.
	DB    *database.DB
	Ghost *ghost.Client
}

// App holds the application's dependencies.
type App struct {
	cfg *config.Config
	log *logger.Logger

	index        *index.HybridIndex
	embedder     *embedding.Chain
	search       *search.Service
	planner      *planner.Planner
	clipper      *clipper.Clipper
	ghostClient  *ghost.Client
	metricsStore *metrics.Store
	recorder     *metrics.Recorder
	planRepo     *storage.PlanRepository
	shoppingRepo *shopping.Repository

	closers []io.Closer
}

// New builds every component from cfg.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	log = logger.OrNop(log)
	var closers []io.Closer
	fail := func(err error) (*App, error) {
		_ = closeAll(closers, log)
		return nil, err
	}

	textGen, c, err := newTextGenerator(ctx, cfg)
	if err != nil {
		return fail(fmt.Errorf("failed to create LLM client: %w", err))
	}
	if c != nil {
		closers = append(closers, c)
	}

	providers, cs, err := newEmbeddingProviders(ctx, cfg, log)
	closers = append(closers, cs...)
	if err != nil {
		return fail(fmt.Errorf("failed to create embedding providers: %w", err))
	}

	store, c, err := newStore(ctx, cfg, log)
	if err != nil {
		return fail(fmt.Errorf("failed to open %s index: %w", cfg.IndexBackend, err))
	}
	if c != nil {
		closers = append(closers, c)
	}

	db, err := database.NewDB(cfg.MetricsDBPath, log)
	if err != nil {
		closers = append(closers, store)
		return fail(fmt.Errorf("failed to open metrics database: %w", err))
	}
	closers = append(closers, db)

	var gc *ghost.Client
	if cfg.GhostURL != "" {
		gc = ghost.NewClient(ghost.Config{
			URL:        cfg.GhostURL,
			ContentKey: cfg.GhostContentKey,
			AdminKey:   cfg.GhostAdminKey,
			Tag:        cfg.GhostTag,
		})
	}

	a := Assemble(cfg, Components{
		TextGen:   textGen,
		Embedders: providers,
		Store:     store,
		DB:        db,
		Ghost:     gc,
	}, log)
	a.closers = append(closers, a.closers...)
	return a, nil
}

// Assemble wires the pipeline around already constructed components. The
// App takes ownership of comps.Store; the caller keeps comps.DB.
func Assemble(cfg *config.Config, comps Components, log *logger.Logger) *App {
	log = logger.OrNop(log)
	recorder := metrics.NewRecorder()

	idx := index.New(comps.Store, log)
	chain := embedding.NewChain(cfg.VectorDim, log, comps.Embedders...)
	builder := filter.NewBuilder(comps.TextGen, cfg.FilterConfidenceThreshold, log)
	svc := search.NewService(builder, chain, idx, log)

	synth := candidates.NewSynthesizer(comps.TextGen, log)
	fetcher := candidates.NewFetcher(
		candidates.DefaultStrategies(svc, synth, cfg.SyntheticBatchSize),
		synth,
		candidates.Options{
			PoolSize:      cfg.CandidatePoolSize,
			BackfillBatch: cfg.BackfillBatchSize,
			Recorder:      recorder,
		},
		log,
	)
	p := planner.NewPlanner(fetcher, comps.TextGen, svc, planner.Options{
		Temperature: float32(cfg.PlannerTemperature),
		Recorder:    recorder,
	}, log)

	return &App{
		cfg:          cfg,
		log:          log,
		index:        idx,
		embedder:     chain,
		search:       svc,
		planner:      p,
		clipper:      clipper.NewClipper(comps.TextGen, chain, idx, log),
		ghostClient:  comps.Ghost,
		metricsStore: metrics.NewStore(comps.DB.SQL),
		recorder:     recorder,
		planRepo:     storage.NewPlanRepository(comps.DB.SQL),
		shoppingRepo: shopping.NewRepository(comps.DB.SQL),
		closers:      []io.Closer{idx},
	}
}

// Recorder exposes the Prometheus collectors of this run.
func (a *App) Recorder() *metrics.Recorder {
	return a.recorder
}

// Close releases the index, the databases and flushes embedding caches.
func (a *App) Close() error {
	return closeAll(a.closers, a.log)
}

func closeAll(closers []io.Closer, log *logger.Logger) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			log.Warn("failed to close resource", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
