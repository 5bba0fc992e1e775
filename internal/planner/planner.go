// Package planner generates multi-day meal plans whose recipes are chosen by an
// LLM from retrieved candidates and always resolve to those candidates.
package planner

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"grounded-meal-planner/internal/candidates"
	"grounded-meal-planner/internal/fallback"
	"grounded-meal-planner/internal/filter"
	"grounded-meal-planner/internal/llm"
	"grounded-meal-planner/internal/logger"
	"grounded-meal-planner/internal/plan"
	"grounded-meal-planner/internal/recipe"
	"grounded-meal-planner/internal/shared"
)

// DefaultTemperature is the sampling temperature of the day planning call.
const DefaultTemperature = 0.8

// ErrInvalidRequest is returned for requests that cannot produce a plan.
var ErrInvalidRequest = errors.New("invalid plan request")

// PoolFetcher builds the candidate pool of one meal type. seed selects which
// matching recipes are retrieved and their order.
type PoolFetcher interface {
	Fetch(ctx context.Context, mealType recipe.MealType, prefs filter.Preferences, seed uint64) (candidates.Pool, error)
}

// RecipeLookup loads a single recipe by id.
type RecipeLookup interface {
	Lookup(ctx context.Context, id string) (*recipe.Candidate, error)
}

// Recorder counts pipeline degradations.
type Recorder interface {
	RecordDegradation(kind string)
}

// Options configure a Planner.
type Options struct {
	Temperature float32
	PromptLines int
	// SkipSanityCheck disables the second LLM pass over each day.
	SkipSanityCheck bool
	Recorder        Recorder
}

// PlanRequest describes the plan to generate.
type PlanRequest struct {
	Preferences   filter.Preferences
	Days          int
	StartDate     time.Time
	IncludeSnacks bool
	// Seed fixes which recipes are retrieved, the pool order and every pick
	// made without the LLM; nil draws a fresh seed. Synthesized recipe ids
	// stay random.
	Seed *uint32
	// CuisinePins are cycled over the days; empty means no pinned cuisine.
	CuisinePins []string
}

// MealTypes returns the meal slots of each day.
func (r PlanRequest) MealTypes() []recipe.MealType {
	types := []recipe.MealType{recipe.Breakfast, recipe.Lunch, recipe.Dinner}
	if r.IncludeSnacks {
		types = append(types, recipe.Snack)
	}
	return types
}

func (r PlanRequest) cuisine(day int) string {
	if len(r.CuisinePins) == 0 {
		return ""
	}
	return recipe.NormalizeCuisine(r.CuisinePins[day%len(r.CuisinePins)])
}

// Planner runs the day-by-day planning loop.
type Planner struct {
	fetcher PoolFetcher
	textGen llm.TextGenerator
	lookup  RecipeLookup
	opts    Options
	log     *logger.Logger
}

// NewPlanner creates a Planner. lookup may be nil.
func NewPlanner(fetcher PoolFetcher, textGen llm.TextGenerator, lookup RecipeLookup, opts Options, log *logger.Logger) *Planner {
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.PromptLines <= 0 {
		opts.PromptLines = DefaultPromptLines
	}
	return &Planner{fetcher: fetcher, textGen: textGen, lookup: lookup, opts: opts, log: logger.OrNop(log)}
}

// GeneratePlan builds a plan of req.Days days. Degradations never surface as
// errors: a failed day becomes the deterministic fallback day, and a failure
// of the whole run becomes the deterministic fallback plan. The error is
// non-nil only for an invalid request or a cancelled context.
func (p *Planner) GeneratePlan(ctx context.Context, req PlanRequest) (out plan.MealPlan, metas []shared.AgentMeta, err error) {
	if req.Days < 1 {
		return plan.MealPlan{}, nil, fmt.Errorf("%w: days must be at least 1, got %d", ErrInvalidRequest, req.Days)
	}
	if err := ctx.Err(); err != nil {
		return plan.MealPlan{}, nil, err
	}

	seed := rand.Uint32()
	if req.Seed != nil {
		seed = *req.Seed
	}
	start := req.StartDate
	if start.IsZero() {
		start = time.Now().UTC().Truncate(24 * time.Hour)
	}
	mealTypes := req.MealTypes()

	fb := fallback.Plan(req.Preferences, fallback.Options{
		Seed:      seed,
		Days:      req.Days,
		StartDate: start,
		MealTypes: mealTypes,
		Cuisines:  req.CuisinePins,
	})

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("plan generation panicked, using fallback plan", "panic", r)
			out, err = p.fallbackPlan(fb), nil
		}
	}()

	pools, metas, err := p.prefetch(ctx, req.Preferences, mealTypes, uint64(seed))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return plan.MealPlan{}, metas, ctxErr
		}
		p.log.Warn("candidate prefetch failed, using fallback plan", "error", err)
		return p.fallbackPlan(fb), metas, nil
	}
	if allEmpty(pools) {
		p.log.Warn("every candidate pool is empty, using fallback plan")
		return p.fallbackPlan(fb), metas, nil
	}

	out = plan.MealPlan{
		ID:          uuid.New(),
		Title:       fmt.Sprintf("%d-day meal plan", req.Days),
		Description: planDescription(req),
		StartDate:   start.Format(plan.DateLayout),
		Seed:        seed,
		Created:     time.Now().UTC(),
	}

	hist := newHistory()
	for i := 0; i < req.Days; i++ {
		if err := ctx.Err(); err != nil {
			return plan.MealPlan{}, metas, err
		}
		dc := &dayContext{
			date:      start.AddDate(0, 0, i),
			cuisine:   req.cuisine(i),
			mealTypes: mealTypes,
			hist:      hist,
			fallback:  fb.Days[i],
			rng:       rand.New(rand.NewPCG(uint64(seed), uint64(i))),
		}
		dc.pools = make(map[recipe.MealType]mealPool, len(pools))
		for _, mt := range mealTypes {
			dc.pools[mt] = newMealPool(hist.order(pools[mt].Candidates, dc.rng))
		}
		dc.sections = buildSections(mealTypes, dc.pools, p.opts.PromptLines)

		day, dayMetas := p.planDay(ctx, req.Preferences, dc)
		metas = append(metas, dayMetas...)
		out.Days = append(out.Days, day)
		hist = hist.commit(day.RecipeIDs())
	}
	return out, metas, nil
}

// prefetch builds one pool per meal type concurrently. An empty pool is not
// an error.
func (p *Planner) prefetch(ctx context.Context, prefs filter.Preferences, mealTypes []recipe.MealType, seed uint64) (map[recipe.MealType]candidates.Pool, []shared.AgentMeta, error) {
	fetched := make([]candidates.Pool, len(mealTypes))
	g, gctx := errgroup.WithContext(ctx)
	for i, mt := range mealTypes {
		g.Go(func() error {
			pool, err := p.fetcher.Fetch(gctx, mt, prefs, seed)
			if errors.Is(err, candidates.ErrEmptyPool) {
				p.log.Warn("no candidates for meal type", "meal_type", mt)
				err = nil
			}
			if err != nil {
				return fmt.Errorf("failed to fetch %s candidates: %w", mt, err)
			}
			pool.MealType = mt
			fetched[i] = pool
			return nil
		})
	}
	err := g.Wait()

	pools := make(map[recipe.MealType]candidates.Pool, len(mealTypes))
	var metas []shared.AgentMeta
	for _, pool := range fetched {
		metas = append(metas, pool.Meta...)
		if pool.MealType != "" {
			pools[pool.MealType] = pool
		}
	}
	return pools, metas, err
}

func (p *Planner) fallbackPlan(fb plan.MealPlan) plan.MealPlan {
	p.record("plan_fallback")
	fb.ID = uuid.New()
	fb.Created = time.Now().UTC()
	return fb
}

func (p *Planner) record(kind string) {
	if p.opts.Recorder != nil {
		p.opts.Recorder.RecordDegradation(kind)
	}
}

func allEmpty(pools map[recipe.MealType]candidates.Pool) bool {
	for _, pool := range pools {
		if len(pool.Candidates) > 0 {
			return false
		}
	}
	return true
}

func planDescription(req PlanRequest) string {
	if diet := req.Preferences.Diet(); diet != "" {
		return fmt.Sprintf("A %s plan built from indexed recipes.", diet)
	}
	return "A plan built from indexed recipes."
}
