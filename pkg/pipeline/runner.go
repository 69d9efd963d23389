package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/0xfe/vf-musicxml-sub003/pkg/buildinfo"
	"github.com/0xfe/vf-musicxml-sub003/pkg/cache"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave"
	"github.com/0xfe/vf-musicxml-sub003/pkg/engrave/audit"
	"github.com/0xfe/vf-musicxml-sub003/pkg/errors"
	"github.com/0xfe/vf-musicxml-sub003/pkg/observability"
	"github.com/0xfe/vf-musicxml-sub003/pkg/score"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → layout → audit pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{RunID: newRunID()}

	// Stage 1: Load
	loadStart := time.Now()
	s, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.Measures = s.MeasureCount()

	if data, err := score.Marshal(s); err == nil {
		result.ScoreHash = cache.Hash(data)
	}

	r.Logger.Info("loaded score",
		"title", s.Title,
		"parts", len(s.Parts),
		"measures", s.MeasureCount(),
		"duration", result.Stats.LoadTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	plan, planHit, err := r.ComputePlanWithCacheInfo(ctx, s, result.ScoreHash, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Plan = plan
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Pages = len(plan.Pages)
	result.Stats.Systems = len(plan.Systems())
	result.CacheInfo.PlanHit = planHit

	r.Logger.Info("computed layout",
		"pages", result.Stats.Pages,
		"systems", result.Stats.Systems,
		"diagnostics", len(plan.Diagnostics),
		"cached", planHit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Audit
	if !opts.NoAudit {
		auditStart := time.Now()
		report := r.Audit(ctx, plan, opts.AuditOptions)
		result.Report = &report
		result.Stats.AuditTime = time.Since(auditStart)

		minor, major := report.Counts()
		r.Logger.Info("audited plan",
			"minor", minor,
			"major", major,
			"duration", result.Stats.AuditTime)
	}

	return result, nil
}

// Load resolves the input score from the options.
func (r *Runner) Load(ctx context.Context, opts Options) (*score.Score, error) {
	if opts.Score != nil {
		if err := opts.Score.Validate(); err != nil {
			return nil, err
		}
		return opts.Score, nil
	}

	observability.Engrave().OnLoadStart(ctx, opts.ScorePath)
	start := time.Now()
	s, err := score.ReadFile(opts.ScorePath)
	measures := 0
	if s != nil {
		measures = s.MeasureCount()
	}
	observability.Engrave().OnLoadComplete(ctx, opts.ScorePath, measures, time.Since(start), err)
	return s, err
}

// ResolveConfig returns the effective engraving config for the options.
func (r *Runner) ResolveConfig(opts Options) (engrave.Config, error) {
	if opts.Config != nil {
		return *opts.Config, opts.Config.Validate()
	}
	if opts.ConfigPath != "" {
		return engrave.LoadConfig(opts.ConfigPath)
	}
	return engrave.DefaultConfig(), nil
}

// ComputePlanWithCacheInfo computes the layout plan with caching and
// returns cache hit info. scoreHash may be empty, in which case it is
// recomputed from the score.
func (r *Runner) ComputePlanWithCacheInfo(ctx context.Context, s *score.Score, scoreHash string, opts Options) (*engrave.Plan, bool, error) {
	cfg, err := r.ResolveConfig(opts)
	if err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	if scoreHash == "" {
		data, err := score.Marshal(s)
		if err != nil {
			return nil, false, err
		}
		scoreHash = cache.Hash(data)
	}
	cfgData, err := json.Marshal(cfg)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "hash config for the plan cache key")
	}
	cacheKey := r.Keyer.PlanKey(scoreHash, cache.PlanKeyOpts{
		ConfigHash: cache.Hash(cfgData),
		Version:    buildinfo.Version,
	})

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if cached, err := engrave.UnmarshalPlan(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "plan")
				return cached, true, nil
			}
			// Corrupt entry: fall through to recompute.
		}
		observability.Cache().OnCacheMiss(ctx, "plan")
	}

	observability.Engrave().OnLayoutStart(ctx, s.Title, s.MeasureCount())
	start := time.Now()
	plan, err := engrave.Layout(s, cfg)
	observability.Engrave().OnLayoutComplete(ctx, s.Title, pageCount(plan), diagCount(plan), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if data, err := plan.Marshal(); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.PlanTTL)
		observability.Cache().OnCacheSet(ctx, "plan", len(data))
	}

	return plan, false, nil
}

// ComputePlan is a convenience wrapper that discards the cache hit info.
func (r *Runner) ComputePlan(ctx context.Context, s *score.Score, opts Options) (*engrave.Plan, error) {
	plan, _, err := r.ComputePlanWithCacheInfo(ctx, s, "", opts)
	return plan, err
}

// Audit inspects a plan for geometric defects.
func (r *Runner) Audit(ctx context.Context, plan *engrave.Plan, opts audit.Options) audit.Report {
	observability.Engrave().OnAuditStart(ctx, len(plan.Pages))
	start := time.Now()
	report := audit.Inspect(plan, opts)
	minor, major := report.Counts()
	observability.Engrave().OnAuditComplete(ctx, minor, major, time.Since(start))
	return report
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func pageCount(p *engrave.Plan) int {
	if p == nil {
		return 0
	}
	return len(p.Pages)
}

func diagCount(p *engrave.Plan) int {
	if p == nil {
		return 0
	}
	return len(p.Diagnostics)
}
