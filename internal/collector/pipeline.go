package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/K11E3R/moroccan-education-API/internal/categorize"
	"github.com/K11E3R/moroccan-education-API/internal/domain"
	"github.com/K11E3R/moroccan-education-API/internal/extract"
	"github.com/K11E3R/moroccan-education-API/internal/fetcher"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
	"github.com/K11E3R/moroccan-education-API/internal/sitemap"
)

// ErrMissingDependency is returned by NewPipeline when a required
// collaborator is nil.
var ErrMissingDependency = errors.New("pipeline: missing dependency")

// URLResolver discovers page URLs from a site's sitemaps.
type URLResolver interface {
	ResolveDetailed(ctx context.Context, baseURL string, seeds []string) (sitemap.Resolution, error)
}

// RunObserver is notified once per finished run.
type RunObserver interface {
	ObserveRun(meta domain.Metadata, sitemapURLs int, duration time.Duration)
}

// PipelineDeps are the collaborators of a Pipeline. Robots and Observer
// are optional.
type PipelineDeps struct {
	Resolver    URLResolver
	Categorizer *categorize.Categorizer
	Getter      fetcher.Getter
	Extractors  *extract.Set
	Robots      RobotsAllower
	Observer    Observer
	Logger      logger.Interface
}

// Target names the site to collect and how to label the run.
type Target struct {
	BaseURL string
	Seeds   []string
	Source  string
	Country string
}

// Result is a finalized run plus the figures behind it.
type Result struct {
	Run            *domain.CollectionRun
	Resolution     sitemap.Resolution
	Discovered     map[domain.Category]int
	FailureReasons map[string]int
	Duration       time.Duration
}

// Pipeline wires resolver, categorizer and engine into one collection pass.
type Pipeline struct {
	deps PipelineDeps
	cfg  Config
	log  logger.Interface
}

// NewPipeline validates deps and returns a pipeline.
func NewPipeline(deps PipelineDeps, cfg Config) (*Pipeline, error) {
	switch {
	case deps.Resolver == nil:
		return nil, fmt.Errorf("%w: resolver", ErrMissingDependency)
	case deps.Getter == nil:
		return nil, fmt.Errorf("%w: getter", ErrMissingDependency)
	}
	if deps.Categorizer == nil {
		deps.Categorizer = categorize.NewDefault()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOp()
	}

	return &Pipeline{
		deps: deps,
		cfg:  cfg.WithDefaults(),
		log:  deps.Logger.WithComponent("pipeline"),
	}, nil
}

// Run executes resolve, categorize, fetch-extract and finalize. A cancelled
// context aborts the run and no partial result is returned.
func (p *Pipeline) Run(ctx context.Context, target Target) (*Result, error) {
	start := time.Now()
	source := target.Source
	if source == "" {
		source = target.BaseURL
	}
	run := domain.NewCollectionRun(source, target.Country)

	p.log.Info("Collection started",
		"run_id", run.RunID,
		"base_url", target.BaseURL,
		"seeds", len(target.Seeds),
	)

	resolution, err := p.deps.Resolver.ResolveDetailed(ctx, target.BaseURL, target.Seeds)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	buckets := p.deps.Categorizer.Categorize(resolution.URLs)
	discovered := make(map[domain.Category]int, len(buckets))
	for cat, urls := range buckets {
		discovered[cat] = len(urls)
	}
	p.log.Info("URLs categorized", "urls", len(resolution.URLs), "buckets", discovered)

	opts := []Option{WithObserver(p.deps.Observer)}
	if p.cfg.RespectRobots && p.deps.Robots != nil {
		opts = append(opts, WithRobots(p.deps.Robots))
	}
	engine := NewEngine(p.deps.Getter, p.deps.Extractors, p.deps.Logger, p.cfg, opts...)

	if collectErr := engine.Collect(ctx, buckets, run); collectErr != nil {
		return nil, collectErr
	}

	duration := time.Since(start)
	stats := engine.Stats()
	run.Finalize(stats, duration)

	if ro, ok := p.deps.Observer.(RunObserver); ok {
		ro.ObserveRun(run.Metadata, len(resolution.URLs), duration)
	}

	p.log.Info("Collection finished",
		"run_id", run.RunID,
		"total_items", run.Metadata.TotalItems,
		"attempted", stats.Attempted,
		"visited", stats.Visited,
		"failed", stats.Failed,
		"quality_score", run.Metadata.QualityScore,
		"duration", duration.String(),
	)

	return &Result{
		Run:            run,
		Resolution:     resolution,
		Discovered:     discovered,
		FailureReasons: engine.FailureReasons(),
		Duration:       duration,
	}, nil
}
