// Package collector runs the fetch-extract stage of a collection: bounded
// batches of concurrent GETs per category, extraction and aggregation into
// a domain.CollectionRun.
package collector

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
	"github.com/K11E3R/moroccan-education-API/internal/extract"
	"github.com/K11E3R/moroccan-education-API/internal/fetcher"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
)

// Outcomes reported to the Observer for every attempted URL.
const (
	OutcomeVisited       = "visited"
	OutcomeFailed        = "failed"
	OutcomeRobotsBlocked = "robots_blocked"
)

// reasonRobotsBlocked marks URLs skipped because robots.txt disallows them.
const reasonRobotsBlocked = "robots_blocked"

// RobotsAllower checks robots.txt compliance.
type RobotsAllower interface {
	IsAllowed(ctx context.Context, rawURL string) (bool, error)
}

// Observer receives per-URL and per-record events; metrics.Metrics
// implements it.
type Observer interface {
	ObserveFetch(category domain.Category, outcome string, duration time.Duration)
	ObserveRecord(category domain.Category)
}

type noopObserver struct{}

func (noopObserver) ObserveFetch(domain.Category, string, time.Duration) {}
func (noopObserver) ObserveRecord(domain.Category)                       {}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver attaches an observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// CrawlDelayer reports the robots.txt crawl-delay of a host.
type CrawlDelayer interface {
	CrawlDelay(host string) time.Duration
}

// WithRobots makes the engine skip URLs disallowed by robots.txt. Skipped
// URLs count as failed. When r also implements CrawlDelayer, the pause
// between batches is at least the host's crawl-delay.
func WithRobots(r RobotsAllower) Option {
	return func(e *Engine) {
		e.robots = r
	}
}

// Engine fetches categorized URLs and appends extracted records to a run.
// An Engine owns its URL sets; use one Engine per run.
type Engine struct {
	getter     fetcher.Getter
	extractors *extract.Set
	robots     RobotsAllower
	observer   Observer
	logger     logger.Interface
	cfg        Config
	// slots bounds in-flight requests across all categories.
	slots *semaphore.Weighted

	mu        sync.Mutex
	attempted map[string]struct{}
	visited   map[string]struct{}
	failed    map[string]string // url -> reason
}

// NewEngine creates an engine. cfg defaults are applied.
func NewEngine(getter fetcher.Getter, extractors *extract.Set, log logger.Interface, cfg Config, opts ...Option) *Engine {
	if log == nil {
		log = logger.NewNoOp()
	}
	if extractors == nil {
		extractors = extract.NewSet("")
	}

	e := &Engine{
		getter:     getter,
		extractors: extractors,
		observer:   noopObserver{},
		logger:     log.WithComponent("collector"),
		cfg:        cfg.WithDefaults(),
		attempted:  make(map[string]struct{}),
		visited:    make(map[string]struct{}),
		failed:     make(map[string]string),
	}
	e.slots = semaphore.NewWeighted(int64(e.cfg.Concurrency))
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Collect processes every bucket concurrently and returns once all of them
// have finished. Requests from all buckets share Concurrency slots. The only
// error is context cancellation; per-URL failures are recorded in the failed
// set.
func (e *Engine) Collect(ctx context.Context, buckets map[domain.Category][]string, run *domain.CollectionRun) error {
	var wg sync.WaitGroup
	for _, cat := range domain.Categories() {
		urls := buckets[cat]
		if len(urls) == 0 {
			continue
		}

		limit := e.cfg.CapFor(cat)
		if len(urls) > limit {
			e.logger.Debug("Truncating category to cap",
				"category", string(cat),
				"discovered", len(urls),
				"cap", limit,
			)
			urls = urls[:limit]
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			e.collectCategory(ctx, cat, urls, run)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	return nil
}

// collectCategory runs the category's batches one after another.
func (e *Engine) collectCategory(ctx context.Context, cat domain.Category, urls []string, run *domain.CollectionRun) {
	start := time.Now()
	batchSize := e.cfg.Concurrency

	for offset := 0; offset < len(urls); offset += batchSize {
		if ctx.Err() != nil {
			return
		}

		end := min(offset+batchSize, len(urls))
		e.runBatch(ctx, cat, urls[offset:end], run)

		if end < len(urls) && !e.pause(ctx, urls[offset]) {
			return
		}
	}

	e.logger.Info("Category collected",
		"category", string(cat),
		"urls", len(urls),
		"duration", time.Since(start).String(),
	)
}

func (e *Engine) runBatch(ctx context.Context, cat domain.Category, batch []string, run *domain.CollectionRun) {
	var wg sync.WaitGroup
	for _, u := range batch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.processURL(ctx, cat, u, run)
		}()
	}
	wg.Wait()
}

// pause sleeps for the batch delay, or the crawl-delay of rawURL's host when
// robots.txt asks for longer. It returns false if ctx ended first.
func (e *Engine) pause(ctx context.Context, rawURL string) bool {
	delay := max(e.cfg.BatchDelay, e.crawlDelay(rawURL))
	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Engine) crawlDelay(rawURL string) time.Duration {
	cd, ok := e.robots.(CrawlDelayer)
	if !ok {
		return 0
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return 0
	}
	return cd.CrawlDelay(u.Host)
}

// processURL is the per-URL unit of work. Every claimed URL ends up in
// exactly one of the visited or failed sets. The request timeout starts
// once a slot is held.
func (e *Engine) processURL(ctx context.Context, cat domain.Category, rawURL string, run *domain.CollectionRun) {
	if err := e.slots.Acquire(ctx, 1); err != nil {
		return
	}
	defer e.slots.Release(1)

	if !e.claim(rawURL) {
		return
	}

	if e.robots != nil {
		allowed, err := e.robots.IsAllowed(ctx, rawURL)
		if err == nil && !allowed {
			e.markFailed(rawURL, reasonRobotsBlocked)
			e.observer.ObserveFetch(cat, OutcomeRobotsBlocked, 0)
			return
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	result := e.getter.Get(fetchCtx, rawURL)
	cancel()

	if !result.OK() {
		e.markFailed(rawURL, result.Reason)
		e.observer.ObserveFetch(cat, OutcomeFailed, result.Duration)
		e.logger.Debug("Fetch failed",
			"url", rawURL,
			"category", string(cat),
			"reason", result.Reason,
			"error", result.Err,
		)
		return
	}

	e.markVisited(rawURL)
	e.observer.ObserveFetch(cat, OutcomeVisited, result.Duration)

	doc, err := extract.ParseHTML(result.Body)
	if err != nil {
		e.logger.Debug("HTML parse failed", "url", rawURL, "error", err)
		return
	}

	rec, ok, err := e.extractors.Extract(doc, rawURL, cat)
	if err != nil {
		e.logger.Warn("Extraction failed", "url", rawURL, "category", string(cat), "error", err)
		return
	}
	if !ok {
		return
	}

	if appendErr := run.Append(rec); appendErr != nil {
		e.logger.Warn("Dropping record", "url", rawURL, "error", appendErr)
		return
	}
	e.observer.ObserveRecord(cat)
}

// claim adds rawURL to the attempted set; false if it was already there.
func (e *Engine) claim(rawURL string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, seen := e.attempted[rawURL]; seen {
		return false
	}
	e.attempted[rawURL] = struct{}{}
	return true
}

func (e *Engine) markVisited(rawURL string) {
	e.mu.Lock()
	e.visited[rawURL] = struct{}{}
	e.mu.Unlock()
}

func (e *Engine) markFailed(rawURL, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	e.mu.Lock()
	e.failed[rawURL] = reason
	e.mu.Unlock()
}

// Stats returns the current sizes of the URL sets.
func (e *Engine) Stats() domain.FetchStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return domain.FetchStats{
		Attempted: len(e.attempted),
		Visited:   len(e.visited),
		Failed:    len(e.failed),
	}
}

// FailureReasons counts failed URLs per reason.
func (e *Engine) FailureReasons() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()

	counts := make(map[string]int)
	for _, reason := range e.failed {
		counts[reason]++
	}
	return counts
}
