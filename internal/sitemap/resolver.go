package sitemap

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/K11E3R/moroccan-education-API/internal/fetcher"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
)

const (
	defaultMaxDepth    = 5
	defaultConcurrency = 8
)

// ErrInvalidBaseURL is the only error Resolve returns for bad input.
var ErrInvalidBaseURL = errors.New("invalid base url")

// DefaultProbePaths are the well-known sitemap locations tried on every site.
func DefaultProbePaths() []string {
	return []string{
		"/sitemap.xml",
		"/sitemap_index.xml",
		"/sitemaps/sitemap.xml",
		"/sitemap/sitemap.xml",
	}
}

// Fetcher is the subset of fetcher.Client the resolver needs.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) fetcher.Result
	Head(ctx context.Context, rawURL string) (int, error)
}

// RobotsSource lists the sitemaps a host declares in robots.txt.
type RobotsSource interface {
	Sitemaps(ctx context.Context, rawURL string) ([]string, error)
}

// Config tunes discovery.
type Config struct {
	MaxDepth    int           `mapstructure:"max_depth" yaml:"max_depth"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	ProbePaths  []string      `mapstructure:"probe_paths" yaml:"probe_paths"`
	MaxAge      time.Duration `mapstructure:"max_age" yaml:"max_age"`
}

// WithDefaults fills zero values.
func (c Config) WithDefaults() Config {
	if c.MaxDepth <= 0 {
		c.MaxDepth = defaultMaxDepth
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if len(c.ProbePaths) == 0 {
		c.ProbePaths = DefaultProbePaths()
	}
	return c
}

// Resolution is the detailed outcome of a discovery pass.
type Resolution struct {
	URLs            []string
	SitemapsFetched int
	SitemapsFailed  int
	// Truncated counts child sitemaps left unexpanded at the depth cap.
	Truncated int
}

// Resolver turns a site's base URL into the set of page URLs its sitemaps list.
type Resolver struct {
	client Fetcher
	robots RobotsSource
	logger logger.Interface
	cfg    Config
	now    func() time.Time
}

// NewResolver creates a resolver. robots may be nil to skip robots.txt.
func NewResolver(client Fetcher, robots RobotsSource, log logger.Interface, cfg Config) *Resolver {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Resolver{
		client: client,
		robots: robots,
		logger: log.WithComponent("sitemap"),
		cfg:    cfg.WithDefaults(),
		now:    time.Now,
	}
}

// Resolve returns every page URL reachable from the site's sitemaps,
// deduplicated and sorted. Unreachable or malformed sitemaps contribute
// nothing; the only error is an invalid base URL or a cancelled context.
func (r *Resolver) Resolve(ctx context.Context, baseURL string, seeds []string) ([]string, error) {
	res, err := r.ResolveDetailed(ctx, baseURL, seeds)
	if err != nil {
		return nil, err
	}
	return res.URLs, nil
}

// ResolveDetailed is Resolve with fetch counters.
func (r *Resolver) ResolveDetailed(ctx context.Context, baseURL string, seeds []string) (Resolution, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return Resolution{}, err
	}

	frontier := newOrderedSet()
	for _, s := range seeds {
		if abs, ok := normalize(base, s); ok {
			frontier.add(abs)
		}
	}
	for _, s := range r.robotsSeeds(ctx, base) {
		frontier.add(s)
	}
	for _, s := range r.probe(ctx, base) {
		frontier.add(s)
	}
	if err := ctx.Err(); err != nil {
		return Resolution{}, fmt.Errorf("resolve sitemaps: %w", err)
	}

	r.logger.Info("Sitemap seeds discovered",
		"base_url", base.String(),
		"seeds", frontier.len(),
	)

	res, err := r.expand(ctx, frontier.items())
	if err != nil {
		return Resolution{}, err
	}

	r.logger.Info("Sitemap resolution complete",
		"urls", len(res.URLs),
		"sitemaps_fetched", res.SitemapsFetched,
		"sitemaps_failed", res.SitemapsFailed,
	)
	return res, nil
}

func parseBase(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidBaseURL, raw, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed, nil
}

func (r *Resolver) robotsSeeds(ctx context.Context, base *url.URL) []string {
	if r.robots == nil {
		return nil
	}

	declared, err := r.robots.Sitemaps(ctx, base.String())
	if err != nil {
		r.logger.Warn("Reading robots.txt sitemaps failed", "error", err)
		return nil
	}

	seeds := make([]string, 0, len(declared))
	for _, s := range declared {
		if abs, ok := normalize(base, s); ok {
			seeds = append(seeds, abs)
		}
	}
	return seeds
}

// probe checks the well-known paths concurrently and keeps the 2xx ones in
// probe order.
func (r *Resolver) probe(ctx context.Context, base *url.URL) []string {
	hits := make([]string, len(r.cfg.ProbePaths))
	root := base.Scheme + "://" + base.Host

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, path := range r.cfg.ProbePaths {
		candidate := root + path
		g.Go(func() error {
			status, err := r.client.Head(gctx, candidate)
			if err != nil {
				r.logger.Debug("Sitemap probe failed", "url", candidate, "error", err)
				return nil
			}
			if status >= 200 && status < 300 {
				hits[i] = candidate
			}
			return nil
		})
	}
	_ = g.Wait()

	found := make([]string, 0, len(hits))
	for _, h := range hits {
		if h != "" {
			found = append(found, h)
		}
	}
	return found
}

type fetched struct {
	source string
	doc    Document
	ok     bool
}

// expand walks the sitemap graph breadth-first. Each level is fetched
// concurrently; a sitemap seen twice is only fetched once.
func (r *Resolver) expand(ctx context.Context, seeds []string) (Resolution, error) {
	var res Resolution
	pages := newOrderedSet()
	seen := newOrderedSet()
	for _, s := range seeds {
		seen.add(s)
	}

	frontier := seeds
	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= r.cfg.MaxDepth {
			res.Truncated = len(frontier)
			r.logger.Warn("Sitemap depth cap reached",
				"max_depth", r.cfg.MaxDepth,
				"unexpanded", len(frontier),
			)
			break
		}

		results := r.fetchLevel(ctx, frontier)
		if err := ctx.Err(); err != nil {
			return Resolution{}, fmt.Errorf("resolve sitemaps: %w", err)
		}

		var next []string
		for _, f := range results {
			if !f.ok {
				res.SitemapsFailed++
				continue
			}
			res.SitemapsFetched++

			source, _ := url.Parse(f.source)
			entries := f.doc.Entries
			if f.doc.Kind == KindURLSet {
				entries = FilterByAge(entries, r.cfg.MaxAge, r.now())
			}
			for _, e := range entries {
				abs, ok := normalize(source, e.Loc)
				if !ok {
					continue
				}
				switch f.doc.Kind {
				case KindIndex:
					if seen.add(abs) {
						next = append(next, abs)
					}
				case KindURLSet:
					pages.add(abs)
				}
			}
		}
		frontier = next
	}

	res.URLs = pages.items()
	sort.Strings(res.URLs)
	return res, nil
}

func (r *Resolver) fetchLevel(ctx context.Context, sitemaps []string) []fetched {
	results := make([]fetched, len(sitemaps))

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, sm := range sitemaps {
		g.Go(func() error {
			results[i] = r.fetchDocument(ctx, sm)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (r *Resolver) fetchDocument(ctx context.Context, sitemapURL string) fetched {
	out := fetched{source: sitemapURL}

	result := r.client.Get(ctx, sitemapURL)
	if !result.OK() {
		r.logger.Warn("Sitemap fetch failed",
			"url", sitemapURL,
			"reason", result.Reason,
			"error", result.Err,
		)
		return out
	}

	doc, err := ParseDocument(result.Body)
	if err != nil {
		r.logger.Warn("Sitemap parse failed", "url", sitemapURL, "error", err)
		return out
	}

	out.doc = doc
	out.ok = true
	return out
}

// normalize resolves loc against base, trims it and drops the fragment.
// Only http(s) URLs survive.
func normalize(base *url.URL, loc string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(loc))
	if err != nil {
		return "", false
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if (abs.Scheme != "http" && abs.Scheme != "https") || abs.Host == "" {
		return "", false
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String(), true
}

// orderedSet keeps first-insertion order.
type orderedSet struct {
	index map[string]struct{}
	order []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{index: make(map[string]struct{})}
}

// add reports whether s was new.
func (s *orderedSet) add(v string) bool {
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = struct{}{}
	s.order = append(s.order, v)
	return true
}

func (s *orderedSet) len() int { return len(s.order) }

func (s *orderedSet) items() []string {
	return append([]string(nil), s.order...)
}
