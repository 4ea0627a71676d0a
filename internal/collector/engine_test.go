package collector_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/K11E3R/moroccan-education-API/internal/collector"
	"github.com/K11E3R/moroccan-education-API/internal/domain"
	"github.com/K11E3R/moroccan-education-API/internal/extract"
	"github.com/K11E3R/moroccan-education-API/internal/fetcher"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
)

const siteRoot = "https://edu.example.ma"

// fakeGetter serves a titled page for every URL except those listed in
// failures. It tracks the peak number of concurrent calls.
type fakeGetter struct {
	mu       sync.Mutex
	failures map[string]string
	calls    map[string]int
	delay    time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
}

func newFakeGetter() *fakeGetter {
	return &fakeGetter{
		failures: make(map[string]string),
		calls:    make(map[string]int),
	}
}

func (f *fakeGetter) Get(ctx context.Context, rawURL string) fetcher.Result {
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if current <= peak || f.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	f.mu.Lock()
	f.calls[rawURL]++
	reason, failing := f.failures[rawURL]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return fetcher.Result{URL: rawURL, Err: ctx.Err(), Reason: fetcher.ReasonCancelled}
		case <-time.After(f.delay):
		}
	}

	if failing {
		return fetcher.Result{URL: rawURL, Err: errors.New(reason), Reason: reason}
	}

	body := fmt.Sprintf(`<html><head><title>Page %s</title></head><body></body></html>`, rawURL)
	return fetcher.Result{URL: rawURL, StatusCode: 200, Body: []byte(body)}
}

func (f *fakeGetter) callCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[rawURL]
}

func urls(prefix string, n int) []string {
	out := make([]string, n)
	for i := range n {
		out[i] = fmt.Sprintf("%s%s/%d", siteRoot, prefix, i)
	}
	return out
}

func newEngine(getter fetcher.Getter, cfg collector.Config, opts ...collector.Option) *collector.Engine {
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = -1
	}
	return collector.NewEngine(getter, extract.NewSet("test"), logger.NewNoOp(), cfg, opts...)
}

func TestEngine_VisitedPlusFailedEqualsAttempted(t *testing.T) {
	t.Parallel()

	getter := newFakeGetter()
	courses := urls("/cours", 10)
	exams := urls("/examen", 6)
	getter.failures[courses[2]] = fetcher.ReasonTimeout
	getter.failures[courses[7]] = fetcher.ReasonStatus
	getter.failures[exams[0]] = fetcher.ReasonConnection

	run := domain.NewCollectionRun("test", "Morocco")
	engine := newEngine(getter, collector.Config{Concurrency: 4})

	err := engine.Collect(context.Background(), map[domain.Category][]string{
		domain.CategoryCourse: courses,
		domain.CategoryExam:   exams,
	}, run)
	require.NoError(t, err)

	stats := engine.Stats()
	assert.Equal(t, 16, stats.Attempted)
	assert.Equal(t, 3, stats.Failed)
	assert.Equal(t, stats.Attempted, stats.Visited+stats.Failed)
	assert.Len(t, run.ContentOfType(domain.CategoryCourse), 8)
	assert.Len(t, run.ContentOfType(domain.CategoryExam), 5)

	assert.Equal(t, map[string]int{
		fetcher.ReasonTimeout:    1,
		fetcher.ReasonStatus:     1,
		fetcher.ReasonConnection: 1,
	}, engine.FailureReasons())
}

func TestEngine_RespectsCaps(t *testing.T) {
	t.Parallel()

	getter := newFakeGetter()
	run := domain.NewCollectionRun("test", "Morocco")
	engine := newEngine(getter, collector.Config{
		Concurrency: 3,
		Caps:        map[domain.Category]int{domain.CategoryExercise: 5},
	})

	err := engine.Collect(context.Background(), map[domain.Category][]string{
		domain.CategoryExercise: urls("/exercice", 12),
	}, run)
	require.NoError(t, err)

	assert.Equal(t, 5, engine.Stats().Attempted)
	assert.Len(t, run.ContentOfType(domain.CategoryExercise), 5)
}

func TestEngine_BoundsConcurrencyToBatchSize(t *testing.T) {
	t.Parallel()

	getter := newFakeGetter()
	getter.delay = 20 * time.Millisecond

	run := domain.NewCollectionRun("test", "Morocco")
	engine := newEngine(getter, collector.Config{Concurrency: 3})

	err := engine.Collect(context.Background(), map[domain.Category][]string{
		domain.CategoryCourse: urls("/cours", 7),
	}, run)
	require.NoError(t, err)

	assert.Equal(t, 7, engine.Stats().Visited)
	assert.LessOrEqual(t, getter.peak.Load(), int32(3))
}

func TestEngine_SharesSlotsAcrossCategories(t *testing.T) {
	t.Parallel()

	getter := newFakeGetter()
	getter.delay = 10 * time.Millisecond

	run := domain.NewCollectionRun("test", "Morocco")
	engine := newEngine(getter, collector.Config{Concurrency: 2})

	err := engine.Collect(context.Background(), map[domain.Category][]string{
		domain.CategoryCourse:   urls("/cours", 4),
		domain.CategoryExercise: urls("/exercice", 4),
		domain.CategoryExam:     urls("/examen", 4),
	}, run)
	require.NoError(t, err)

	assert.Equal(t, 12, engine.Stats().Visited)
	assert.LessOrEqual(t, getter.peak.Load(), int32(2))
}

func TestEngine_PooledClientRecordsNoQueueTimeouts(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if current <= p || peak.CompareAndSwap(p, current) {
				break
			}
		}
		time.Sleep(150 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><head><title>Page %s</title></head></html>", r.URL.Path)
	}))
	t.Cleanup(server.Close)

	client := fetcher.NewClient(fetcher.Config{Concurrency: 2, RequestTimeout: 400 * time.Millisecond})
	engine := newEngine(client, collector.Config{Concurrency: 2, RequestTimeout: 400 * time.Millisecond})

	pages := func(prefix string) []string {
		return []string{server.URL + prefix + "/1", server.URL + prefix + "/2"}
	}

	run := domain.NewCollectionRun("test", "Morocco")
	err := engine.Collect(context.Background(), map[domain.Category][]string{
		domain.CategoryCourse:   pages("/cours"),
		domain.CategoryExercise: pages("/exercice"),
		domain.CategoryExam:     pages("/examen"),
	}, run)
	require.NoError(t, err)

	assert.Equal(t, domain.FetchStats{Attempted: 6, Visited: 6, Failed: 0}, engine.Stats())
	assert.Empty(t, engine.FailureReasons())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestEngine_DuplicateURLFetchedOnce(t *testing.T) {
	t.Parallel()

	getter := newFakeGetter()
	dup := siteRoot + "/cours/derivees"

	run := domain.NewCollectionRun("test", "Morocco")
	engine := newEngine(getter, collector.Config{Concurrency: 5})

	err := engine.Collect(context.Background(), map[domain.Category][]string{
		domain.CategoryCourse:   {dup, dup, dup},
		domain.CategoryExercise: {dup},
	}, run)
	require.NoError(t, err)

	assert.Equal(t, 1, getter.callCount(dup))
	assert.Equal(t, domain.FetchStats{Attempted: 1, Visited: 1, Failed: 0}, engine.Stats())
	assert.Len(t, run.Content, 1)
}

func TestEngine_ExtractorPanicIsIsolated(t *testing.T) {
	t.Parallel()

	extractors := extract.NewSet("test")
	poisoned := siteRoot + "/controle/2"
	base := extract.Builder{Source: "test"}
	extractors.Register(domain.CategoryControl, extract.Func(
		func(doc *goquery.Document, pageURL string, c domain.Category) (domain.Record, bool) {
			if pageURL == poisoned {
				panic("malformed page")
			}
			return base.Content(doc, pageURL, c)
		}))

	run := domain.NewCollectionRun("test", "Morocco")
	engine := collector.NewEngine(newFakeGetter(), extractors, logger.NewNoOp(),
		collector.Config{Concurrency: 10, BatchDelay: -1})

	err := engine.Collect(context.Background(), map[domain.Category][]string{
		domain.CategoryControl: urls("/controle", 5),
	}, run)
	require.NoError(t, err)

	assert.Len(t, run.ContentOfType(domain.CategoryControl), 4)
	assert.Equal(t, 5, engine.Stats().Visited)
}

type denyAll struct{}

func (denyAll) IsAllowed(context.Context, string) (bool, error) { return false, nil }

func TestEngine_RobotsBlockedCountAsFailed(t *testing.T) {
	t.Parallel()

	getter := newFakeGetter()
	run := domain.NewCollectionRun("test", "Morocco")
	engine := newEngine(getter, collector.Config{}, collector.WithRobots(denyAll{}))

	err := engine.Collect(context.Background(), map[domain.Category][]string{
		domain.CategoryCourse: urls("/cours", 3),
	}, run)
	require.NoError(t, err)

	assert.Equal(t, domain.FetchStats{Attempted: 3, Visited: 0, Failed: 3}, engine.Stats())
	assert.Zero(t, getter.callCount(siteRoot+"/cours/0"))
	assert.Empty(t, run.Content)
}

// slowRobots allows everything and asks for a crawl-delay.
type slowRobots struct {
	delay time.Duration

	mu    sync.Mutex
	hosts []string
}

func (*slowRobots) IsAllowed(context.Context, string) (bool, error) { return true, nil }

func (r *slowRobots) CrawlDelay(host string) time.Duration {
	r.mu.Lock()
	r.hosts = append(r.hosts, host)
	r.mu.Unlock()
	return r.delay
}

func TestEngine_PausesForCrawlDelay(t *testing.T) {
	t.Parallel()

	robots := &slowRobots{delay: 60 * time.Millisecond}
	run := domain.NewCollectionRun("test", "Morocco")
	engine := newEngine(newFakeGetter(), collector.Config{Concurrency: 1}, collector.WithRobots(robots))

	start := time.Now()
	err := engine.Collect(context.Background(), map[domain.Category][]string{
		domain.CategoryCourse: urls("/cours", 3),
	}, run)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 120*time.Millisecond)
	assert.Equal(t, 3, engine.Stats().Visited)

	robots.mu.Lock()
	defer robots.mu.Unlock()
	require.Len(t, robots.hosts, 2)
	assert.Equal(t, "edu.example.ma", robots.hosts[0])
}

type countingObserver struct {
	mu      sync.Mutex
	fetches map[string]int
	records map[domain.Category]int
}

func (o *countingObserver) ObserveFetch(_ domain.Category, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetches[outcome]++
}

func (o *countingObserver) ObserveRecord(c domain.Category) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records[c]++
}

func TestEngine_ReportsToObserver(t *testing.T) {
	t.Parallel()

	getter := newFakeGetter()
	exercises := urls("/exercice", 4)
	getter.failures[exercises[1]] = fetcher.ReasonStatus

	obs := &countingObserver{fetches: map[string]int{}, records: map[domain.Category]int{}}
	engine := newEngine(getter, collector.Config{}, collector.WithObserver(obs))

	err := engine.Collect(context.Background(), map[domain.Category][]string{
		domain.CategoryExercise: exercises,
	}, domain.NewCollectionRun("test", "Morocco"))
	require.NoError(t, err)

	assert.Equal(t, 3, obs.fetches[collector.OutcomeVisited])
	assert.Equal(t, 1, obs.fetches[collector.OutcomeFailed])
	assert.Equal(t, 3, obs.records[domain.CategoryExercise])
}

func TestEngine_CancelledContext(t *testing.T) {
	t.Parallel()

	getter := newFakeGetter()
	getter.delay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	engine := newEngine(getter, collector.Config{Concurrency: 2})
	err := engine.Collect(ctx, map[domain.Category][]string{
		domain.CategoryCourse: urls("/cours", 6),
	}, domain.NewCollectionRun("test", "Morocco"))

	require.ErrorIs(t, err, context.DeadlineExceeded)
	stats := engine.Stats()
	assert.Equal(t, 2, stats.Attempted)
	assert.Equal(t, stats.Attempted, stats.Visited+stats.Failed)
}

func TestConfig_WithDefaults(t *testing.T) {
	t.Parallel()

	cfg := collector.Config{Caps: map[domain.Category]int{domain.CategoryLevel: 3}}.WithDefaults()
	assert.Equal(t, 50, cfg.Concurrency)
	assert.Equal(t, 100*time.Millisecond, cfg.BatchDelay)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.CapFor(domain.CategoryLevel))
	assert.Equal(t, 100, cfg.CapFor(domain.CategoryCourse))
	assert.Equal(t, 50, cfg.CapFor(domain.CategoryCorrection))
}
