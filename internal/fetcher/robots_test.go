package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/K11E3R/moroccan-education-API/internal/fetcher"
)

// testCacheTTL is the cache duration used in tests.
const testCacheTTL = time.Hour

// newTestChecker creates a RobotsChecker for testing.
func newTestChecker(t *testing.T) *fetcher.RobotsChecker {
	t.Helper()

	return fetcher.NewRobotsChecker(&http.Client{Timeout: testCacheTTL}, "TestBot/1.0", testCacheTTL)
}

func robotsServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestIsAllowed_Disallowed(t *testing.T) {
	t.Parallel()

	server := robotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /private/\n")
	checker := newTestChecker(t)

	allowed, err := checker.IsAllowed(context.Background(), server.URL+"/public/page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("expected /public/page to be allowed, got disallowed")
	}

	allowed, err = checker.IsAllowed(context.Background(), server.URL+"/private/secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("expected /private/secret to be disallowed, got allowed")
	}
}

func TestIsAllowed_MissingRobotsAllowsAll(t *testing.T) {
	t.Parallel()

	server := robotsServer(t, http.StatusInternalServerError, "")
	checker := newTestChecker(t)

	allowed, err := checker.IsAllowed(context.Background(), server.URL+"/any/path")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("expected allow-all when robots.txt returns 500")
	}
}

func TestIsAllowed_EmptyHost(t *testing.T) {
	t.Parallel()

	if _, err := newTestChecker(t).IsAllowed(context.Background(), "/relative/only"); err == nil {
		t.Fatal("expected error for URL without host")
	}
}

func TestSitemaps_FromRobots(t *testing.T) {
	t.Parallel()

	body := "User-agent: *\nDisallow:\nSitemap: https://edu.example.ma/sitemap_index.xml\n" +
		"SITEMAP: https://edu.example.ma/sitemap-cours.xml\n"
	server := robotsServer(t, http.StatusOK, body)
	checker := newTestChecker(t)

	sitemaps, err := checker.Sitemaps(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"https://edu.example.ma/sitemap_index.xml",
		"https://edu.example.ma/sitemap-cours.xml",
	}
	if strings.Join(sitemaps, ",") != strings.Join(want, ",") {
		t.Errorf("expected sitemaps %v, got %v", want, sitemaps)
	}
}

func TestSitemaps_MissingRobots(t *testing.T) {
	t.Parallel()

	server := robotsServer(t, http.StatusNotFound, "")

	sitemaps, err := newTestChecker(t).Sitemaps(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sitemaps) != 0 {
		t.Errorf("expected no sitemaps, got %v", sitemaps)
	}
}

func TestRobots_CacheHit(t *testing.T) {
	t.Parallel()

	var requestCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requestCount.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nAllow: /\nSitemap: https://x.ma/sitemap.xml\n"))
	}))
	defer server.Close()

	checker := newTestChecker(t)

	if _, err := checker.IsAllowed(context.Background(), server.URL+"/page1"); err != nil {
		t.Fatalf("first call error: %v", err)
	}
	if _, err := checker.Sitemaps(context.Background(), server.URL); err != nil {
		t.Fatalf("second call error: %v", err)
	}

	if actual := requestCount.Load(); actual != 1 {
		t.Errorf("expected 1 server request, got %d (cache miss)", actual)
	}
}

func TestCrawlDelay_Extraction(t *testing.T) {
	t.Parallel()

	const expectedDelay = 5 * time.Second

	server := robotsServer(t, http.StatusOK, "User-agent: *\nCrawl-delay: 5\nDisallow: /private/\n")
	checker := newTestChecker(t)

	if _, err := checker.IsAllowed(context.Background(), server.URL+"/page"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	host := strings.TrimPrefix(server.URL, "http://")
	if delay := checker.CrawlDelay(host); delay != expectedDelay {
		t.Errorf("expected crawl delay %v, got %v", expectedDelay, delay)
	}
}

func TestCrawlDelay_UncachedHost(t *testing.T) {
	t.Parallel()

	if delay := newTestChecker(t).CrawlDelay("uncached.example.com"); delay != 0 {
		t.Errorf("expected zero crawl delay for uncached host, got %v", delay)
	}
}
