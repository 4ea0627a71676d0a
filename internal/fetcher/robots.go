package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// Default cache TTL for robots.txt entries.
const defaultRobotsCacheTTL = 24 * time.Hour

// robotsTxtPath is the well-known path for robots.txt files.
const robotsTxtPath = "/robots.txt"

// maxRobotsBodyBytes limits the size of robots.txt responses we will read.
const maxRobotsBodyBytes = 512 * 1024 // 512 KB

const sitemapDirective = "sitemap:"

// RobotsChecker fetches robots.txt once per host and answers both
// allow/deny questions and the list of declared sitemaps.
type RobotsChecker struct {
	httpClient *http.Client
	userAgent  string
	cache      map[string]*robotsCacheEntry // keyed by host
	mu         sync.RWMutex
	cacheTTL   time.Duration
}

// robotsCacheEntry stores the parsed robots.txt data and metadata for a host.
type robotsCacheEntry struct {
	data      *robotstxt.RobotsData
	sitemaps  []string
	fetchedAt time.Time
	allowAll  bool // robots.txt missing, non-2xx or unreachable
}

// NewRobotsChecker creates a new RobotsChecker.
func NewRobotsChecker(httpClient *http.Client, userAgent string, cacheTTL time.Duration) *RobotsChecker {
	if cacheTTL == 0 {
		cacheTTL = defaultRobotsCacheTTL
	}

	return &RobotsChecker{
		httpClient: httpClient,
		userAgent:  userAgent,
		cache:      make(map[string]*robotsCacheEntry),
		cacheTTL:   cacheTTL,
	}
}

// IsAllowed checks if the given URL is allowed by the host's robots.txt.
// Missing or errored robots.txt results in allow all.
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, host, err := parseHost(rawURL)
	if err != nil {
		return false, err
	}

	entry := r.getOrFetchEntry(ctx, host, parsed.Scheme)
	if entry.allowAll || entry.data == nil {
		return true, nil
	}

	return entry.data.TestAgent(parsed.Path, r.userAgent), nil
}

// Sitemaps returns the sitemap URLs declared in the robots.txt of rawURL's
// host. A missing robots.txt yields no sitemaps and no error.
func (r *RobotsChecker) Sitemaps(ctx context.Context, rawURL string) ([]string, error) {
	parsed, host, err := parseHost(rawURL)
	if err != nil {
		return nil, err
	}

	entry := r.getOrFetchEntry(ctx, host, parsed.Scheme)
	return append([]string(nil), entry.sitemaps...), nil
}

// CrawlDelay returns the crawl-delay for the host, if specified in robots.txt.
func (r *RobotsChecker) CrawlDelay(host string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.cache[strings.ToLower(host)]
	if !ok || entry.allowAll || entry.data == nil {
		return 0
	}

	group := entry.data.FindGroup(r.userAgent)
	if group == nil {
		return 0
	}

	return group.CrawlDelay
}

func parseHost(rawURL string) (*url.URL, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("robots: parse url: %w", err)
	}

	host := strings.ToLower(parsed.Host)
	if host == "" {
		return nil, "", fmt.Errorf("robots: empty host in url %q", rawURL)
	}
	return parsed, host, nil
}

// getOrFetchEntry returns a cached entry if fresh, otherwise fetches robots.txt.
func (r *RobotsChecker) getOrFetchEntry(ctx context.Context, host, scheme string) *robotsCacheEntry {
	if entry, ok := r.getCachedEntry(host); ok {
		return entry
	}

	return r.fetchAndCache(ctx, host, scheme)
}

// getCachedEntry returns a cached entry if it exists and is not stale.
func (r *RobotsChecker) getCachedEntry(host string) (*robotsCacheEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.cache[host]
	if !ok || time.Since(entry.fetchedAt) > r.cacheTTL {
		return nil, false
	}

	return entry, true
}

// fetchAndCache fetches robots.txt for the host and caches the result.
// Fetch failures are cached as allow-all.
func (r *RobotsChecker) fetchAndCache(ctx context.Context, host, scheme string) *robotsCacheEntry {
	if scheme == "" {
		scheme = "https"
	}

	entry := &robotsCacheEntry{fetchedAt: time.Now(), allowAll: true}

	body, statusCode, fetchErr := r.doFetch(ctx, scheme+"://"+host+robotsTxtPath)
	if fetchErr == nil && isSuccessStatus(statusCode) {
		entry = parseRobots(body)
	}

	r.mu.Lock()
	r.cache[host] = entry
	r.mu.Unlock()

	return entry
}

// doFetch performs the HTTP GET request for a robots.txt URL.
func (r *RobotsChecker) doFetch(ctx context.Context, robotsURL string) (body []byte, statusCode int, err error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if reqErr != nil {
		return nil, 0, fmt.Errorf("robots: create request: %w", reqErr)
	}

	req.Header.Set("User-Agent", r.userAgent)

	resp, doErr := r.httpClient.Do(req) //nolint:gosec // URL built from the crawl target host
	if doErr != nil {
		return nil, 0, fmt.Errorf("robots: fetch: %w", doErr)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if readErr != nil {
		return nil, resp.StatusCode, fmt.Errorf("robots: read body: %w", readErr)
	}

	return body, resp.StatusCode, nil
}

// parseRobots builds a cache entry from a 2xx robots.txt body. When the
// parser rejects the file, sitemap lines are still recovered by scanning.
func parseRobots(body []byte) *robotsCacheEntry {
	entry := &robotsCacheEntry{fetchedAt: time.Now()}

	robots, err := robotstxt.FromBytes(body)
	if err != nil {
		entry.allowAll = true
		entry.sitemaps = scanSitemapLines(body)
		return entry
	}

	entry.data = robots
	entry.sitemaps = robots.Sitemaps
	if len(entry.sitemaps) == 0 {
		entry.sitemaps = scanSitemapLines(body)
	}
	return entry
}

// scanSitemapLines collects the value of every "sitemap:" line, matched
// case-insensitively.
func scanSitemapLines(body []byte) []string {
	var sitemaps []string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) <= len(sitemapDirective) || !strings.EqualFold(line[:len(sitemapDirective)], sitemapDirective) {
			continue
		}
		if value := strings.TrimSpace(line[len(sitemapDirective):]); value != "" {
			sitemaps = append(sitemaps, value)
		}
	}
	return sitemaps
}
