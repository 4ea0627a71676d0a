package sitemap_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/K11E3R/moroccan-education-API/internal/fetcher"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
	"github.com/K11E3R/moroccan-education-API/internal/sitemap"
)

// baseToken is replaced by the test server's origin in fixture bodies.
const baseToken = "{{base}}"

// siteFixture serves fixed bodies by path; unknown paths are 404.
type siteFixture map[string]string

func newSite(t *testing.T, pages siteFixture) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method == http.MethodGet {
			hits.Add(1)
		}
		_, _ = w.Write([]byte(strings.ReplaceAll(body, baseToken, "http://"+r.Host)))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func urlset(paths ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, p := range paths {
		b.WriteString("<url><loc>" + baseToken + p + "</loc></url>")
	}
	b.WriteString("</urlset>")
	return b.String()
}

func index(paths ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, p := range paths {
		b.WriteString("<sitemap><loc>" + baseToken + p + "</loc></sitemap>")
	}
	b.WriteString("</sitemapindex>")
	return b.String()
}

func newResolver(cfg sitemap.Config) *sitemap.Resolver {
	client := fetcher.NewClient(fetcher.Config{Concurrency: 4})
	robots := fetcher.NewRobotsChecker(client.HTTPClient(), client.UserAgent(), 0)
	return sitemap.NewResolver(client, robots, logger.NewNoOp(), cfg)
}

func educationSite() siteFixture {
	return siteFixture{
		"/robots.txt":               "User-agent: *\nDisallow:\nsitemap: " + baseToken + "/sitemap-main.xml\n",
		"/sitemap_index.xml":        index("/sitemap-cours.xml", "/sitemap-broken.xml", "/sitemap-missing.xml", "/nested.xml"),
		"/sitemap-main.xml":         index("/sitemap-examens.xml"),
		"/sitemap-cours.xml":        urlset("/cours/math-1", "/cours/math-1#plan", "/exercice/algebre"),
		"/sitemap-examens.xml":      urlset("/examen/bac-2024", "/exercice/algebre"),
		"/sitemap-broken.xml":       "<urlset><url><loc>",
		"/nested.xml":               index("/sitemap-deep.xml", "/nested.xml"),
		"/sitemap-deep.xml":         urlset("/correction/bac-2024"),
		"/sitemaps/unused-page.xml": urlset("/never"),
	}
}

func TestResolve_ExpandsIndexesAndDeduplicates(t *testing.T) {
	t.Parallel()

	server, _ := newSite(t, educationSite())

	urls, err := newResolver(sitemap.Config{}).Resolve(context.Background(), server.URL, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		server.URL + "/correction/bac-2024",
		server.URL + "/cours/math-1",
		server.URL + "/examen/bac-2024",
		server.URL + "/exercice/algebre",
	}, urls)
}

func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()

	server, _ := newSite(t, educationSite())
	resolver := newResolver(sitemap.Config{})

	first, err := resolver.Resolve(context.Background(), server.URL, nil)
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), server.URL, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolveDetailed_CountsFailures(t *testing.T) {
	t.Parallel()

	server, _ := newSite(t, educationSite())

	res, err := newResolver(sitemap.Config{}).ResolveDetailed(context.Background(), server.URL, nil)
	require.NoError(t, err)

	// broken and missing fail; main, index, cours, examens, nested, deep succeed.
	assert.Equal(t, 2, res.SitemapsFailed)
	assert.Equal(t, 6, res.SitemapsFetched)
	assert.Zero(t, res.Truncated)
}

func TestResolve_DepthCap(t *testing.T) {
	t.Parallel()

	server, _ := newSite(t, siteFixture{
		"/chain-0.xml": index("/chain-1.xml"),
		"/chain-1.xml": index("/chain-2.xml"),
		"/chain-2.xml": urlset("/cours/profond"),
	})

	shallow, err := newResolver(sitemap.Config{MaxDepth: 2}).
		ResolveDetailed(context.Background(), server.URL, []string{"/chain-0.xml"})
	require.NoError(t, err)
	assert.Empty(t, shallow.URLs)
	assert.Equal(t, 1, shallow.Truncated)

	deep, err := newResolver(sitemap.Config{MaxDepth: 3}).
		Resolve(context.Background(), server.URL, []string{"/chain-0.xml"})
	require.NoError(t, err)
	assert.Equal(t, []string{server.URL + "/cours/profond"}, deep)
}

func TestResolve_FetchesEachSitemapOnce(t *testing.T) {
	t.Parallel()

	server, hits := newSite(t, siteFixture{
		"/a.xml": index("/b.xml", "/c.xml"),
		"/b.xml": index("/c.xml", "/a.xml"),
		"/c.xml": urlset("/lecon/1"),
	})

	urls, err := newResolver(sitemap.Config{}).
		Resolve(context.Background(), server.URL, []string{server.URL + "/a.xml"})
	require.NoError(t, err)

	assert.Equal(t, []string{server.URL + "/lecon/1"}, urls)
	// robots.txt is a 404 and not counted; a, b, c are each fetched once.
	assert.Equal(t, int32(3), hits.Load())
}

func TestResolve_NoSitemaps(t *testing.T) {
	t.Parallel()

	server, _ := newSite(t, siteFixture{})

	urls, err := newResolver(sitemap.Config{}).Resolve(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestResolve_InvalidBaseURL(t *testing.T) {
	t.Parallel()

	resolver := newResolver(sitemap.Config{})
	for _, base := range []string{"", "not a url", "ftp://edu.example.ma", "/relative"} {
		_, err := resolver.Resolve(context.Background(), base, nil)
		assert.ErrorIs(t, err, sitemap.ErrInvalidBaseURL, "base %q", base)
	}
}

func TestResolve_CancelledContext(t *testing.T) {
	t.Parallel()

	server, _ := newSite(t, educationSite())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newResolver(sitemap.Config{}).Resolve(ctx, server.URL, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
