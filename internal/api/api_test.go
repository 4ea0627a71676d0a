package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/K11E3R/moroccan-education-API/internal/api"
	"github.com/K11E3R/moroccan-education-API/internal/domain"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
	"github.com/K11E3R/moroccan-education-API/internal/server"
	"github.com/K11E3R/moroccan-education-API/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sampleRun(t *testing.T) *domain.CollectionRun {
	t.Helper()

	run := domain.NewCollectionRun("moutamadris.ma", "Morocco")
	records := []domain.Record{
		&domain.Level{ID: "college", Name: "Collège", NameAr: "الإعدادي"},
		&domain.Level{ID: "lycee", Name: "Lycée", NameAr: "الثانوي"},
		&domain.Subject{ID: "math", Name: "Mathématiques", NameAr: "الرياضيات", LevelID: "college"},
		&domain.Subject{ID: "physique", Name: "Physique-Chimie", NameAr: "الفيزياء والكيمياء", LevelID: "lycee"},
		&domain.ContentItem{ID: "c1", Title: "Les fractions", TitleAr: "الكسور", ContentType: domain.CategoryCourse, LevelID: "college", SubjectID: "math"},
		&domain.ContentItem{ID: "e1", Title: "Exercices fractions", ContentType: domain.CategoryExercise, LevelID: "college", SubjectID: "math"},
		&domain.ContentItem{ID: "x1", Title: "Examen national physique", ContentType: domain.CategoryExam, LevelID: "lycee", SubjectID: "physique"},
	}
	for _, rec := range records {
		require.NoError(t, run.Append(rec))
	}
	run.Finalize(domain.FetchStats{Attempted: 10, Visited: 8, Failed: 2}, time.Second)
	return run
}

func newRouter(t *testing.T, opts api.Options) *gin.Engine {
	t.Helper()

	r := gin.New()
	api.NewHandler(api.NewStore(sampleRun(t)), opts, logger.NewNoOp()).RegisterRoutes(r)
	return r
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, http.NoBody))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestLevels_ListAndGet(t *testing.T) {
	t.Parallel()

	r := newRouter(t, api.Options{})

	w := get(t, r, "/api/v1/levels")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[api.ListResponse[domain.Level]](t, w)
	assert.True(t, list.Success)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, "college", list.Data[0].ID)

	w = get(t, r, "/api/v1/levels/lycee")
	require.Equal(t, http.StatusOK, w.Code)
	item := decode[api.ItemResponse[domain.Level]](t, w)
	assert.Equal(t, "الثانوي", item.Data.NameAr)

	w = get(t, r, "/api/v1/levels/universite")
	require.Equal(t, http.StatusNotFound, w.Code)
	errResp := decode[server.ErrorResponse](t, w)
	assert.Equal(t, server.CodeNotFound, errResp.Code)
	assert.False(t, errResp.Timestamp.IsZero())
}

func TestPagination(t *testing.T) {
	t.Parallel()

	r := newRouter(t, api.Options{})

	list := decode[api.ListResponse[domain.ContentItem]](t, get(t, r, "/api/v1/content?limit=2&offset=1"))
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, 2, list.Limit)
	assert.Equal(t, 1, list.Offset)
	assert.Equal(t, "e1", list.Data[0].ID)

	list = decode[api.ListResponse[domain.ContentItem]](t, get(t, r, "/api/v1/content?offset=50"))
	assert.Equal(t, 0, list.Count)
	assert.NotNil(t, list.Data)

	for _, q := range []string{"limit=0", "limit=abc", "offset=-1"} {
		w := get(t, r, "/api/v1/levels?"+q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestSubjects_FilterByLevel(t *testing.T) {
	t.Parallel()

	r := newRouter(t, api.Options{})

	list := decode[api.ListResponse[domain.Subject]](t, get(t, r, "/api/v1/subjects?level_id=lycee"))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "physique", list.Data[0].ID)

	w := get(t, r, "/api/v1/subjects?level_id=none")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(mustField(t, w, "data")))

	assert.Equal(t, http.StatusOK, get(t, r, "/api/v1/subjects/math").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/api/v1/subjects/none").Code)
}

func mustField(t *testing.T, w *httptest.ResponseRecorder, field string) json.RawMessage {
	t.Helper()

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m[field]
}

func TestContent_FiltersAndAlias(t *testing.T) {
	t.Parallel()

	r := newRouter(t, api.Options{})

	list := decode[api.ListResponse[domain.ContentItem]](t, get(t, r, "/api/v1/content?level_id=college&subject_id=math"))
	assert.Equal(t, 2, list.Total)

	list = decode[api.ListResponse[domain.ContentItem]](t, get(t, r, "/api/v1/courses?content_type=exam"))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "x1", list.Data[0].ID)

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/v1/content?content_type=level").Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/api/v1/content/c1").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/api/v1/content/zzz").Code)
}

func TestSearch(t *testing.T) {
	t.Parallel()

	r := newRouter(t, api.Options{})

	w := get(t, r, "/api/v1/search")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, server.CodeBadRequest, decode[server.ErrorResponse](t, w).Code)

	resp := decode[api.SearchResponse](t, get(t, r, "/api/v1/search?q=FRACTIONS"))
	assert.Equal(t, 2, resp.TotalResults)
	assert.Len(t, resp.Results.Content, 2)
	assert.Empty(t, resp.Results.Levels)
	assert.Equal(t, "fr", resp.Language)

	resp = decode[api.SearchResponse](t, get(t, r, "/api/v1/search?q=college&type=levels"))
	require.Len(t, resp.Results.Levels, 1)
	assert.Empty(t, resp.Results.Content)

	resp = decode[api.SearchResponse](t, get(t, r, "/api/v1/search?q=%D8%A7%D9%84%D9%83%D8%B3%D9%88%D8%B1&language=ar"))
	require.Len(t, resp.Results.Content, 1)
	assert.Equal(t, "c1", resp.Results.Content[0].ID)

	resp = decode[api.SearchResponse](t, get(t, r, "/api/v1/search?q=fractions&type=courses"))
	assert.Len(t, resp.Results.Content, 2)

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/v1/search?q=x&type=books").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/v1/search?q=x&language=en").Code)
}

func TestRootStatsHealth(t *testing.T) {
	t.Parallel()

	r := newRouter(t, api.Options{
		Version: "2.0.0",
		HealthChecks: map[string]server.HealthChecker{
			"redis": server.PingChecker(func(context.Context) error { return errors.New("down") }),
		},
	})

	w := get(t, r, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `7`, string(mustField(t, w, "total_items")))
	assert.JSONEq(t, `"2.0.0"`, string(mustField(t, w, "version")))

	stats := decode[api.ItemResponse[map[string]any]](t, get(t, r, "/api/v1/stats"))
	assert.InDelta(t, 0.8, stats.Data["quality_score"], 1e-9)
	assert.InDelta(t, 1, stats.Data["exams_count"], 1e-9)
	assert.Equal(t, "2.0.0", stats.Data["api_version"])
	assert.Equal(t, "operational", stats.Data["status"])

	health := decode[api.HealthResponse](t, get(t, r, "/health"))
	assert.True(t, health.DataLoaded)
	assert.Equal(t, "degraded", health.Status)
	assert.Contains(t, health.Checks, "redis")

	assert.Equal(t, http.StatusNotFound, get(t, r, "/api/v2/levels").Code)
}

func TestEmptyStore(t *testing.T) {
	t.Parallel()

	r := gin.New()
	api.NewHandler(nil, api.Options{}, nil).RegisterRoutes(r)

	health := decode[api.HealthResponse](t, get(t, r, "/health"))
	assert.False(t, health.DataLoaded)
	assert.Equal(t, "healthy", health.Status)

	w := get(t, r, "/api/v1/levels")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(mustField(t, w, "data")))
	assert.JSONEq(t, `"N/A"`, string(mustField(t, get(t, r, "/"), "last_update")))
}

func TestLoadStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, storage.NewJSONSink(path, nil).Write(context.Background(), sampleRun(t)))

	store, err := api.LoadStore(path)
	require.NoError(t, err)
	assert.True(t, store.DataLoaded())
	assert.Len(t, store.Levels(), 2)

	_, err = api.LoadStore(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, storage.ErrDatasetNotFound)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = api.LoadStore(bad)
	require.Error(t, err)
}

type countingObserver struct {
	mu     sync.Mutex
	hits   int
	misses int
}

func (o *countingObserver) ObserveCache(hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func TestRedisCache_ServesRepeatedRequests(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	obs := &countingObserver{}
	r := newRouter(t, api.Options{
		Cache:         api.NewRedisCache(client, "edu"),
		CacheTTL:      time.Minute,
		CacheObserver: obs,
	})

	first := get(t, r, "/api/v1/search?q=fractions&type=all")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := get(t, r, "/api/v1/search?type=all&q=fractions")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)
	assert.Len(t, mr.Keys(), 1)

	mr.FastForward(2 * time.Minute)
	assert.Empty(t, mr.Keys())

	bad := get(t, r, "/api/v1/search")
	require.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Empty(t, mr.Keys(), "errors are not cached")
}

func TestRedisCache_FailureFallsThrough(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	r := newRouter(t, api.Options{Cache: api.NewRedisCache(client, "")})
	w := get(t, r, "/api/v1/levels")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRedisCache_GetSet(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := api.NewRedisCache(client, "edu")
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte(`{"a":1}`), time.Minute))
	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(val))
	assert.True(t, mr.Exists("edu:api:k"))
	require.NoError(t, c.Ping(ctx))
}
