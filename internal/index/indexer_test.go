package index_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
	"github.com/K11E3R/moroccan-education-API/internal/index"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
)

// fakeES answers the index and bulk endpoints the indexer uses.
type fakeES struct {
	mu       sync.Mutex
	indices  map[string]bool
	created  []string
	bulkDocs map[string][]map[string]any
	bulkReqs int
	failIDs  map[string]bool
}

func newFakeES() *fakeES {
	return &fakeES{
		indices:  map[string]bool{},
		bulkDocs: map[string][]map[string]any{},
		failIDs:  map[string]bool{},
	}
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodGet && path == "":
		_, _ = w.Write([]byte(`{"version":{"number":"8.11.0"},"tagline":"You Know, for Search"}`))
	case r.Method == http.MethodHead && path == "":
		w.WriteHeader(http.StatusOK)
	case strings.HasSuffix(path, "_bulk"):
		f.handleBulk(w, r)
	case r.Method == http.MethodHead:
		if f.indices[path] {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case r.Method == http.MethodPut:
		f.indices[path] = true
		f.created = append(f.created, path)
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeES) handleBulk(w http.ResponseWriter, r *http.Request) {
	f.bulkReqs++

	type item struct {
		ID     string         `json:"_id"`
		Status int            `json:"status"`
		Error  map[string]any `json:"error,omitempty"`
	}
	var items []map[string]item
	hasErrors := false

	sc := bufio.NewScanner(r.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var meta struct {
			Index struct {
				Index string `json:"_index"`
				ID    string `json:"_id"`
			} `json:"index"`
		}
		if err := json.Unmarshal(sc.Bytes(), &meta); err != nil || !sc.Scan() {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var doc map[string]any
		_ = json.Unmarshal(sc.Bytes(), &doc)

		id := meta.Index.ID
		if f.failIDs[id] {
			hasErrors = true
			items = append(items, map[string]item{"index": {
				ID: id, Status: http.StatusBadRequest,
				Error: map[string]any{"type": "mapper_parsing_exception", "reason": "bad field"},
			}})
			continue
		}
		f.bulkDocs[meta.Index.Index] = append(f.bulkDocs[meta.Index.Index], doc)
		items = append(items, map[string]item{"index": {ID: id, Status: http.StatusCreated}})
	}

	_ = json.NewEncoder(w).Encode(map[string]any{"took": 1, "errors": hasErrors, "items": items})
}

func sampleRun(t *testing.T) *domain.CollectionRun {
	t.Helper()

	at := domain.NewTimestamp(time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC))
	run := domain.NewCollectionRun("edu.example.ma", "Morocco")
	require.NoError(t, run.Append(&domain.Level{ID: "college", Name: "Collège", NameAr: "الإعدادي", CollectedAt: at}))
	require.NoError(t, run.Append(&domain.Subject{ID: "math", Name: "Mathématiques", LevelID: "college", CollectedAt: at}))
	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, run.Append(&domain.ContentItem{
			ID: id, Title: "Cours " + id, ContentType: domain.CategoryCourse,
			LevelID: "college", SubjectID: "math", Language: "fr", CollectedAt: at,
		}))
	}
	run.Finalize(domain.FetchStats{Attempted: 5, Visited: 5}, time.Second)
	return run
}

func newIndexer(t *testing.T, fake *fakeES, bulkSize int) *index.Indexer {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := index.Config{Addresses: []string{srv.URL}, IndexPrefix: "test", BulkSize: bulkSize, MaxRetries: 1}
	client, err := index.NewClient(cfg)
	require.NoError(t, err)
	return index.NewIndexer(client, cfg, logger.NewNoOp())
}

func TestIndexer_IndexNames(t *testing.T) {
	t.Parallel()

	ix := newIndexer(t, newFakeES(), 0)
	levels, subjects, content := ix.IndexNames()
	assert.Equal(t, "test_levels", levels)
	assert.Equal(t, "test_subjects", subjects)
	assert.Equal(t, "test_content", content)
}

func TestIndexer_CreatesIndicesOnce(t *testing.T) {
	t.Parallel()

	fake := newFakeES()
	ix := newIndexer(t, fake, 0)

	require.NoError(t, ix.EnsureIndices(context.Background()))
	require.NoError(t, ix.EnsureIndices(context.Background()))

	assert.ElementsMatch(t, []string{"test_levels", "test_subjects", "test_content"}, fake.created)
}

func TestIndexer_BulkIndexesInBatches(t *testing.T) {
	t.Parallel()

	fake := newFakeES()
	ix := newIndexer(t, fake, 2)

	res, err := ix.Index(context.Background(), sampleRun(t))
	require.NoError(t, err)

	assert.Equal(t, 5, res.Indexed)
	assert.Zero(t, res.Failed)
	// one batch each for levels and subjects, two for three content items
	assert.Equal(t, 4, fake.bulkReqs)
	require.Len(t, fake.bulkDocs["test_content"], 3)
	assert.Equal(t, "course", fake.bulkDocs["test_content"][0]["content_type"])
	assert.Equal(t, "الإعدادي", fake.bulkDocs["test_levels"][0]["name_ar"])
}

func TestIndexer_ReportsItemFailures(t *testing.T) {
	t.Parallel()

	fake := newFakeES()
	fake.failIDs["c2"] = true
	ix := newIndexer(t, fake, 0)

	res, err := ix.Index(context.Background(), sampleRun(t))
	require.ErrorIs(t, err, index.ErrBulkItems)
	assert.Equal(t, 4, res.Indexed)
	assert.Equal(t, 1, res.Failed)
}

func TestIndexer_WriteNilRun(t *testing.T) {
	t.Parallel()

	ix := newIndexer(t, newFakeES(), 0)
	require.Error(t, ix.Write(context.Background(), nil))
}

func TestNewClient_RequiresAddress(t *testing.T) {
	t.Parallel()

	_, err := index.NewClient(index.Config{})
	require.ErrorIs(t, err, index.ErrNoAddresses)
}

func TestPing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newFakeES())
	defer srv.Close()

	client, err := index.NewClient(index.Config{Addresses: []string{strings.TrimPrefix(srv.URL, "http://")}})
	require.NoError(t, err)
	require.NoError(t, index.Ping(context.Background(), client))
}
