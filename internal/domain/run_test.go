package domain_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
)

const appendWorkers = 16

func TestCollectionRun_ConcurrentAppend(t *testing.T) {
	t.Parallel()

	run := domain.NewCollectionRun("test", "morocco")

	var wg sync.WaitGroup
	for i := range appendWorkers {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			var rec domain.Record
			switch n % 3 {
			case 0:
				rec = &domain.Level{ID: "level"}
			case 1:
				rec = &domain.Subject{ID: "subject"}
			default:
				rec = &domain.ContentItem{ID: "item", ContentType: domain.CategoryExam}
			}
			assert.NoError(t, run.Append(rec))
		}(i)
	}
	wg.Wait()

	run.Finalize(domain.FetchStats{Attempted: appendWorkers, Visited: appendWorkers}, time.Second)

	meta := run.Metadata
	assert.Equal(t, appendWorkers, meta.TotalItems)
	assert.Equal(t, 6, meta.LevelsCount)
	assert.Equal(t, 5, meta.SubjectsCount)
	assert.Equal(t, 5, meta.ExamsCount)
	assert.InDelta(t, 1.0, meta.QualityScore, 1e-9)
	assert.Equal(t, []string{"fr", "ar"}, meta.Languages)
	assert.Equal(t, "1s", meta.CollectionDuration)
}

func TestCollectionRun_FinalizeOnce(t *testing.T) {
	t.Parallel()

	run := domain.NewCollectionRun("test", "morocco")
	require.NoError(t, run.Append(&domain.ContentItem{ID: "a", ContentType: domain.CategoryCourse}))

	run.Finalize(domain.FetchStats{Attempted: 4, Visited: 3, Failed: 1}, 0)
	run.Finalize(domain.FetchStats{Attempted: 100, Visited: 1, Failed: 99}, 0)

	assert.True(t, run.Finalized())
	assert.Equal(t, 1, run.Metadata.FailedURLs)
	assert.Equal(t, 4, run.Metadata.AttemptedURLs)
	assert.InDelta(t, 0.75, run.Metadata.QualityScore, 1e-9)

	err := run.Append(&domain.Level{ID: "late"})
	require.ErrorIs(t, err, domain.ErrRunFinalized)
}

func TestCollectionRun_AppendRejectsNonContentType(t *testing.T) {
	t.Parallel()

	run := domain.NewCollectionRun("test", "morocco")
	err := run.Append(&domain.ContentItem{ID: "x", ContentType: domain.CategoryLevel})
	require.ErrorIs(t, err, domain.ErrUnknownCategory)
}

func TestFetchStats_QualityScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stats domain.FetchStats
		want  float64
	}{
		{name: "nothing attempted", stats: domain.FetchStats{}, want: 0},
		{name: "all visited", stats: domain.FetchStats{Attempted: 5, Visited: 5}, want: 1},
		{name: "half", stats: domain.FetchStats{Attempted: 4, Visited: 2, Failed: 2}, want: 0.5},
		{name: "clamped", stats: domain.FetchStats{Attempted: 1, Visited: 3}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, tt.stats.QualityScore(), 1e-9)
		})
	}
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	for _, c := range domain.Categories() {
		parsed, err := domain.ParseCategory(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := domain.ParseCategory("homework")
	require.ErrorIs(t, err, domain.ErrUnknownCategory)
}
