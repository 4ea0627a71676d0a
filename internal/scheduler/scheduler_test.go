package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
	"github.com/K11E3R/moroccan-education-API/internal/scheduler"
	"github.com/K11E3R/moroccan-education-API/internal/tracker"
)

type countingRunner struct {
	mu    sync.Mutex
	calls int
	title string
	err   error
}

func (r *countingRunner) run(_ context.Context) (*domain.CollectionRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	run := domain.NewCollectionRun("edu.example.ma", "Morocco")
	_ = run.Append(&domain.ContentItem{ID: "c1", Title: r.title, ContentType: domain.CategoryCourse})
	return run, nil
}

func (r *countingRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type skipCounter struct {
	mu    sync.Mutex
	skips int
}

func (s *skipCounter) ObserveScheduleSkip() {
	s.mu.Lock()
	s.skips++
	s.mu.Unlock()
}

func newRedisTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return tracker.New(client, "test", 24*time.Hour)
}

func TestNew_Validates(t *testing.T) {
	t.Parallel()

	_, err := scheduler.New("not a cron", "src", nil, nil)
	require.Error(t, err)

	_, err = scheduler.New("0 3 * * *", "", nil, nil)
	require.ErrorIs(t, err, scheduler.ErrEmptySource)
}

func TestBaseline(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		spec string
		want time.Duration
	}{
		{"0 3 * * *", 24 * time.Hour},
		{"*/30 * * * *", 30 * time.Minute},
		{"0 */6 * * *", 6 * time.Hour},
	}
	for _, tt := range tests {
		s, err := scheduler.New(tt.spec, "src", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, s.Baseline(now), tt.spec)
	}
}

func TestTick_WithoutTrackerAlwaysRuns(t *testing.T) {
	t.Parallel()

	r := &countingRunner{title: "Les limites"}
	s, err := scheduler.New("0 * * * *", "src", r.run, logger.NewNoOp())
	require.NoError(t, err)

	for range 3 {
		out, tickErr := s.Tick(context.Background(), time.Now())
		require.NoError(t, tickErr)
		assert.Equal(t, scheduler.OutcomeRan, out)
	}
	assert.Equal(t, 3, r.Calls())
}

func TestTick_BacksOffWhileUnchanged(t *testing.T) {
	t.Parallel()

	r := &countingRunner{title: "Les limites"}
	skips := &skipCounter{}
	s, err := scheduler.New("0 * * * *", "src", r.run, logger.NewNoOp(),
		scheduler.WithTracker(newRedisTracker(t)),
		scheduler.WithSkipObserver(skips),
	)
	require.NoError(t, err)

	ctx := context.Background()
	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	hour := func(h int) time.Time { return start.Add(time.Duration(h) * time.Hour) }

	// h0 first run (changed), h1 due, unchanged → next due at h3.
	var outcomes []scheduler.Outcome
	for h := range 4 {
		out, tickErr := s.Tick(ctx, hour(h))
		require.NoError(t, tickErr)
		outcomes = append(outcomes, out)
	}

	assert.Equal(t, []scheduler.Outcome{
		scheduler.OutcomeRan,
		scheduler.OutcomeRan,
		scheduler.OutcomeBackoff,
		scheduler.OutcomeRan,
	}, outcomes)
	assert.Equal(t, 3, r.Calls())
	assert.Equal(t, 1, skips.skips)

	// a change resets the interval
	r.title = "Les suites"
	out, err := s.Tick(ctx, hour(7))
	require.NoError(t, err)
	assert.Equal(t, scheduler.OutcomeRan, out)
	out, err = s.Tick(ctx, hour(8))
	require.NoError(t, err)
	assert.Equal(t, scheduler.OutcomeRan, out)
}

func TestTick_FailedRunIsNotRecorded(t *testing.T) {
	t.Parallel()

	tr := newRedisTracker(t)
	r := &countingRunner{err: errors.New("no sitemap")}
	s, err := scheduler.New("0 * * * *", "src", r.run, nil, scheduler.WithTracker(tr))
	require.NoError(t, err)

	out, err := s.Tick(context.Background(), time.Now())
	require.Error(t, err)
	assert.Equal(t, scheduler.OutcomeRunFailed, out)

	_, getErr := tr.Get(context.Background(), "src")
	require.ErrorIs(t, getErr, tracker.ErrStateNotFound)
}

func TestTick_SkipsOverlappingRun(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	run := func(context.Context) (*domain.CollectionRun, error) {
		close(started)
		<-release
		return domain.NewCollectionRun("src", ""), nil
	}
	s, err := scheduler.New("* * * * *", "src", run, nil)
	require.NoError(t, err)

	done := make(chan scheduler.Outcome)
	go func() {
		out, _ := s.Tick(context.Background(), time.Now())
		done <- out
	}()
	<-started

	out, err := s.Tick(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, scheduler.OutcomeOverlap, out)

	close(release)
	assert.Equal(t, scheduler.OutcomeRan, <-done)
}

func TestStart_RunNowAndStop(t *testing.T) {
	t.Parallel()

	r := &countingRunner{title: "x"}
	s, err := scheduler.New("0 3 1 1 *", "src", r.run, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx, true) }()

	require.Eventually(t, func() bool { return r.Calls() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
