// Package scheduler runs collections on a cron schedule and skips runs
// while the dataset of a source keeps coming back unchanged.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
	"github.com/K11E3R/moroccan-education-API/internal/tracker"
)

// ErrEmptySource is returned when no source name is configured.
var ErrEmptySource = errors.New("scheduler: source is required")

// RunFunc performs one collection and returns the finalized run.
type RunFunc func(ctx context.Context) (*domain.CollectionRun, error)

// Tracker remembers dataset fingerprints; tracker.Tracker implements it.
type Tracker interface {
	Due(ctx context.Context, source string, now time.Time) (bool, *tracker.State, error)
	Record(ctx context.Context, source, hash string, baseline time.Duration, startedAt time.Time) (*tracker.State, bool, error)
}

// SkipObserver counts skipped activations.
type SkipObserver interface {
	ObserveScheduleSkip()
}

// Outcome of one activation.
type Outcome string

const (
	OutcomeRan       Outcome = "ran"
	OutcomeBackoff   Outcome = "backoff"
	OutcomeOverlap   Outcome = "overlap"
	OutcomeRunFailed Outcome = "failed"
)

// Scheduler triggers RunFunc on a standard five-field cron expression.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	source   string
	run      RunFunc
	tracker  Tracker
	observer SkipObserver
	logger   logger.Interface

	mu      sync.Mutex
	running bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTracker enables change tracking. Without it every activation runs.
func WithTracker(t Tracker) Option {
	return func(s *Scheduler) { s.tracker = t }
}

// WithSkipObserver reports skipped activations.
func WithSkipObserver(o SkipObserver) Option {
	return func(s *Scheduler) { s.observer = o }
}

// New parses spec and returns a scheduler for source.
func New(spec, source string, run RunFunc, log logger.Interface, opts ...Option) (*Scheduler, error) {
	if source == "" {
		return nil, ErrEmptySource
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	s := &Scheduler{
		spec:     spec,
		schedule: schedule,
		source:   source,
		run:      run,
		logger:   log.WithComponent("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Baseline is the gap between the next two activations after now; it is
// the interval used while the dataset keeps changing.
func (s *Scheduler) Baseline(now time.Time) time.Duration {
	next := s.schedule.Next(now)
	return s.schedule.Next(next).Sub(next)
}

// Next returns the next activation after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	return s.schedule.Next(now)
}

// Tick handles one activation at now. It runs the collection unless one is
// still in progress or the tracker says the source is backing off.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (Outcome, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.skip(OutcomeOverlap, nil)
		return OutcomeOverlap, nil
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if s.tracker != nil {
		due, state, err := s.tracker.Due(ctx, s.source, now)
		if err != nil {
			s.logger.Warn("Change tracker unavailable, running anyway", "error", err)
		} else if !due {
			s.skip(OutcomeBackoff, state)
			return OutcomeBackoff, nil
		}
	}

	run, err := s.run(ctx)
	if err != nil {
		s.logger.Error("Scheduled collection failed", "error", err)
		return OutcomeRunFailed, err
	}

	if s.tracker != nil && run != nil {
		state, changed, recErr := s.tracker.Record(ctx, s.source, tracker.Fingerprint(run), s.Baseline(now), now)
		if recErr != nil {
			s.logger.Warn("Failed to record dataset fingerprint", "error", recErr)
		} else {
			s.logger.Info("Dataset fingerprint recorded",
				"changed", changed,
				"unchanged_count", state.UnchangedCount,
				"next_run_at", state.NextRunAt,
			)
		}
	}
	return OutcomeRan, nil
}

func (s *Scheduler) skip(outcome Outcome, state *tracker.State) {
	if s.observer != nil {
		s.observer.ObserveScheduleSkip()
	}
	fields := []any{"reason", string(outcome)}
	if state != nil {
		fields = append(fields, "next_run_at", state.NextRunAt, "unchanged_count", state.UnchangedCount)
	}
	s.logger.Info("Scheduled collection skipped", fields...)
}

// Start runs the cron loop until ctx is cancelled, then waits for an
// in-flight collection to return. With runNow the first collection starts
// immediately.
func (s *Scheduler) Start(ctx context.Context, runNow bool) error {
	c := cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithChain(cron.Recover(cronLogger{s.logger})),
	)

	activate := func() {
		if _, err := s.Tick(ctx, time.Now()); err != nil && ctx.Err() == nil {
			s.logger.Debug("Activation returned error", "error", err)
		}
	}

	if _, err := c.AddFunc(s.spec, activate); err != nil {
		return fmt.Errorf("failed to schedule %q: %w", s.spec, err)
	}

	s.logger.Info("Scheduler started", "cron", s.spec, "source", s.source, "next_run", s.Next(time.Now()))
	c.Start()

	// cron.Stop only waits for its own jobs.
	var immediate sync.WaitGroup
	if runNow {
		immediate.Add(1)
		go func() {
			defer immediate.Done()
			activate()
		}()
	}

	<-ctx.Done()
	s.logger.Info("Stopping scheduler")
	stopCtx := c.Stop()
	<-stopCtx.Done()
	immediate.Wait()

	s.logger.Info("Scheduler stopped")
	return nil
}

// cronLogger adapts logger.Interface to cron.Logger.
type cronLogger struct {
	log logger.Interface
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
