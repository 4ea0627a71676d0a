package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/K11E3R/moroccan-education-API/internal/collector"
	"github.com/K11E3R/moroccan-education-API/internal/database"
	"github.com/K11E3R/moroccan-education-API/internal/index"
	"github.com/K11E3R/moroccan-education-API/internal/metrics"
	"github.com/K11E3R/moroccan-education-API/internal/storage"
)

// SinkError records a secondary sink that failed after the dataset was saved.
type SinkError struct {
	Sink string
	Err  error
}

func (e SinkError) Error() string { return e.Sink + ": " + e.Err.Error() }

func (e SinkError) Unwrap() error { return e.Err }

// CollectOutcome is what one collection pass produced.
type CollectOutcome struct {
	Result     *collector.Result
	Output     string
	CSVPaths   []string
	Indexed    int
	Summary    *database.RunSummary
	SinkErrors []SinkError
}

// RunCollection runs the pipeline for the configured target, writes the
// dataset and then feeds the enabled secondary sinks: CSV export,
// Elasticsearch and the run history. A failure of the pipeline or of the
// JSON dataset is returned; secondary sink failures are collected in the
// outcome.
func RunCollection(ctx context.Context, deps CommandDeps, m *metrics.Metrics) (*CollectOutcome, error) {
	cfg := deps.Config
	log := deps.Logger

	if err := cfg.RequireTarget(); err != nil {
		return nil, err
	}

	pipeline, err := NewPipeline(cfg, log, m)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	start := time.Now()
	result, runErr := pipeline.Run(ctx, Target(cfg))

	outcome := &CollectOutcome{Result: result, Output: cfg.Storage.Output}
	if runErr == nil {
		runErr = storage.NewJSONSink(cfg.Storage.Output, log).Write(ctx, result.Run)
	}

	status := database.StatusSucceeded
	if runErr != nil {
		status = database.StatusFailed
	}
	m.RunsTotal.WithLabelValues(status).Inc()

	if runErr == nil {
		writeSecondarySinks(ctx, deps, outcome)
	}

	if cfg.Database.Enabled {
		recordRun(ctx, deps, outcome, time.Since(start), runErr)
	}

	for _, se := range outcome.SinkErrors {
		log.Error("Sink failed", "sink", se.Sink, "error", se.Err)
	}

	if runErr != nil {
		return outcome, runErr
	}
	return outcome, nil
}

func writeSecondarySinks(ctx context.Context, deps CommandDeps, outcome *CollectOutcome) {
	cfg := deps.Config
	run := outcome.Result.Run

	if cfg.Storage.CSV {
		csvSink := storage.NewCSVSink(cfg.Storage.Output, deps.Logger)
		if err := csvSink.Write(ctx, run); err != nil {
			outcome.SinkErrors = append(outcome.SinkErrors, SinkError{Sink: "csv", Err: err})
		} else {
			levels, subjects, content := csvSink.Paths()
			outcome.CSVPaths = []string{levels, subjects, content}
		}
	}

	if cfg.Elasticsearch.Enabled {
		indexer, _, err := NewIndexer(ctx, cfg.Elasticsearch, deps.Logger)
		if err == nil {
			var res index.Result
			res, err = indexer.Index(ctx, run)
			outcome.Indexed = res.Indexed
		}
		if err != nil {
			outcome.SinkErrors = append(outcome.SinkErrors, SinkError{Sink: "elasticsearch", Err: err})
		}
	}
}

func recordRun(ctx context.Context, deps CommandDeps, outcome *CollectOutcome, dur time.Duration, runErr error) {
	var summary *database.RunSummary
	if outcome.Result != nil {
		summary = database.NewRunSummary(outcome.Result.Run, dur, outcome.Output, runErr)
	} else {
		summary = database.NewRunSummary(nil, dur, outcome.Output, runErr)
		summary.Source = deps.Config.Target.SourceName()
		summary.Country = deps.Config.Target.Country
	}

	// The run is recorded even when ctx was cancelled mid-run.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	repo, closeDB, err := OpenRunRepository(recordCtx, deps.Config.Database, deps.Logger)
	if err == nil {
		defer closeDB()
		err = repo.Create(recordCtx, summary)
	}
	if err != nil {
		outcome.SinkErrors = append(outcome.SinkErrors, SinkError{Sink: "database", Err: err})
		return
	}
	outcome.Summary = summary
}

// JoinSinkErrors folds the sink failures into one error, or nil.
func (o *CollectOutcome) JoinSinkErrors() error {
	errs := make([]error, 0, len(o.SinkErrors))
	for _, se := range o.SinkErrors {
		errs = append(errs, se)
	}
	return errors.Join(errs...)
}
