package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
)

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

const defaultListLimit = 20

// ErrRunNotFound is returned when no run is recorded.
var ErrRunNotFound = errors.New("collection run not found")

// RunSummary is one row of the run history.
type RunSummary struct {
	ID               int64          `db:"id"`
	RunID            string         `db:"run_id"`
	Source           string         `db:"source"`
	Country          string         `db:"country"`
	Status           string         `db:"status"`
	CollectionDate   time.Time      `db:"collection_date"`
	TotalItems       int            `db:"total_items"`
	LevelsCount      int            `db:"levels_count"`
	SubjectsCount    int            `db:"subjects_count"`
	CoursesCount     int            `db:"courses_count"`
	ExercisesCount   int            `db:"exercises_count"`
	ControlsCount    int            `db:"controls_count"`
	ExamsCount       int            `db:"exams_count"`
	CorrectionsCount int            `db:"corrections_count"`
	VisitedURLs      int            `db:"visited_urls"`
	FailedURLs       int            `db:"failed_urls"`
	AttemptedURLs    int            `db:"attempted_urls"`
	QualityScore     float64        `db:"quality_score"`
	DurationMS       int64          `db:"duration_ms"`
	OutputPath       string         `db:"output_path"`
	ErrorMessage     sql.NullString `db:"error_message"`
	CreatedAt        time.Time      `db:"created_at"`
}

// Duration returns the run duration.
func (s *RunSummary) Duration() time.Duration {
	return time.Duration(s.DurationMS) * time.Millisecond
}

// NewRunSummary summarizes a finished run. A non-nil runErr marks it failed;
// run may be nil when the pipeline failed before producing one, in which
// case the summary gets a fresh run id.
func NewRunSummary(run *domain.CollectionRun, duration time.Duration, outputPath string, runErr error) *RunSummary {
	s := &RunSummary{
		Status:         StatusSucceeded,
		CollectionDate: time.Now().UTC(),
		DurationMS:     duration.Milliseconds(),
		OutputPath:     outputPath,
	}
	if runErr != nil {
		s.Status = StatusFailed
		s.ErrorMessage = sql.NullString{String: runErr.Error(), Valid: true}
	}
	if run == nil {
		s.RunID = uuid.NewString()
		return s
	}

	m := run.Metadata
	s.RunID = run.RunID
	s.Source = run.Source
	s.Country = run.Country
	if !run.CollectionDate.IsZero() {
		s.CollectionDate = run.CollectionDate.UTC()
	}
	s.TotalItems = m.TotalItems
	s.LevelsCount = m.LevelsCount
	s.SubjectsCount = m.SubjectsCount
	s.CoursesCount = m.CoursesCount
	s.ExercisesCount = m.ExercisesCount
	s.ControlsCount = m.ControlsCount
	s.ExamsCount = m.ExamsCount
	s.CorrectionsCount = m.CorrectionsCount
	s.VisitedURLs = m.VisitedURLs
	s.FailedURLs = m.FailedURLs
	s.AttemptedURLs = m.AttemptedURLs
	s.QualityScore = m.QualityScore
	return s
}

// RunRepository handles database operations for run history.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, run_id, source, country, status, collection_date, total_items,
	levels_count, subjects_count, courses_count, exercises_count, controls_count,
	exams_count, corrections_count, visited_urls, failed_urls, attempted_urls,
	quality_score, duration_ms, output_path, error_message, created_at`

// Create inserts a run summary and fills its ID and CreatedAt.
func (r *RunRepository) Create(ctx context.Context, s *RunSummary) error {
	query := `
		INSERT INTO collection_runs (
			run_id, source, country, status, collection_date, total_items,
			levels_count, subjects_count, courses_count, exercises_count, controls_count,
			exams_count, corrections_count, visited_urls, failed_urls, attempted_urls,
			quality_score, duration_ms, output_path, error_message
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		s.RunID,
		s.Source,
		s.Country,
		s.Status,
		s.CollectionDate,
		s.TotalItems,
		s.LevelsCount,
		s.SubjectsCount,
		s.CoursesCount,
		s.ExercisesCount,
		s.ControlsCount,
		s.ExamsCount,
		s.CorrectionsCount,
		s.VisitedURLs,
		s.FailedURLs,
		s.AttemptedURLs,
		s.QualityScore,
		s.DurationMS,
		s.OutputPath,
		s.ErrorMessage,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// List returns the most recent runs, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*RunSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var runs []*RunSummary
	query := `SELECT ` + runColumns + `
		FROM collection_runs
		ORDER BY created_at DESC
		LIMIT $1`

	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	if runs == nil {
		runs = []*RunSummary{}
	}

	return runs, nil
}

// Latest returns the newest run.
func (r *RunRepository) Latest(ctx context.Context) (*RunSummary, error) {
	var run RunSummary
	query := `SELECT ` + runColumns + `
		FROM collection_runs
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, &run, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	return &run, nil
}

// Ping checks the connection.
func (r *RunRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
