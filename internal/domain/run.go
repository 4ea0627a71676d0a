package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Languages every dataset is published in.
var datasetLanguages = []string{"fr", "ar"}

// Metadata summarizes a finalized CollectionRun.
type Metadata struct {
	TotalItems         int      `json:"total_items"`
	LevelsCount        int      `json:"levels_count"`
	SubjectsCount      int      `json:"subjects_count"`
	CoursesCount       int      `json:"courses_count"`
	ExercisesCount     int      `json:"exercises_count"`
	ControlsCount      int      `json:"controls_count"`
	ExamsCount         int      `json:"exams_count"`
	CorrectionsCount   int      `json:"corrections_count"`
	Languages          []string `json:"languages"`
	QualityScore       float64  `json:"quality_score"`
	VisitedURLs        int      `json:"visited_urls"`
	FailedURLs         int      `json:"failed_urls"`
	AttemptedURLs      int      `json:"attempted_urls"`
	CollectionDuration string   `json:"collection_duration,omitempty"`
}

// CountFor returns the record count stored for a category.
func (m Metadata) CountFor(c Category) int {
	switch c {
	case CategoryLevel:
		return m.LevelsCount
	case CategorySubject:
		return m.SubjectsCount
	case CategoryCourse:
		return m.CoursesCount
	case CategoryExercise:
		return m.ExercisesCount
	case CategoryControl:
		return m.ControlsCount
	case CategoryExam:
		return m.ExamsCount
	case CategoryCorrection:
		return m.CorrectionsCount
	default:
		return 0
	}
}

// FetchStats are the URL set sizes reported by the fetch engine.
type FetchStats struct {
	Attempted int
	Visited   int
	Failed    int
}

// QualityScore is the visited/attempted ratio clamped to [0,1].
// A run that attempted nothing scores 0.
func (s FetchStats) QualityScore() float64 {
	if s.Attempted <= 0 {
		return 0
	}
	score := float64(s.Visited) / float64(s.Attempted)
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

// CollectionRun is the aggregate produced by one pipeline execution.
// Appends are safe for concurrent use; Finalize must run after every writer
// has returned.
type CollectionRun struct {
	RunID          string         `json:"run_id"`
	Source         string         `json:"source"`
	Country        string         `json:"country"`
	CollectionDate Timestamp      `json:"collection_date"`
	Levels         []*Level       `json:"levels"`
	Subjects       []*Subject     `json:"subjects"`
	Content        []*ContentItem `json:"content"`
	Metadata       Metadata       `json:"metadata"`

	mu        sync.Mutex
	finalized bool
}

// NewCollectionRun starts an empty run stamped with the current time.
func NewCollectionRun(source, country string) *CollectionRun {
	return &CollectionRun{
		RunID:          uuid.NewString(),
		Source:         source,
		Country:        country,
		CollectionDate: Now(),
		Levels:         []*Level{},
		Subjects:       []*Subject{},
		Content:        []*ContentItem{},
	}
}

// Append adds a record to the list matching its type.
func (r *CollectionRun) Append(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return ErrRunFinalized
	}

	switch v := rec.(type) {
	case *Level:
		r.Levels = append(r.Levels, v)
	case *Subject:
		r.Subjects = append(r.Subjects, v)
	case *ContentItem:
		if !v.ContentType.IsContent() {
			return fmt.Errorf("%w: content type %q", ErrUnknownCategory, v.ContentType)
		}
		r.Content = append(r.Content, v)
	default:
		return fmt.Errorf("unsupported record type %T", rec)
	}
	return nil
}

// Finalize computes metadata from the record lists and the fetch stats.
// Only the first call has an effect.
func (r *CollectionRun) Finalize(stats FetchStats, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return
	}
	r.finalized = true

	r.recountLocked()
	r.Metadata.VisitedURLs = stats.Visited
	r.Metadata.FailedURLs = stats.Failed
	r.Metadata.AttemptedURLs = stats.Attempted
	r.Metadata.QualityScore = stats.QualityScore()
	if duration > 0 {
		r.Metadata.CollectionDuration = duration.Round(time.Millisecond).String()
	}
}

// Finalized reports whether Finalize has run.
func (r *CollectionRun) Finalized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalized
}

// Recount refreshes the per-category counts, leaving fetch stats untouched.
// Used after records are cleaned or merged.
func (r *CollectionRun) Recount() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recountLocked()
}

func (r *CollectionRun) recountLocked() {
	m := &r.Metadata
	m.LevelsCount = len(r.Levels)
	m.SubjectsCount = len(r.Subjects)
	m.CoursesCount, m.ExercisesCount, m.ControlsCount, m.ExamsCount, m.CorrectionsCount = 0, 0, 0, 0, 0
	for _, item := range r.Content {
		switch item.ContentType {
		case CategoryCourse:
			m.CoursesCount++
		case CategoryExercise:
			m.ExercisesCount++
		case CategoryControl:
			m.ControlsCount++
		case CategoryExam:
			m.ExamsCount++
		case CategoryCorrection:
			m.CorrectionsCount++
		}
	}
	m.TotalItems = m.LevelsCount + m.SubjectsCount + len(r.Content)
	m.Languages = append([]string(nil), datasetLanguages...)
}

// ContentOfType returns the content items with the given content type.
func (r *CollectionRun) ContentOfType(c Category) []*ContentItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []*ContentItem
	for _, item := range r.Content {
		if item.ContentType == c {
			items = append(items, item)
		}
	}
	return items
}
