package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
)

var (
	levelHeader = []string{
		"id", "slug", "name", "name_ar", "description", "description_ar",
		"order", "subjects_count", "courses_count", "url", "source", "collected_at",
	}
	subjectHeader = []string{
		"id", "slug", "name", "name_ar", "description", "description_ar",
		"level_id", "level_name", "level_name_ar", "color", "icon",
		"courses_count", "url", "source", "collected_at",
	}
	contentHeader = []string{
		"id", "slug", "title", "title_ar", "description", "description_ar", "content_type",
		"subject_id", "subject_name", "subject_name_ar", "level_id", "level_name", "level_name_ar",
		"url", "language", "confidence", "source", "collected_at",
	}
)

// CSVSink writes one CSV file per record list next to a base path:
// <base>_levels.csv, <base>_subjects.csv and <base>_content.csv. Empty
// lists produce no file.
type CSVSink struct {
	base   string
	logger logger.Interface
}

// NewCSVSink creates a sink. A ".json" or ".csv" extension on base is dropped.
func NewCSVSink(base string, log logger.Interface) *CSVSink {
	if log == nil {
		log = logger.NewNoOp()
	}
	for _, ext := range []string{".json", ".csv"} {
		base = strings.TrimSuffix(base, ext)
	}
	return &CSVSink{base: base, logger: log.WithComponent("csv_sink")}
}

// Paths returns the files Write produces for every list.
func (s *CSVSink) Paths() (levels, subjects, content string) {
	return s.base + "_levels.csv", s.base + "_subjects.csv", s.base + "_content.csv"
}

// Write exports the run's lists.
func (s *CSVSink) Write(ctx context.Context, run *domain.CollectionRun) error {
	if run == nil {
		return ErrNilRun
	}
	if s.base == "" {
		return ErrEmptyPath
	}

	levelsPath, subjectsPath, contentPath := s.Paths()

	exports := []struct {
		path string
		rows int
		fill func(w *csv.Writer) error
	}{
		{levelsPath, len(run.Levels), func(w *csv.Writer) error { return writeLevels(w, run.Levels) }},
		{subjectsPath, len(run.Subjects), func(w *csv.Writer) error { return writeSubjects(w, run.Subjects) }},
		{contentPath, len(run.Content), func(w *csv.Writer) error { return writeContent(w, run.Content) }},
	}

	for _, e := range exports {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("csv export: %w", err)
		}
		if e.rows == 0 {
			continue
		}

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := e.fill(w); err != nil {
			return fmt.Errorf("csv export %s: %w", filepath.Base(e.path), err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("csv export %s: %w", filepath.Base(e.path), err)
		}

		if err := writeFileAtomic(e.path, buf.Bytes()); err != nil {
			return err
		}
		s.logger.Info("CSV written", "path", e.path, "rows", e.rows)
	}
	return nil
}

func writeLevels(w *csv.Writer, levels []*domain.Level) error {
	if err := w.Write(levelHeader); err != nil {
		return err
	}
	for _, l := range levels {
		row := []string{
			l.ID, l.Slug, l.Name, l.NameAr, l.Description, l.DescriptionAr,
			strconv.Itoa(l.Order), strconv.Itoa(l.SubjectsCount), strconv.Itoa(l.CoursesCount),
			l.URL, l.Source, l.CollectedAt.String(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeSubjects(w *csv.Writer, subjects []*domain.Subject) error {
	if err := w.Write(subjectHeader); err != nil {
		return err
	}
	for _, s := range subjects {
		row := []string{
			s.ID, s.Slug, s.Name, s.NameAr, s.Description, s.DescriptionAr,
			s.LevelID, s.LevelName, s.LevelNameAr, s.Color, s.Icon,
			strconv.Itoa(s.CoursesCount), s.URL, s.Source, s.CollectedAt.String(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeContent(w *csv.Writer, items []*domain.ContentItem) error {
	if err := w.Write(contentHeader); err != nil {
		return err
	}
	for _, c := range items {
		row := []string{
			c.ID, c.Slug, c.Title, c.TitleAr, c.Description, c.DescriptionAr, string(c.ContentType),
			c.SubjectID, c.SubjectName, c.SubjectNameAr, c.LevelID, c.LevelName, c.LevelNameAr,
			c.URL, c.Language, strconv.FormatFloat(c.Confidence, 'f', -1, 64), c.Source, c.CollectedAt.String(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
