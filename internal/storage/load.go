package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
)

// ErrDatasetNotFound is returned when the dataset file does not exist.
var ErrDatasetNotFound = errors.New("dataset not found")

// datasetFile is the on-disk shape. Older datasets kept content in one list
// per type; those lists are folded into Content on load.
type datasetFile struct {
	RunID          string                `json:"run_id"`
	Source         string                `json:"source"`
	Country        string                `json:"country"`
	CollectionDate domain.Timestamp      `json:"collection_date"`
	Levels         []*domain.Level       `json:"levels"`
	Subjects       []*domain.Subject     `json:"subjects"`
	Content        []*domain.ContentItem `json:"content"`
	Courses        []*domain.ContentItem `json:"courses"`
	Exercises      []*domain.ContentItem `json:"exercises"`
	Controls       []*domain.ContentItem `json:"controls"`
	Exams          []*domain.ContentItem `json:"exams"`
	Corrections    []*domain.ContentItem `json:"corrections"`
	Metadata       *domain.Metadata      `json:"metadata"`
}

// LoadDataset reads a dataset written by JSONSink or by an older collector.
func LoadDataset(path string) (*domain.CollectionRun, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
		}
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return DecodeDataset(f)
}

// DecodeDataset decodes a dataset document from r.
func DecodeDataset(r io.Reader) (*domain.CollectionRun, error) {
	var file datasetFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	run := &domain.CollectionRun{
		RunID:          file.RunID,
		Source:         file.Source,
		Country:        file.Country,
		CollectionDate: file.CollectionDate,
		Levels:         nonNil(file.Levels),
		Subjects:       nonNil(file.Subjects),
		Content:        nonNil(file.Content),
	}

	legacy := []struct {
		items []*domain.ContentItem
		kind  domain.Category
	}{
		{file.Courses, domain.CategoryCourse},
		{file.Exercises, domain.CategoryExercise},
		{file.Controls, domain.CategoryControl},
		{file.Exams, domain.CategoryExam},
		{file.Corrections, domain.CategoryCorrection},
	}
	for _, l := range legacy {
		for _, item := range l.items {
			if item == nil {
				continue
			}
			if !item.ContentType.IsContent() {
				item.ContentType = l.kind
			}
			run.Content = append(run.Content, item)
		}
	}

	run.Levels = dropNil(run.Levels)
	run.Subjects = dropNil(run.Subjects)
	run.Content = dropNil(run.Content)

	if file.Metadata != nil {
		run.Metadata = *file.Metadata
	}
	// Counts always reflect the loaded lists; fetch stats come from the file.
	run.Recount()
	return run, nil
}

func nonNil[T any](items []*T) []*T {
	if items == nil {
		return []*T{}
	}
	return items
}

func dropNil[T any](items []*T) []*T {
	kept := items[:0]
	for _, item := range items {
		if item != nil {
			kept = append(kept, item)
		}
	}
	return kept
}
