// Package api serves a collected dataset over a read-only JSON HTTP API.
package api

import (
	"fmt"
	"strings"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
	"github.com/K11E3R/moroccan-education-API/internal/storage"
)

// Search scopes accepted by Store.Search.
const (
	ScopeAll      = "all"
	ScopeLevels   = "levels"
	ScopeSubjects = "subjects"
	ScopeContent  = "content"
	// ScopeCourses is the older name of ScopeContent.
	ScopeCourses = "courses"
)

// Search languages.
const (
	LanguageFrench = "fr"
	LanguageArabic = "ar"
)

// Store is an immutable, indexed view of one dataset.
type Store struct {
	run      *domain.CollectionRun
	levels   map[string]*domain.Level
	subjects map[string]*domain.Subject
	content  map[string]*domain.ContentItem
}

// LoadStore reads the dataset at path.
func LoadStore(path string) (*Store, error) {
	run, err := storage.LoadDataset(path)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	return NewStore(run), nil
}

// NewStore indexes run. A nil run yields an empty store. The first record
// wins when ids repeat.
func NewStore(run *domain.CollectionRun) *Store {
	if run == nil {
		run = &domain.CollectionRun{
			Levels:   []*domain.Level{},
			Subjects: []*domain.Subject{},
			Content:  []*domain.ContentItem{},
		}
	}

	s := &Store{
		run:      run,
		levels:   make(map[string]*domain.Level, len(run.Levels)),
		subjects: make(map[string]*domain.Subject, len(run.Subjects)),
		content:  make(map[string]*domain.ContentItem, len(run.Content)),
	}
	for _, l := range run.Levels {
		if _, ok := s.levels[l.ID]; !ok {
			s.levels[l.ID] = l
		}
	}
	for _, sub := range run.Subjects {
		if _, ok := s.subjects[sub.ID]; !ok {
			s.subjects[sub.ID] = sub
		}
	}
	for _, c := range run.Content {
		if _, ok := s.content[c.ID]; !ok {
			s.content[c.ID] = c
		}
	}
	return s
}

// Version identifies the loaded dataset; it changes whenever the data does.
func (s *Store) Version() string {
	if s.run.RunID != "" {
		return s.run.RunID
	}
	return s.run.CollectionDate.String()
}

// Metadata returns the dataset summary.
func (s *Store) Metadata() domain.Metadata {
	return s.run.Metadata
}

// CollectionDate returns when the dataset was collected.
func (s *Store) CollectionDate() domain.Timestamp {
	return s.run.CollectionDate
}

// Source returns the site the dataset came from.
func (s *Store) Source() string {
	return s.run.Source
}

// DataLoaded reports whether the store holds any record.
func (s *Store) DataLoaded() bool {
	return len(s.run.Levels)+len(s.run.Subjects)+len(s.run.Content) > 0
}

// Levels returns every level in dataset order.
func (s *Store) Levels() []*domain.Level {
	return s.run.Levels
}

// Level returns the level with id.
func (s *Store) Level(id string) (*domain.Level, bool) {
	l, ok := s.levels[id]
	return l, ok
}

// Subjects returns the subjects, restricted to levelID when it is set.
func (s *Store) Subjects(levelID string) []*domain.Subject {
	if levelID == "" {
		return s.run.Subjects
	}
	out := []*domain.Subject{}
	for _, sub := range s.run.Subjects {
		if sub.LevelID == levelID {
			out = append(out, sub)
		}
	}
	return out
}

// Subject returns the subject with id.
func (s *Store) Subject(id string) (*domain.Subject, bool) {
	sub, ok := s.subjects[id]
	return sub, ok
}

// ContentFilter narrows Content. Empty fields match everything.
type ContentFilter struct {
	LevelID     string
	SubjectID   string
	ContentType domain.Category
}

func (f ContentFilter) match(c *domain.ContentItem) bool {
	return (f.LevelID == "" || c.LevelID == f.LevelID) &&
		(f.SubjectID == "" || c.SubjectID == f.SubjectID) &&
		(f.ContentType == "" || c.ContentType == f.ContentType)
}

// Content returns the content items matching f.
func (s *Store) Content(f ContentFilter) []*domain.ContentItem {
	if f == (ContentFilter{}) {
		return s.run.Content
	}
	out := []*domain.ContentItem{}
	for _, c := range s.run.Content {
		if f.match(c) {
			out = append(out, c)
		}
	}
	return out
}

// ContentItem returns the content item with id.
func (s *Store) ContentItem(id string) (*domain.ContentItem, bool) {
	c, ok := s.content[id]
	return c, ok
}

// SearchResults groups matches per record kind. Every list is non-nil.
type SearchResults struct {
	Levels   []*domain.Level       `json:"levels"`
	Subjects []*domain.Subject     `json:"subjects"`
	Content  []*domain.ContentItem `json:"content"`
}

// Total returns the number of matches.
func (r SearchResults) Total() int {
	return len(r.Levels) + len(r.Subjects) + len(r.Content)
}

// Search does a case-insensitive substring match of query against names
// (levels, subjects) and titles (content) in the given language. Level and
// subject ids are matched too.
func (s *Store) Search(query, scope, language string) SearchResults {
	q := strings.ToLower(strings.TrimSpace(query))
	arabic := language == LanguageArabic
	res := SearchResults{
		Levels:   []*domain.Level{},
		Subjects: []*domain.Subject{},
		Content:  []*domain.ContentItem{},
	}
	if q == "" {
		return res
	}

	contains := func(field string) bool {
		return strings.Contains(strings.ToLower(field), q)
	}
	pick := func(fr, ar string) string {
		if arabic {
			return ar
		}
		return fr
	}
	in := func(target string) bool {
		return scope == "" || scope == ScopeAll || scope == target
	}

	if in(ScopeLevels) {
		for _, l := range s.run.Levels {
			if contains(pick(l.Name, l.NameAr)) || contains(l.ID) {
				res.Levels = append(res.Levels, l)
			}
		}
	}
	if in(ScopeSubjects) {
		for _, sub := range s.run.Subjects {
			if contains(pick(sub.Name, sub.NameAr)) || contains(sub.ID) {
				res.Subjects = append(res.Subjects, sub)
			}
		}
	}
	if in(ScopeContent) || scope == ScopeCourses {
		for _, c := range s.run.Content {
			if contains(pick(c.Title, c.TitleAr)) {
				res.Content = append(res.Content, c)
			}
		}
	}
	return res
}

// validScope reports whether scope is a known search scope.
func validScope(scope string) bool {
	switch scope {
	case "", ScopeAll, ScopeLevels, ScopeSubjects, ScopeContent, ScopeCourses:
		return true
	default:
		return false
	}
}
