// Package extract turns fetched HTML pages into typed dataset records.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
)

// defaultConfidence is the confidence assigned to heuristically extracted content.
const defaultConfidence = 0.8

const defaultLanguage = "fr"

var (
	// ErrNoExtractor is returned when no extractor is registered for a category.
	ErrNoExtractor = errors.New("no extractor for category")
	// ErrExtractorPanic wraps a recovered extractor panic.
	ErrExtractorPanic = errors.New("extractor panicked")
)

var (
	subjectLinkPattern = regexp.MustCompile(`subject|matiere`)
	courseLinkPattern  = regexp.MustCompile(`cours|lesson`)
)

// Extractor maps a parsed page to a record. The bool is false when no
// record can be confidently produced.
type Extractor interface {
	Extract(doc *goquery.Document, pageURL string, category domain.Category) (domain.Record, bool)
}

// Func adapts a function to Extractor.
type Func func(doc *goquery.Document, pageURL string, category domain.Category) (domain.Record, bool)

// Extract implements Extractor.
func (f Func) Extract(doc *goquery.Document, pageURL string, category domain.Category) (domain.Record, bool) {
	return f(doc, pageURL, category)
}

// ParseHTML parses an HTML body.
func ParseHTML(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Set maps each category to its extractor.
type Set struct {
	byCategory map[domain.Category]Extractor
}

// NewSet returns the default extractors for every category, stamping
// records with source.
func NewSet(source string) *Set {
	return NewSetWithClock(source, time.Now)
}

// NewSetWithClock is NewSet with an injectable clock.
func NewSetWithClock(source string, now func() time.Time) *Set {
	b := Builder{Source: source, Now: now}
	s := &Set{byCategory: make(map[domain.Category]Extractor)}
	s.Register(domain.CategoryLevel, Func(b.Level))
	s.Register(domain.CategorySubject, Func(b.Subject))
	for _, c := range domain.ContentCategories() {
		s.Register(c, Func(b.Content))
	}
	return s
}

// Register sets (or replaces) the extractor for a category.
func (s *Set) Register(c domain.Category, e Extractor) {
	s.byCategory[c] = e
}

// For returns the extractor registered for c.
func (s *Set) For(c domain.Category) (Extractor, bool) {
	e, ok := s.byCategory[c]
	return e, ok
}

// Extract runs the category's extractor and recovers from any panic, which
// is reported as an error alongside "no record".
func (s *Set) Extract(doc *goquery.Document, pageURL string, c domain.Category) (rec domain.Record, ok bool, err error) {
	e, found := s.For(c)
	if !found {
		return nil, false, fmt.Errorf("%w: %s", ErrNoExtractor, c)
	}

	defer func() {
		if r := recover(); r != nil {
			rec, ok = nil, false
			err = fmt.Errorf("%w: %s: %v", ErrExtractorPanic, pageURL, r)
		}
	}()

	rec, ok = e.Extract(doc, pageURL, c)
	if ok && rec == nil {
		return nil, false, nil
	}
	return rec, ok, nil
}

// Builder holds what the default extractors stamp on every record.
type Builder struct {
	Source string
	Now    func() time.Time
}

func (b Builder) collectedAt() domain.Timestamp {
	if b.Now == nil {
		return domain.Now()
	}
	return domain.NewTimestamp(b.Now())
}

// Level extracts a level page. Pages whose title and URL name no known
// level produce no record.
func (b Builder) Level(doc *goquery.Document, pageURL string, _ domain.Category) (domain.Record, bool) {
	title := pageTitle(doc)
	info, ok := levelsByText.Match(title + " " + pageURL)
	if !ok {
		return nil, false
	}

	slug := Slugify(info.Name)
	description := metaDescription(doc)
	if description == "" {
		description = "Cours de " + info.Name
	}

	return &domain.Level{
		ID:            slug,
		Slug:          slug,
		Name:          info.Name,
		NameAr:        info.NameAr,
		Description:   description,
		DescriptionAr: info.DescriptionAr,
		SubjectsCount: countLinks(doc, subjectLinkPattern),
		CoursesCount:  countLinks(doc, courseLinkPattern),
		URL:           pageURL,
		Source:        b.Source,
		CollectedAt:   b.collectedAt(),
	}, true
}

// Subject extracts a subject page, attaching it to the level named in its URL.
func (b Builder) Subject(doc *goquery.Document, pageURL string, _ domain.Category) (domain.Record, bool) {
	title := pageTitle(doc)
	info, ok := subjectsByText.Match(title + " " + pageURL)
	if !ok {
		return nil, false
	}

	level := levelsByURL.Find(pageURL)
	slug := Slugify(info.Name + "-" + level.ID)

	return &domain.Subject{
		ID:            slug,
		Slug:          slug,
		Name:          info.Name,
		NameAr:        info.NameAr,
		Description:   "Cours de " + strings.ToLower(info.Name),
		DescriptionAr: "دروس " + info.NameAr,
		LevelID:       level.ID,
		LevelName:     level.Name,
		LevelNameAr:   level.NameAr,
		Color:         info.Color,
		Icon:          info.Icon,
		CoursesCount:  countLinks(doc, courseLinkPattern),
		URL:           pageURL,
		Source:        b.Source,
		CollectedAt:   b.collectedAt(),
	}, true
}

// Content extracts a course, exercise, control, exam or correction page.
// A page without a title produces no record.
func (b Builder) Content(doc *goquery.Document, pageURL string, category domain.Category) (domain.Record, bool) {
	if !category.IsContent() {
		return nil, false
	}

	title := pageTitle(doc)
	if title == "" {
		return nil, false
	}

	subject := subjectsByText.Find(pageURL)
	level := levelsByURL.Find(pageURL)
	description := metaDescription(doc)

	return &domain.ContentItem{
		ID:            Slugify(string(category) + "-" + title),
		Slug:          Slugify(title),
		Title:         title,
		TitleAr:       title,
		Description:   description,
		DescriptionAr: description,
		ContentType:   category,
		SubjectID:     subject.ID,
		SubjectName:   subject.Name,
		SubjectNameAr: subject.NameAr,
		LevelID:       level.ID,
		LevelName:     level.Name,
		LevelNameAr:   level.NameAr,
		URL:           pageURL,
		Language:      defaultLanguage,
		Confidence:    defaultConfidence,
		Source:        b.Source,
		CollectedAt:   b.collectedAt(),
	}, true
}

// pageTitle returns the <title> text with whitespace collapsed, falling
// back to the first <h1>.
func pageTitle(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	if title := collapse(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return collapse(doc.Find("h1").First().Text())
}

func metaDescription(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	content, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

func countLinks(doc *goquery.Document, pattern *regexp.Regexp) int {
	if doc == nil {
		return 0
	}
	return doc.Find("a[href]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		return pattern.MatchString(href)
	}).Length()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
