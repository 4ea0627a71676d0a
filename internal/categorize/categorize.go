// Package categorize partitions discovered URLs into category buckets.
package categorize

import (
	"net/url"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
	"github.com/K11E3R/moroccan-education-API/internal/lookup"
)

// DefaultPatterns returns the URL patterns per category. Level and subject
// keywords are coarse and are checked before the content-type path segments.
func DefaultPatterns() map[domain.Category][]string {
	return map[domain.Category][]string{
		domain.CategoryLevel: {"primaire", "college", "lycee", "bac", "superieur"},
		domain.CategorySubject: {
			"math", "francais", "arabe", "sciences", "histoire", "geographie",
			"anglais", "physique", "chimie", "svt", "islamique", "informatique",
		},
		domain.CategoryCourse:     {"/cours/", "/lesson/", "/lecon/"},
		domain.CategoryExercise:   {"/exercice/", "/exercise/", "/pratique/"},
		domain.CategoryControl:    {"/controle/", "/control/", "/test/"},
		domain.CategoryExam:       {"/examen/", "/exam/", "/evaluation/"},
		domain.CategoryCorrection: {"/correction/", "/solution/", "/reponse/"},
	}
}

// Categorizer assigns each URL to at most one category.
type Categorizer struct {
	table lookup.Table[domain.Category]
}

// New builds a categorizer. Categories are always consulted in
// domain.Categories() order regardless of map iteration; a category missing
// from patterns never matches.
func New(patterns map[domain.Category][]string) *Categorizer {
	var entries []lookup.Entry[domain.Category]
	for _, c := range domain.Categories() {
		entries = append(entries, lookup.Group(c, patterns[c]...)...)
	}
	return &Categorizer{table: lookup.New(entries...)}
}

// NewDefault builds a categorizer with DefaultPatterns.
func NewDefault() *Categorizer {
	return New(DefaultPatterns())
}

// Category returns the first category whose patterns match the path (and
// query) of rawURL. The host is never matched. Unparseable URLs have no
// category.
func (c *Categorizer) Category(rawURL string) (domain.Category, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	target := u.Path
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return c.table.Match(target)
}

// Categorize buckets urls. Input order is preserved inside each bucket and
// unmatched URLs are dropped. Every category has a (possibly empty) bucket.
func (c *Categorizer) Categorize(urls []string) map[domain.Category][]string {
	buckets := make(map[domain.Category][]string, len(domain.Categories()))
	for _, cat := range domain.Categories() {
		buckets[cat] = []string{}
	}

	for _, u := range urls {
		if cat, ok := c.Category(u); ok {
			buckets[cat] = append(buckets[cat], u)
		}
	}

	return buckets
}
