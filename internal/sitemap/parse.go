// Package sitemap discovers a site's sitemaps and expands sitemap indexes
// into the flat set of page URLs they reference.
package sitemap

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"
)

// dateOnlyFormat is the date-only layout for sitemap lastmod values (e.g. "2024-01-15").
const dateOnlyFormat = "2006-01-02"

// Root element names.
const (
	rootURLSet       = "urlset"
	rootSitemapIndex = "sitemapindex"
)

// ErrUnknownRoot is returned for XML documents that are neither a urlset
// nor a sitemap index.
var ErrUnknownRoot = errors.New("unknown sitemap root element")

// Kind tells a urlset from a sitemap index.
type Kind int

// Document kinds.
const (
	KindURLSet Kind = iota + 1
	KindIndex
)

func (k Kind) String() string {
	switch k {
	case KindURLSet:
		return rootURLSet
	case KindIndex:
		return rootSitemapIndex
	default:
		return "unknown"
	}
}

// Entry is a single <loc> from either document kind.
type Entry struct {
	Loc     string     `json:"loc"`
	LastMod *time.Time `json:"lastmod,omitempty"`
}

// Document is a parsed sitemap or sitemap index.
type Document struct {
	Kind    Kind
	Entries []Entry
}

// xmlDocument matches both root elements; tags without a namespace match
// the sitemaps.org namespace as well as none.
type xmlDocument struct {
	XMLName  xml.Name
	URLs     []xmlLoc `xml:"url"`
	Sitemaps []xmlLoc `xml:"sitemap"`
}

// xmlLoc is a <url> or <sitemap> entry.
type xmlLoc struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// ParseDocument parses sitemap XML of either kind. Entries with an empty
// <loc> are skipped.
func ParseDocument(body []byte) (Document, error) {
	var raw xmlDocument
	if err := xml.Unmarshal(body, &raw); err != nil {
		return Document{}, fmt.Errorf("parse sitemap: %w", err)
	}

	switch strings.ToLower(raw.XMLName.Local) {
	case rootURLSet:
		return Document{Kind: KindURLSet, Entries: convertLocs(raw.URLs)}, nil
	case rootSitemapIndex:
		return Document{Kind: KindIndex, Entries: convertLocs(raw.Sitemaps)}, nil
	default:
		return Document{}, fmt.Errorf("%w: <%s>", ErrUnknownRoot, raw.XMLName.Local)
	}
}

func convertLocs(locs []xmlLoc) []Entry {
	entries := make([]Entry, 0, len(locs))
	for i := range locs {
		loc := strings.TrimSpace(locs[i].Loc)
		if loc == "" {
			continue
		}
		entry := Entry{Loc: loc}
		if locs[i].LastMod != "" {
			if t, err := parseLastMod(locs[i].LastMod); err == nil {
				entry.LastMod = &t
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// FilterByAge drops entries whose lastmod is older than maxAge. Entries
// without a lastmod are kept; maxAge <= 0 keeps everything.
func FilterByAge(entries []Entry, maxAge time.Duration, now time.Time) []Entry {
	if maxAge <= 0 {
		return entries
	}

	cutoff := now.Add(-maxAge)
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.LastMod == nil || !e.LastMod.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept
}

// parseLastMod tries RFC 3339 first, then the date-only format.
func parseLastMod(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)

	t, err := time.Parse(time.RFC3339, trimmed)
	if err == nil {
		return t, nil
	}

	t, dateErr := time.Parse(dateOnlyFormat, trimmed)
	if dateErr == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("parse lastmod %q: %w", trimmed, dateErr)
}
