// Package validate checks a collected dataset for missing or malformed
// records and produces a cleaned copy.
package validate

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
)

// Severity of an Issue. Errors make a record invalid; warnings do not.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Record kinds reported in Issue.Kind.
const (
	KindLevel   = "level"
	KindSubject = "subject"
	KindContent = "content"
)

// Issue is one finding about one record.
type Issue struct {
	Kind     string   `json:"kind"     yaml:"kind"`
	ID       string   `json:"id"       yaml:"id"`
	Field    string   `json:"field"    yaml:"field"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message"  yaml:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s %q: %s: %s", i.Severity, i.Kind, i.ID, i.Field, i.Message)
}

// KindReport counts the records of one kind.
type KindReport struct {
	Total    int `json:"total"    yaml:"total"`
	Valid    int `json:"valid"    yaml:"valid"`
	Invalid  int `json:"invalid"  yaml:"invalid"`
	Warnings int `json:"warnings" yaml:"warnings"`
}

// Report is the result of Validate.
type Report struct {
	Source        string     `json:"source"         yaml:"source"`
	CheckedAt     time.Time  `json:"checked_at"     yaml:"checked_at"`
	Levels        KindReport `json:"levels"         yaml:"levels"`
	Subjects      KindReport `json:"subjects"       yaml:"subjects"`
	Content       KindReport `json:"content"        yaml:"content"`
	Total         int        `json:"total"          yaml:"total"`
	Valid         int        `json:"valid"          yaml:"valid"`
	Invalid       int        `json:"invalid"        yaml:"invalid"`
	Score         float64    `json:"score"          yaml:"score"`
	MissingLevels []string   `json:"missing_levels" yaml:"missing_levels"`
	Issues        []Issue    `json:"issues"         yaml:"issues"`
}

// Errors returns the error-severity issues.
func (r *Report) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// Recommendations summarizes what to fix, most important first.
func (r *Report) Recommendations() []string {
	var recs []string
	if n := len(r.MissingLevels); n > 0 {
		recs = append(recs, fmt.Sprintf("Add %d missing official levels", n))
	}
	if r.Levels.Invalid > 0 {
		recs = append(recs, fmt.Sprintf("Fix %d invalid levels", r.Levels.Invalid))
	}
	if r.Subjects.Invalid > 0 {
		recs = append(recs, fmt.Sprintf("Fix %d invalid subjects", r.Subjects.Invalid))
	}
	if r.Content.Invalid > 0 {
		recs = append(recs, fmt.Sprintf("Fix %d invalid content items", r.Content.Invalid))
	}
	switch {
	case r.Total == 0:
		recs = append(recs, "Dataset is empty")
	case r.Score < 0.8:
		recs = append(recs, "Overall data quality needs significant improvement")
	case r.Score < 0.95:
		recs = append(recs, "Data quality is good but needs minor improvements")
	default:
		recs = append(recs, "Data quality is excellent")
	}
	return recs
}

// Validator checks records against the dataset rules.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// Validate checks every record of run. It never modifies run.
func (v *Validator) Validate(run *domain.CollectionRun) *Report {
	rep := &Report{
		Source:        run.Source,
		CheckedAt:     v.now().UTC(),
		MissingLevels: []string{},
		Issues:        []Issue{},
	}

	knownLevels := make(map[string]bool, len(run.Levels))
	for _, l := range run.Levels {
		knownLevels[l.ID] = true
	}
	levelKnown := func(id string) bool {
		return knownLevels[id] || IsOfficialLevel(id)
	}

	for _, l := range run.Levels {
		tally(&rep.Levels, rep, LevelIssues(l))
	}
	for _, s := range run.Subjects {
		tally(&rep.Subjects, rep, SubjectIssues(s, levelKnown))
	}
	for _, c := range run.Content {
		tally(&rep.Content, rep, ContentIssues(c, levelKnown))
	}

	for _, l := range officialLevels {
		if !knownLevels[l.id] {
			rep.MissingLevels = append(rep.MissingLevels, l.id)
		}
	}

	rep.Total = rep.Levels.Total + rep.Subjects.Total + rep.Content.Total
	rep.Valid = rep.Levels.Valid + rep.Subjects.Valid + rep.Content.Valid
	rep.Invalid = rep.Total - rep.Valid
	if rep.Total > 0 {
		rep.Score = float64(rep.Valid) / float64(rep.Total)
	}
	return rep
}

func tally(kr *KindReport, rep *Report, issues []Issue) {
	kr.Total++
	if hasError(issues) {
		kr.Invalid++
	} else {
		kr.Valid++
	}
	for _, i := range issues {
		if i.Severity == SeverityWarning {
			kr.Warnings++
		}
	}
	rep.Issues = append(rep.Issues, issues...)
}

func hasError(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// issueList accumulates issues for one record.
type issueList struct {
	kind, id string
	issues   []Issue
}

func (l *issueList) add(field string, sev Severity, msg string) {
	l.issues = append(l.issues, Issue{Kind: l.kind, ID: l.id, Field: field, Severity: sev, Message: msg})
}

func (l *issueList) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		l.add(field, SeverityError, "missing required field")
	}
}

func (l *issueList) arabic(field, value string) {
	switch {
	case strings.TrimSpace(value) == "":
		l.add(field, SeverityWarning, "missing Arabic text")
	case !hasArabic(value):
		l.add(field, SeverityWarning, "contains no Arabic characters")
	}
}

// LevelIssues checks one level.
func LevelIssues(l *domain.Level) []Issue {
	il := &issueList{kind: KindLevel, id: l.ID}
	il.required("id", l.ID)
	il.required("name", l.Name)
	il.arabic("name_ar", l.NameAr)
	if l.Order < 0 {
		il.add("order", SeverityError, "must not be negative")
	}
	return il.issues
}

// SubjectIssues checks one subject. levelKnown reports whether a level id
// resolves.
func SubjectIssues(s *domain.Subject, levelKnown func(string) bool) []Issue {
	il := &issueList{kind: KindSubject, id: s.ID}
	il.required("id", s.ID)
	il.required("name", s.Name)
	il.required("level_id", s.LevelID)
	il.arabic("name_ar", s.NameAr)
	if s.LevelID != "" && levelKnown != nil && !levelKnown(s.LevelID) {
		il.add("level_id", SeverityWarning, fmt.Sprintf("unknown level %q", s.LevelID))
	}
	return il.issues
}

// ContentIssues checks one content item.
func ContentIssues(c *domain.ContentItem, levelKnown func(string) bool) []Issue {
	il := &issueList{kind: KindContent, id: c.ID}
	il.required("id", c.ID)
	il.required("title", c.Title)
	il.required("content_type", string(c.ContentType))
	il.required("url", c.URL)

	if c.ContentType != "" && !c.ContentType.IsContent() {
		il.add("content_type", SeverityError, fmt.Sprintf("invalid content type %q", c.ContentType))
	}
	if c.URL != "" && !absoluteHTTP(c.URL) {
		il.add("url", SeverityError, "must be an absolute http(s) URL")
	}
	il.arabic("title_ar", c.TitleAr)
	if c.SubjectID == "" {
		il.add("subject_id", SeverityWarning, "not linked to a subject")
	}
	if c.LevelID != "" && levelKnown != nil && !levelKnown(c.LevelID) {
		il.add("level_id", SeverityWarning, fmt.Sprintf("unknown level %q", c.LevelID))
	}
	return il.issues
}

func hasArabic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Arabic, r) {
			return true
		}
	}
	return false
}

func absoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
