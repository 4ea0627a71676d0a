package validate

import (
	"cmp"
	"slices"
	"strings"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
)

// Clean returns a copy of run with whitespace trimmed, invalid records
// dropped, duplicate ids removed (first wins) and lists sorted: levels by
// curriculum order then id, subjects and content by id. Counts are
// recomputed; fetch stats and the quality score are kept.
func Clean(run *domain.CollectionRun) *domain.CollectionRun {
	out := &domain.CollectionRun{
		RunID:          run.RunID,
		Source:         run.Source,
		Country:        run.Country,
		CollectionDate: run.CollectionDate,
		Levels:         []*domain.Level{},
		Subjects:       []*domain.Subject{},
		Content:        []*domain.ContentItem{},
		Metadata:       run.Metadata,
	}

	seen := map[string]bool{}
	for _, src := range run.Levels {
		l := *src
		trimLevel(&l)
		if hasError(LevelIssues(&l)) || seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		out.Levels = append(out.Levels, &l)
	}

	seen = map[string]bool{}
	for _, src := range run.Subjects {
		s := *src
		trimSubject(&s)
		if hasError(SubjectIssues(&s, nil)) || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out.Subjects = append(out.Subjects, &s)
	}

	seen = map[string]bool{}
	for _, src := range run.Content {
		c := *src
		trimContent(&c)
		if hasError(ContentIssues(&c, nil)) || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out.Content = append(out.Content, &c)
	}

	slices.SortStableFunc(out.Levels, func(a, b *domain.Level) int {
		return cmp.Or(cmp.Compare(levelRank(a), levelRank(b)), strings.Compare(a.ID, b.ID))
	})
	slices.SortStableFunc(out.Subjects, func(a, b *domain.Subject) int {
		return strings.Compare(a.ID, b.ID)
	})
	slices.SortStableFunc(out.Content, func(a, b *domain.ContentItem) int {
		return strings.Compare(a.ID, b.ID)
	})

	out.Recount()
	return out
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.Join(strings.Fields(*f), " ")
	}
}

func trimLevel(l *domain.Level) {
	trim(&l.ID, &l.Slug, &l.Name, &l.NameAr, &l.Description, &l.DescriptionAr, &l.URL, &l.Source)
}

func trimSubject(s *domain.Subject) {
	trim(&s.ID, &s.Slug, &s.Name, &s.NameAr, &s.Description, &s.DescriptionAr,
		&s.LevelID, &s.LevelName, &s.LevelNameAr, &s.URL, &s.Source)
}

func trimContent(c *domain.ContentItem) {
	trim(&c.ID, &c.Slug, &c.Title, &c.TitleAr, &c.Description, &c.DescriptionAr,
		&c.SubjectID, &c.SubjectName, &c.SubjectNameAr, &c.LevelID, &c.LevelName, &c.LevelNameAr,
		&c.URL, &c.Language, &c.Source)
}
