package validate

import "github.com/K11E3R/moroccan-education-API/internal/domain"

// officialLevel is one level of the national curriculum.
type officialLevel struct {
	id, name, nameAr, cycle string
	order                   int
}

var officialLevels = []officialLevel{
	{"primaire-1", "1ère Année Primaire", "السنة الأولى ابتدائي", "primaire", 1},
	{"primaire-2", "2ème Année Primaire", "السنة الثانية ابتدائي", "primaire", 2},
	{"primaire-3", "3ème Année Primaire", "السنة الثالثة ابتدائي", "primaire", 3},
	{"primaire-4", "4ème Année Primaire", "السنة الرابعة ابتدائي", "primaire", 4},
	{"primaire-5", "5ème Année Primaire", "السنة الخامسة ابتدائي", "primaire", 5},
	{"primaire-6", "6ème Année Primaire", "السنة السادسة ابتدائي", "primaire", 6},
	{"college-1", "1ère Année Collège", "السنة الأولى إعدادي", "college", 7},
	{"college-2", "2ème Année Collège", "السنة الثانية إعدادي", "college", 8},
	{"college-3", "3ème Année Collège", "السنة الثالثة إعدادي", "college", 9},
	{"lycee-tc", "Tronc Commun", "الجذع المشترك", "lycee", 10},
	{"lycee-1bac", "1ère Bac", "الأولى باكالوريا", "lycee", 11},
	{"lycee-2bac", "2ème Bac", "الثانية باكالوريا", "lycee", 12},
}

// cycleOrder ranks the coarse level ids produced by the collector so they
// sort next to the official levels of the same cycle.
var cycleOrder = map[string]int{
	"primaire":  1,
	"college":   7,
	"lycee":     10,
	"bac":       11,
	"superieur": 13,
}

// unrankedOrder sorts levels with no known rank last.
const unrankedOrder = 1 << 20

var officialByID = func() map[string]officialLevel {
	m := make(map[string]officialLevel, len(officialLevels))
	for _, l := range officialLevels {
		m[l.id] = l
	}
	return m
}()

// OfficialLevels returns the twelve levels of the Moroccan curriculum, from
// first year of primary school to the second baccalaureate year.
func OfficialLevels() []*domain.Level {
	out := make([]*domain.Level, 0, len(officialLevels))
	now := domain.Now()
	for _, l := range officialLevels {
		out = append(out, &domain.Level{
			ID:            l.id,
			Slug:          l.id,
			Name:          l.name,
			NameAr:        l.nameAr,
			Description:   l.name + " - enseignement " + l.cycle,
			DescriptionAr: l.nameAr,
			Order:         l.order,
			Source:        "official",
			CollectedAt:   now,
		})
	}
	return out
}

// IsOfficialLevel reports whether id names an official curriculum level.
func IsOfficialLevel(id string) bool {
	_, ok := officialByID[id]
	return ok
}

// levelRank orders a level: official order, then the cycle rank, then the
// level's own order field.
func levelRank(l *domain.Level) int {
	if o, ok := officialByID[l.ID]; ok {
		return o.order
	}
	if o, ok := cycleOrder[l.ID]; ok {
		return o
	}
	if l.Order > 0 {
		return l.Order
	}
	return unrankedOrder
}

// SeedLevels appends every official level missing from run and returns how
// many were added. Counts are refreshed.
func SeedLevels(run *domain.CollectionRun) int {
	have := make(map[string]bool, len(run.Levels))
	for _, l := range run.Levels {
		have[l.ID] = true
	}

	added := 0
	for _, l := range OfficialLevels() {
		if have[l.ID] {
			continue
		}
		run.Levels = append(run.Levels, l)
		added++
	}
	if added > 0 {
		run.Recount()
	}
	return added
}
