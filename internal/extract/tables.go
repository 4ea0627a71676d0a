package extract

import "github.com/K11E3R/moroccan-education-API/internal/lookup"

const (
	unknownID   = "unknown"
	unknownName = "Unknown"

	defaultSubjectColor = "#6b7280"
	defaultSubjectIcon  = "Book"
)

// levelInfo describes one of the broad level families.
type levelInfo struct {
	ID            string
	Name          string
	NameAr        string
	DescriptionAr string
}

// subjectInfo describes a subject and its display attributes.
type subjectInfo struct {
	ID     string
	Name   string
	NameAr string
	Color  string
	Icon   string
}

var (
	levelPrimaire = levelInfo{
		ID: "primaire", Name: "Primaire", NameAr: "الابتدائي",
		DescriptionAr: "التعليم الابتدائي المغربي",
	}
	levelCollege = levelInfo{
		ID: "college", Name: "Collège", NameAr: "الإعدادي",
		DescriptionAr: "التعليم الإعدادي المغربي",
	}
	levelLycee = levelInfo{
		ID: "lycee", Name: "Lycée", NameAr: "الثانوي",
		DescriptionAr: "التعليم الثانوي المغربي",
	}
	levelBac = levelInfo{
		ID: "bac", Name: "Baccalauréat", NameAr: "البكالوريا",
		DescriptionAr: "التحضير للبكالوريا المغربية",
	}
	levelSuperieur = levelInfo{
		ID: "superieur", Name: "Supérieur", NameAr: "العالي",
		DescriptionAr: "التعليم العالي المغربي",
	}
	levelUnknown = levelInfo{
		ID: unknownID, Name: unknownName, NameAr: unknownName,
		DescriptionAr: "التعليم " + unknownName + " المغربي",
	}
)

var subjectUnknown = subjectInfo{
	ID: unknownID, Name: unknownName, NameAr: unknownName,
	Color: defaultSubjectColor, Icon: defaultSubjectIcon,
}

var (
	subjectMath = subjectInfo{
		ID: "math", Name: "Mathématiques", NameAr: "الرياضيات", Color: "#3b82f6", Icon: "Calculator",
	}
	subjectFrancais = subjectInfo{
		ID: "francais", Name: "Français", NameAr: "الفرنسية", Color: "#ef4444", Icon: "BookOpen",
	}
	subjectArabe = subjectInfo{
		ID: "arabe", Name: "Arabe", NameAr: "العربية", Color: "#10b981", Icon: "Book",
	}
	subjectSciences = subjectInfo{
		ID: "sciences", Name: "Sciences", NameAr: "العلوم", Color: "#f59e0b", Icon: "Microscope",
	}
	subjectHistoire = subjectInfo{
		ID: "histoire", Name: "Histoire", NameAr: "التاريخ", Color: "#8b5cf6", Icon: "Clock",
	}
	subjectGeographie = subjectInfo{
		ID: "geographie", Name: "Géographie", NameAr: "الجغرافيا", Color: "#06b6d4", Icon: "Globe",
	}
	subjectAnglais = subjectInfo{
		ID: "anglais", Name: "Anglais", NameAr: "الإنجليزية", Color: "#8b5cf6", Icon: "Globe",
	}
	subjectPhysique = subjectInfo{
		ID: "physique", Name: "Physique", NameAr: "الفيزياء", Color: "#f59e0b", Icon: "Atom",
	}
	subjectChimie = subjectInfo{
		ID: "chimie", Name: "Chimie", NameAr: "الكيمياء", Color: "#10b981", Icon: "FlaskConical",
	}
	subjectSVT = subjectInfo{
		ID: "svt", Name: "SVT", NameAr: "علوم الحياة والأرض", Color: "#059669", Icon: "Leaf",
	}
	subjectIslamique = subjectInfo{
		ID: "islamique", Name: "Éducation Islamique", NameAr: "التربية الإسلامية", Color: "#059669", Icon: "BookOpen",
	}
	subjectInformatique = subjectInfo{
		ID: "informatique", Name: "Informatique", NameAr: "المعلوماتية", Color: "#6366f1", Icon: "Monitor",
	}
)

// levelsByText resolves a level from a page title plus URL.
var levelsByText = lookup.New(lookup.Concat(
	lookup.Group(levelPrimaire, "primaire", "primary"),
	lookup.Group(levelCollege, "college", "middle"),
	lookup.Group(levelLycee, "lycee", "lycée", "high"),
	lookup.Group(levelBac, "bac", "baccalaureat"),
	lookup.Group(levelSuperieur, "superieur", "superior", "university"),
)...)

// levelsByURL resolves the level a page belongs to from its URL alone.
var levelsByURL = lookup.New(lookup.Concat(
	lookup.Group(levelPrimaire, "primaire", "primary"),
	lookup.Group(levelCollege, "college", "middle"),
	lookup.Group(levelLycee, "lycee", "lycée", "high"),
	lookup.Group(levelBac, "bac"),
	lookup.Group(levelSuperieur, "superieur", "superior"),
)...).WithFallback(levelUnknown)

// subjectsByText resolves a subject from a title, a URL or both.
var subjectsByText = lookup.New(lookup.Concat(
	lookup.Group(subjectMath, "math", "mathematiques"),
	lookup.Group(subjectFrancais, "francais", "français"),
	lookup.Group(subjectArabe, "arabe"),
	lookup.Group(subjectSciences, "sciences"),
	lookup.Group(subjectHistoire, "histoire"),
	lookup.Group(subjectGeographie, "geographie"),
	lookup.Group(subjectAnglais, "anglais"),
	lookup.Group(subjectPhysique, "physique"),
	lookup.Group(subjectChimie, "chimie"),
	lookup.Group(subjectSVT, "svt"),
	lookup.Group(subjectIslamique, "islamique"),
	lookup.Group(subjectInformatique, "informatique"),
)...).WithFallback(subjectUnknown)
