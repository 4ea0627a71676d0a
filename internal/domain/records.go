package domain

// Record is any typed value produced by an extractor.
type Record interface {
	RecordID() string
	RecordCategory() Category
}

// Level is an education level (Primaire, Collège, ...).
type Level struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	NameAr        string    `json:"name_ar"`
	Description   string    `json:"description"`
	DescriptionAr string    `json:"description_ar"`
	Order         int       `json:"order,omitempty"`
	SubjectsCount int       `json:"subjects_count"`
	CoursesCount  int       `json:"courses_count"`
	URL           string    `json:"url,omitempty"`
	Source        string    `json:"source"`
	CollectedAt   Timestamp `json:"collected_at"`
}

// RecordID implements Record.
func (l *Level) RecordID() string { return l.ID }

// RecordCategory implements Record.
func (l *Level) RecordCategory() Category { return CategoryLevel }

// Subject is a subject taught at a level.
type Subject struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	NameAr        string    `json:"name_ar"`
	Description   string    `json:"description"`
	DescriptionAr string    `json:"description_ar"`
	LevelID       string    `json:"level_id"`
	LevelName     string    `json:"level_name"`
	LevelNameAr   string    `json:"level_name_ar"`
	Color         string    `json:"color"`
	Icon          string    `json:"icon"`
	CoursesCount  int       `json:"courses_count"`
	URL           string    `json:"url"`
	Source        string    `json:"source"`
	CollectedAt   Timestamp `json:"collected_at"`
}

// RecordID implements Record.
func (s *Subject) RecordID() string { return s.ID }

// RecordCategory implements Record.
func (s *Subject) RecordCategory() Category { return CategorySubject }

// ContentItem is a course, exercise, control, exam or correction page.
type ContentItem struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Title         string    `json:"title"`
	TitleAr       string    `json:"title_ar"`
	Description   string    `json:"description"`
	DescriptionAr string    `json:"description_ar"`
	ContentType   Category  `json:"content_type"`
	SubjectID     string    `json:"subject_id"`
	SubjectName   string    `json:"subject_name"`
	SubjectNameAr string    `json:"subject_name_ar"`
	LevelID       string    `json:"level_id"`
	LevelName     string    `json:"level_name"`
	LevelNameAr   string    `json:"level_name_ar"`
	URL           string    `json:"url"`
	Language      string    `json:"language"`
	Confidence    float64   `json:"confidence"`
	Source        string    `json:"source"`
	CollectedAt   Timestamp `json:"collected_at"`
}

// RecordID implements Record.
func (c *ContentItem) RecordID() string { return c.ID }

// RecordCategory implements Record.
func (c *ContentItem) RecordCategory() Category { return c.ContentType }
