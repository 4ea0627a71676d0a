// Package domain holds the dataset model shared by the collector, the sinks
// and the API.
package domain

import "fmt"

// Category classifies a discovered URL.
type Category string

// URL categories, in precedence order.
const (
	CategoryLevel      Category = "level"
	CategorySubject    Category = "subject"
	CategoryCourse     Category = "course"
	CategoryExercise   Category = "exercise"
	CategoryControl    Category = "control"
	CategoryExam       Category = "exam"
	CategoryCorrection Category = "correction"
)

// Categories returns every category in categorization precedence order.
func Categories() []Category {
	return []Category{
		CategoryLevel,
		CategorySubject,
		CategoryCourse,
		CategoryExercise,
		CategoryControl,
		CategoryExam,
		CategoryCorrection,
	}
}

// ContentCategories returns the categories stored in the merged content list.
func ContentCategories() []Category {
	return []Category{
		CategoryCourse,
		CategoryExercise,
		CategoryControl,
		CategoryExam,
		CategoryCorrection,
	}
}

// IsContent reports whether records of this category are ContentItems.
func (c Category) IsContent() bool {
	switch c {
	case CategoryCourse, CategoryExercise, CategoryControl, CategoryExam, CategoryCorrection:
		return true
	default:
		return false
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryLevel || c == CategorySubject || c.IsContent()
}

// ParseCategory converts a string to a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}
