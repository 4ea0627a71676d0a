package collector

import (
	"time"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
)

// Default engine settings.
const (
	defaultConcurrency    = 50
	defaultBatchDelay     = 100 * time.Millisecond
	defaultRequestTimeout = 10 * time.Second
)

// DefaultCaps returns the per-category URL limits applied before fetching.
func DefaultCaps() map[domain.Category]int {
	return map[domain.Category]int{
		domain.CategoryLevel:      20,
		domain.CategorySubject:    50,
		domain.CategoryCourse:     100,
		domain.CategoryExercise:   100,
		domain.CategoryControl:    50,
		domain.CategoryExam:       50,
		domain.CategoryCorrection: 50,
	}
}

// Config controls batching and limits of the fetch-extract engine.
type Config struct {
	// Concurrency is both the batch size and the number of in-flight requests.
	Concurrency int `mapstructure:"concurrency"     yaml:"concurrency"`
	// BatchDelay is the pause between batches; negative disables it.
	BatchDelay     time.Duration           `mapstructure:"batch_delay"     yaml:"batch_delay"`
	RequestTimeout time.Duration           `mapstructure:"request_timeout" yaml:"request_timeout"`
	Caps           map[domain.Category]int `mapstructure:"caps"            yaml:"caps"`
	RespectRobots  bool                    `mapstructure:"respect_robots"  yaml:"respect_robots"`
}

// WithDefaults returns a copy with zero values replaced. Categories missing
// from Caps get their default cap.
func (c Config) WithDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.BatchDelay == 0 {
		c.BatchDelay = defaultBatchDelay
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}

	caps := DefaultCaps()
	for cat, limit := range c.Caps {
		if limit > 0 {
			caps[cat] = limit
		}
	}
	c.Caps = caps
	return c
}

// CapFor returns the URL limit for a category; zero for unknown categories.
func (c Config) CapFor(cat domain.Category) int {
	return c.Caps[cat]
}
