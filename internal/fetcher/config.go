package fetcher

import "time"

// Default configuration values.
const (
	defaultConcurrency     = 50
	defaultUserAgent       = "Mozilla/5.0 (compatible; MoroccanEduCollector/1.0)"
	defaultAcceptLanguage  = "fr-FR,fr;q=0.9,ar;q=0.8,en;q=0.7"
	defaultRequestTimeout  = 10 * time.Second
	defaultMaxRedirects    = 5
	defaultMaxBodyBytes    = 10 * 1024 * 1024 // 10 MB
	defaultIdleConnTimeout = 90 * time.Second
)

// Config holds HTTP client configuration.
type Config struct {
	Concurrency    int           `mapstructure:"concurrency"     yaml:"concurrency"`
	UserAgent      string        `mapstructure:"user_agent"      yaml:"user_agent"`
	AcceptLanguage string        `mapstructure:"accept_language" yaml:"accept_language"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxRedirects   int           `mapstructure:"max_redirects"   yaml:"max_redirects"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"  yaml:"max_body_bytes"`
}

// WithDefaults returns a copy of the config with default values applied for zero-value fields.
func (c Config) WithDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.AcceptLanguage == "" {
		c.AcceptLanguage = defaultAcceptLanguage
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = defaultMaxRedirects
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	return c
}
