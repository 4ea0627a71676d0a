package config

import (
	"net"
	"net/url"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/K11E3R/moroccan-education-API/internal/logger"
)

const maxPort = 65535

var environments = []string{"development", "staging", "production", "test"}

// Validate checks the settings every command relies on. Optional sinks are
// only checked when enabled.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateApp,
		c.validateLogger,
		c.validateTarget,
		c.validateServer,
		c.validateStorage,
		c.validateElasticsearch,
		c.validateRedis,
		c.validateDatabase,
		c.validateScheduler,
		c.validateMetrics,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// RequireTarget reports ErrMissingBaseURL when no base URL is configured.
func (c *Config) RequireTarget() error {
	if c.Target.BaseURL == "" {
		return ErrMissingBaseURL
	}
	return nil
}

func (c *Config) validateApp() error {
	if c.App.Environment != "" && !slices.Contains(environments, c.App.Environment) {
		return &ValidationError{Field: "app.environment", Value: c.App.Environment, Reason: "unknown environment"}
	}
	return nil
}

func (c *Config) validateLogger() error {
	switch logger.Level(strings.ToLower(string(c.Logger.Level))) {
	case "", logger.DebugLevel, logger.InfoLevel, logger.WarnLevel, logger.ErrorLevel, logger.FatalLevel:
	default:
		return &ValidationError{Field: "logger.level", Value: c.Logger.Level, Reason: "unknown level"}
	}
	switch c.Logger.Encoding {
	case "", logger.EncodingConsole, logger.EncodingJSON:
	default:
		return &ValidationError{Field: "logger.encoding", Value: c.Logger.Encoding, Reason: "must be console or json"}
	}
	return nil
}

func (c *Config) validateTarget() error {
	if c.Target.BaseURL == "" {
		return nil
	}
	u, err := url.Parse(c.Target.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "target.base_url", Value: c.Target.BaseURL, Reason: "must be an absolute http(s) URL"}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > maxPort {
		return &ValidationError{Field: "server.port", Value: c.Server.Port, Reason: "must be between 1 and 65535"}
	}
	if c.Server.MaxLimit > 0 && c.Server.DefaultLimit > c.Server.MaxLimit {
		return &ValidationError{Field: "server.default_limit", Value: c.Server.DefaultLimit, Reason: "exceeds server.max_limit"}
	}
	return nil
}

func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.Storage.Output) == "" {
		return &ValidationError{Field: "storage.output", Value: c.Storage.Output, Reason: "must not be empty"}
	}
	return nil
}

func (c *Config) validateElasticsearch() error {
	if !c.Elasticsearch.Enabled {
		return nil
	}
	if len(c.Elasticsearch.Addresses) == 0 {
		return &ValidationError{Field: "elasticsearch.addresses", Value: c.Elasticsearch.Addresses, Reason: "required when enabled"}
	}
	if c.Elasticsearch.IndexPrefix == "" {
		return &ValidationError{Field: "elasticsearch.index_prefix", Value: "", Reason: "required when enabled"}
	}
	return nil
}

func (c *Config) validateRedis() error {
	if c.Redis.Enabled && c.Redis.Address == "" {
		return &ValidationError{Field: "redis.address", Value: "", Reason: "required when enabled"}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if !c.Database.Enabled {
		return nil
	}
	if c.Database.Host == "" {
		return &ValidationError{Field: "database.host", Value: "", Reason: "required when enabled"}
	}
	if c.Database.DBName == "" {
		return &ValidationError{Field: "database.dbname", Value: "", Reason: "required when enabled"}
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.Cron != "" {
		if _, err := cron.ParseStandard(c.Scheduler.Cron); err != nil {
			return &ValidationError{Field: "scheduler.cron", Value: c.Scheduler.Cron, Reason: err.Error()}
		}
	}
	if c.Scheduler.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.Scheduler.MetricsAddr); err != nil {
			return &ValidationError{Field: "scheduler.metrics_addr", Value: c.Scheduler.MetricsAddr, Reason: "must be host:port"}
		}
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.PushURL == "" {
		return nil
	}
	u, err := url.Parse(c.Metrics.PushURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "metrics.push_url", Value: c.Metrics.PushURL, Reason: "must be an absolute http(s) URL"}
	}
	if c.Metrics.Job == "" {
		return &ValidationError{Field: "metrics.job", Value: "", Reason: "required when push_url is set"}
	}
	return nil
}
