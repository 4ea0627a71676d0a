// Package config builds the typed application configuration from viper.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/K11E3R/moroccan-education-API/internal/collector"
	"github.com/K11E3R/moroccan-education-API/internal/fetcher"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
	"github.com/K11E3R/moroccan-education-API/internal/sitemap"
)

// Config represents the application configuration.
type Config struct {
	App           AppConfig           `mapstructure:"app"           yaml:"app"`
	Logger        logger.Config       `mapstructure:"logger"        yaml:"logger"`
	Target        TargetConfig        `mapstructure:"target"        yaml:"target"`
	Fetcher       fetcher.Config      `mapstructure:"fetcher"       yaml:"fetcher"`
	Sitemap       sitemap.Config      `mapstructure:"sitemap"       yaml:"sitemap"`
	Collector     collector.Config    `mapstructure:"collector"     yaml:"collector"`
	Server        ServerConfig        `mapstructure:"server"        yaml:"server"`
	Storage       StorageConfig       `mapstructure:"storage"       yaml:"storage"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch" yaml:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"         yaml:"redis"`
	Database      DatabaseConfig      `mapstructure:"database"      yaml:"database"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"     yaml:"scheduler"`
	Metrics       MetricsConfig       `mapstructure:"metrics"       yaml:"metrics"`
}

// AppConfig holds application identity settings.
type AppConfig struct {
	Name        string `mapstructure:"name"        yaml:"name"`
	Version     string `mapstructure:"version"     yaml:"version"`
	Environment string `mapstructure:"environment" yaml:"environment"`
	Debug       bool   `mapstructure:"debug"       yaml:"debug"`
}

// TargetConfig describes the site a collection run reads.
type TargetConfig struct {
	// BaseURL is the site root, e.g. https://moutamadris.ma.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Seeds are sitemap URLs tried before robots.txt and probing.
	Seeds   []string `mapstructure:"seeds"   yaml:"seeds"`
	Source  string   `mapstructure:"source"  yaml:"source"`
	Country string   `mapstructure:"country" yaml:"country"`
}

// SourceName returns Source, or the base URL host when unset.
func (t TargetConfig) SourceName() string {
	if t.Source != "" {
		return t.Source
	}
	u, err := url.Parse(t.BaseURL)
	if err != nil || u.Host == "" {
		return t.BaseURL
	}
	return u.Host
}

// ServerConfig holds the API server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"             yaml:"host"`
	Port            int           `mapstructure:"port"             yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"     yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"     yaml:"cors_origins"`
	DefaultLimit    int           `mapstructure:"default_limit"    yaml:"default_limit"`
	MaxLimit        int           `mapstructure:"max_limit"        yaml:"max_limit"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StorageConfig locates the dataset on disk.
type StorageConfig struct {
	// Output is where collect writes the dataset and serve reads it.
	Output string `mapstructure:"output" yaml:"output"`
	// CSV also exports per-list CSV files next to Output.
	CSV bool `mapstructure:"csv" yaml:"csv"`
}

// ElasticsearchConfig configures the optional search index sink.
type ElasticsearchConfig struct {
	Enabled     bool          `mapstructure:"enabled"      yaml:"enabled"`
	Addresses   []string      `mapstructure:"addresses"    yaml:"addresses"`
	Username    string        `mapstructure:"username"     yaml:"username"`
	Password    string        `mapstructure:"password"     yaml:"password"`
	APIKey      string        `mapstructure:"api_key"      yaml:"api_key"`
	IndexPrefix string        `mapstructure:"index_prefix" yaml:"index_prefix"`
	BulkSize    int           `mapstructure:"bulk_size"    yaml:"bulk_size"`
	Timeout     time.Duration `mapstructure:"timeout"      yaml:"timeout"`
}

// RedisConfig configures the API cache and the schedule change tracker.
type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"    yaml:"enabled"`
	Address   string        `mapstructure:"address"    yaml:"address"`
	Password  string        `mapstructure:"password"   yaml:"password"`
	DB        int           `mapstructure:"db"         yaml:"db"`
	KeyPrefix string        `mapstructure:"key_prefix" yaml:"key_prefix"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"  yaml:"cache_ttl"`
}

// DatabaseConfig configures the Postgres run history.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"           yaml:"enabled"`
	Host            string        `mapstructure:"host"              yaml:"host"`
	Port            int           `mapstructure:"port"              yaml:"port"`
	User            string        `mapstructure:"user"              yaml:"user"`
	Password        string        `mapstructure:"password"          yaml:"password"`
	DBName          string        `mapstructure:"dbname"            yaml:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"           yaml:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// DSN returns the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// SchedulerConfig drives the schedule command.
type SchedulerConfig struct {
	// Cron is a standard five-field cron expression.
	Cron string `mapstructure:"cron" yaml:"cron"`
	// MaxBackoff caps the skip interval while the dataset is unchanged.
	MaxBackoff time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
	// MetricsAddr is the host:port the schedule command serves /metrics on;
	// empty disables it.
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

// MetricsConfig controls how the one-shot collect command publishes its
// metrics.
type MetricsConfig struct {
	// PushURL is a Prometheus Pushgateway; empty disables pushing.
	PushURL string `mapstructure:"push_url" yaml:"push_url"`
	Job     string `mapstructure:"job"      yaml:"job"`
}

// Load decodes v into a Config, fills component defaults and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ViperError{Operation: "unmarshal", Err: err}
	}

	cfg.Fetcher = cfg.Fetcher.WithDefaults()
	cfg.Sitemap = cfg.Sitemap.WithDefaults()
	cfg.Collector = cfg.Collector.WithDefaults()
	cfg.Target.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Target.BaseURL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
