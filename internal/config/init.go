package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults shared with the CLI flags.
const (
	DefaultOutput  = "data/collected_data.json"
	DefaultPort    = 8000
	DefaultCron    = "0 3 * * *"
	DefaultCountry = "Morocco"

	DefaultMetricsAddr = ":9102"
)

// InitViper prepares v: it loads .env, applies defaults, reads the config
// file (explicit path or ./config.yaml) and binds environment variables.
// A missing implicit config file is not an error.
func InitViper(v *viper.Viper, configFile string) error {
	_ = godotenv.Load()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return &ViperError{Operation: "read config", Err: err}
		}
	}

	if err := bindEnvironmentVariables(v); err != nil {
		return fmt.Errorf("failed to bind environment variables: %w", err)
	}

	setupDevelopmentLogging(v)
	return nil
}

// SetDefaults sets default configuration values.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app", map[string]any{
		"name":        "moroccan-education-api",
		"version":     "1.0.0",
		"environment": "production",
		"debug":       false,
	})

	v.SetDefault("logger", map[string]any{
		"level":        "info",
		"development":  false,
		"encoding":     "json",
		"output_paths": []string{"stdout"},
	})

	v.SetDefault("target", map[string]any{
		"base_url": "",
		"seeds":    []string{},
		"source":   "",
		"country":  DefaultCountry,
	})

	v.SetDefault("fetcher", map[string]any{
		"concurrency":     50,
		"user_agent":      "Mozilla/5.0 (compatible; MoroccanEduCollector/1.0)",
		"accept_language": "fr-FR,fr;q=0.9,ar;q=0.8,en;q=0.7",
		"request_timeout": "10s",
		"max_redirects":   5,
	})

	v.SetDefault("sitemap", map[string]any{
		"max_depth":   5,
		"concurrency": 8,
	})

	v.SetDefault("collector", map[string]any{
		"concurrency":     50,
		"batch_delay":     "100ms",
		"request_timeout": "10s",
		"respect_robots":  false,
	})

	v.SetDefault("server", map[string]any{
		"host":             "0.0.0.0",
		"port":             DefaultPort,
		"read_timeout":     "15s",
		"write_timeout":    "15s",
		"idle_timeout":     "60s",
		"shutdown_timeout": "10s",
		"cors_origins":     []string{"*"},
		"default_limit":    100,
		"max_limit":        1000,
	})

	v.SetDefault("storage", map[string]any{
		"output": DefaultOutput,
		"csv":    false,
	})

	v.SetDefault("elasticsearch", map[string]any{
		"enabled":      false,
		"addresses":    []string{"http://127.0.0.1:9200"},
		"index_prefix": "edu",
		"bulk_size":    500,
		"timeout":      "30s",
	})

	v.SetDefault("redis", map[string]any{
		"enabled":    false,
		"address":    "localhost:6379",
		"db":         0,
		"key_prefix": "edu",
		"cache_ttl":  "5m",
	})

	v.SetDefault("database", map[string]any{
		"enabled":           false,
		"host":              "localhost",
		"port":              5432,
		"user":              "postgres",
		"dbname":            "education",
		"sslmode":           "disable",
		"max_open_conns":    10,
		"max_idle_conns":    5,
		"conn_max_lifetime": "5m",
	})

	v.SetDefault("scheduler", map[string]any{
		"cron":         DefaultCron,
		"max_backoff":  "24h",
		"metrics_addr": DefaultMetricsAddr,
	})

	v.SetDefault("metrics", map[string]any{
		"push_url": "",
		"job":      "edu_collect",
	})
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string][]string{
	"app.environment":         {"APP_ENV"},
	"app.debug":               {"APP_DEBUG"},
	"logger.level":            {"LOG_LEVEL"},
	"logger.encoding":         {"LOG_FORMAT"},
	"target.base_url":         {"TARGET_BASE_URL", "EDU_BASE_URL"},
	"server.port":             {"PORT", "SERVER_PORT"},
	"storage.output":          {"DATA_FILE", "STORAGE_OUTPUT"},
	"elasticsearch.enabled":   {"ELASTICSEARCH_ENABLED"},
	"elasticsearch.addresses": {"ELASTICSEARCH_HOSTS", "ELASTICSEARCH_ADDRESSES"},
	"elasticsearch.username":  {"ELASTICSEARCH_USERNAME"},
	"elasticsearch.password":  {"ELASTIC_PASSWORD", "ELASTICSEARCH_PASSWORD"},
	"elasticsearch.api_key":   {"ELASTICSEARCH_API_KEY"},
	"redis.enabled":           {"REDIS_ENABLED"},
	"redis.address":           {"REDIS_ADDRESS", "REDIS_ADDR"},
	"redis.password":          {"REDIS_PASSWORD"},
	"database.enabled":        {"DATABASE_ENABLED"},
	"database.host":           {"DATABASE_HOST", "DB_HOST"},
	"database.port":           {"DATABASE_PORT", "DB_PORT"},
	"database.user":           {"DATABASE_USER", "DB_USER"},
	"database.password":       {"DATABASE_PASSWORD", "DB_PASSWORD"},
	"database.dbname":         {"DATABASE_NAME", "DB_NAME"},
	"database.sslmode":        {"DATABASE_SSLMODE", "DB_SSLMODE"},
	"scheduler.metrics_addr":  {"METRICS_ADDR"},
	"metrics.push_url":        {"PUSHGATEWAY_URL"},
}

func bindEnvironmentVariables(v *viper.Viper) error {
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", strings.Join(envs, ","), err)
		}
	}
	return nil
}

// setupDevelopmentLogging turns on debug level with APP_DEBUG and console
// formatting in the development environment.
func setupDevelopmentLogging(v *viper.Viper) {
	if v.GetBool("app.debug") {
		v.Set("logger.level", "debug")
	}
	if v.GetString("app.environment") == "development" {
		v.Set("logger.development", true)
		v.Set("logger.encoding", "console")
	}
}
