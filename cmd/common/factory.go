package common

import (
	"context"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
	goredis "github.com/redis/go-redis/v9"

	"github.com/K11E3R/moroccan-education-API/internal/categorize"
	"github.com/K11E3R/moroccan-education-API/internal/collector"
	"github.com/K11E3R/moroccan-education-API/internal/config"
	"github.com/K11E3R/moroccan-education-API/internal/database"
	"github.com/K11E3R/moroccan-education-API/internal/extract"
	"github.com/K11E3R/moroccan-education-API/internal/fetcher"
	"github.com/K11E3R/moroccan-education-API/internal/index"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
	"github.com/K11E3R/moroccan-education-API/internal/redis"
	"github.com/K11E3R/moroccan-education-API/internal/sitemap"
)

// NewPipeline wires the fetch client, robots checker, sitemap resolver and
// extractors described by cfg.
func NewPipeline(cfg *config.Config, log logger.Interface, obs collector.Observer) (*collector.Pipeline, error) {
	client := fetcher.NewClient(FetcherConfig(cfg))
	robots := fetcher.NewRobotsChecker(client.HTTPClient(), client.UserAgent(), 0)
	resolver := sitemap.NewResolver(client, robots, log, cfg.Sitemap)

	return collector.NewPipeline(collector.PipelineDeps{
		Resolver:    resolver,
		Categorizer: categorize.NewDefault(),
		Getter:      client,
		Extractors:  extract.NewSet(cfg.Target.SourceName()),
		Robots:      robots,
		Observer:    obs,
		Logger:      log,
	}, cfg.Collector)
}

// FetcherConfig returns the fetch client settings with the connection pool
// at least as large as the engine's concurrency.
func FetcherConfig(cfg *config.Config) fetcher.Config {
	fcfg := cfg.Fetcher
	fcfg.Concurrency = max(fcfg.Concurrency, cfg.Collector.Concurrency)
	return fcfg
}

// Target returns the collection target of cfg.
func Target(cfg *config.Config) collector.Target {
	return collector.Target{
		BaseURL: cfg.Target.BaseURL,
		Seeds:   cfg.Target.Seeds,
		Source:  cfg.Target.SourceName(),
		Country: cfg.Target.Country,
	}
}

// IndexConfig maps the elasticsearch section onto the indexer config.
func IndexConfig(cfg config.ElasticsearchConfig) index.Config {
	return index.Config{
		Addresses:   cfg.Addresses,
		Username:    cfg.Username,
		Password:    cfg.Password,
		APIKey:      cfg.APIKey,
		IndexPrefix: cfg.IndexPrefix,
		BulkSize:    cfg.BulkSize,
		Timeout:     cfg.Timeout,
	}
}

// NewIndexer connects to Elasticsearch and returns the dataset indexer.
func NewIndexer(ctx context.Context, cfg config.ElasticsearchConfig, log logger.Interface) (*index.Indexer, *es.Client, error) {
	icfg := IndexConfig(cfg)
	client, err := index.NewClient(icfg)
	if err != nil {
		return nil, nil, err
	}
	if pingErr := index.Ping(ctx, client); pingErr != nil {
		return nil, nil, fmt.Errorf("elasticsearch unavailable: %w", pingErr)
	}
	return index.NewIndexer(client, icfg, log), client, nil
}

// OpenRunRepository connects to PostgreSQL, applies migrations and returns
// the run history repository with a close function.
func OpenRunRepository(ctx context.Context, cfg config.DatabaseConfig, log logger.Interface) (*database.RunRepository, func() error, error) {
	db, err := database.Open(ctx, database.Config{
		DSN:             cfg.DSN(),
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	if migErr := database.RunMigrations(db.DB, log); migErr != nil {
		_ = db.Close()
		return nil, nil, migErr
	}
	return database.NewRunRepository(db), db.Close, nil
}

// NewRedisClient connects to Redis.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	return redis.NewClient(ctx, redis.Config{
		Address:  cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
