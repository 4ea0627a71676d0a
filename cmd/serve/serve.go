// Package serve implements the serve command: the read-only dataset API.
package serve

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	cmdcommon "github.com/K11E3R/moroccan-education-API/cmd/common"
	"github.com/K11E3R/moroccan-education-API/internal/api"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
	"github.com/K11E3R/moroccan-education-API/internal/metrics"
	"github.com/K11E3R/moroccan-education-API/internal/server"
	"github.com/K11E3R/moroccan-education-API/internal/storage"
)

// Command returns the serve command.
func Command(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the collected dataset over HTTP",
		Long: `Load the dataset file once and serve it read-only under /api/v1.
A missing dataset is served as an empty one so the API can start before the
first collection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cmdcommon.BindFlags(cmd, map[string]string{
				"storage.output": "data",
				"server.port":    "port",
				"server.host":    "host",
			}); err != nil {
				return err
			}

			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer func() { _ = deps.Logger.Sync() }()

			return run(cmd.Context(), deps, version)
		},
	}

	cmd.Flags().String("data", "", "dataset file to serve")
	cmd.Flags().IntP("port", "p", 0, "port to listen on")
	cmd.Flags().String("host", "", "address to bind")

	return cmd
}

func run(ctx context.Context, deps cmdcommon.CommandDeps, version string) error {
	cfg := deps.Config
	log := deps.Logger

	store, err := loadStore(cfg.Storage.Output, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	opts := api.Options{
		Name:           cfg.App.Name,
		Version:        cfg.App.Version,
		DefaultLimit:   cfg.Server.DefaultLimit,
		MaxLimit:       cfg.Server.MaxLimit,
		CacheObserver:  m,
		HealthChecks:   map[string]server.HealthChecker{},
		MetricsHandler: metrics.Handler(reg),
	}

	if cfg.Redis.Enabled {
		client, redisErr := cmdcommon.NewRedisClient(ctx, cfg.Redis)
		if redisErr != nil {
			log.Warn("Redis unavailable, serving without cache", "error", redisErr)
		} else {
			defer client.Close()
			cache := api.NewRedisCache(client, cfg.Redis.KeyPrefix)
			opts.Cache = cache
			opts.CacheTTL = cfg.Redis.CacheTTL
			opts.HealthChecks["redis"] = server.PingChecker(cache.Ping)
		}
	}

	handler := api.NewHandler(store, opts, log)

	srv := server.New(&server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Debug:           cfg.App.Debug,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORS:            server.CORSConfig{AllowedOrigins: cfg.Server.CORSOrigins},
		ServiceName:     cfg.App.Name,
		ServiceVersion:  version,
	}, log, func(r *gin.Engine) { handler.RegisterRoutes(r) }, m.GinMiddleware())

	log.Info("Dataset loaded",
		"path", cfg.Storage.Output,
		"version", store.Version(),
		"total_items", store.Metadata().TotalItems,
	)

	return srv.RunWithGracefulShutdown(ctx)
}

func loadStore(path string, log logger.Interface) (*api.Store, error) {
	store, err := api.LoadStore(path)
	if errors.Is(err, storage.ErrDatasetNotFound) {
		log.Warn("Dataset not found, serving empty dataset; run 'edu collect' first", "path", path)
		return api.NewStore(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return store, nil
}
