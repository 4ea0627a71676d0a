// Package schedule implements the schedule command: periodic collection
// driven by a cron expression.
package schedule

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	cmdcommon "github.com/K11E3R/moroccan-education-API/cmd/common"
	"github.com/K11E3R/moroccan-education-API/internal/domain"
	"github.com/K11E3R/moroccan-education-API/internal/metrics"
	"github.com/K11E3R/moroccan-education-API/internal/scheduler"
	"github.com/K11E3R/moroccan-education-API/internal/tracker"
)

// Command returns the schedule command.
func Command() *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Collect periodically on a cron schedule",
		Long: `Run the collect pipeline on a standard five-field cron expression
(default "0 3 * * *"). With Redis enabled, the fingerprint of each dataset
is remembered; while it comes back unchanged the interval between runs
doubles, up to scheduler.max_backoff (24h). Collector metrics are served
at /metrics on scheduler.metrics_addr (default ":9102").`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cmdcommon.BindFlags(cmd, map[string]string{
				"scheduler.cron":         "cron",
				"target.base_url":        "base-url",
				"storage.output":         "output",
				"elasticsearch.enabled":  "index",
				"database.enabled":       "record",
				"scheduler.metrics_addr": "metrics-addr",
			}); err != nil {
				return err
			}

			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer func() { _ = deps.Logger.Sync() }()
			if err := deps.Config.RequireTarget(); err != nil {
				return err
			}

			return run(cmd.Context(), deps, runNow)
		},
	}

	cmd.Flags().String("cron", "", "cron expression (minute hour day month weekday)")
	cmd.Flags().String("base-url", "", "site root to collect")
	cmd.Flags().StringP("output", "o", "", "dataset file to write")
	cmd.Flags().Bool("index", false, "also index each dataset into Elasticsearch")
	cmd.Flags().Bool("record", false, "record each run in the PostgreSQL history")
	cmd.Flags().String("metrics-addr", "", `host:port serving /metrics ("" disables it)`)
	cmd.Flags().BoolVar(&runNow, "now", false, "run once immediately, then follow the schedule")

	return cmd
}

func run(ctx context.Context, deps cmdcommon.CommandDeps, runNow bool) error {
	cfg := deps.Config
	log := deps.Logger
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	collect := func(ctx context.Context) (*domain.CollectionRun, error) {
		outcome, err := cmdcommon.RunCollection(ctx, deps, m)
		if err != nil {
			return nil, err
		}
		return outcome.Result.Run, nil
	}

	opts := []scheduler.Option{scheduler.WithSkipObserver(m)}
	if cfg.Redis.Enabled {
		client, err := cmdcommon.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, scheduling without change tracking", "error", err)
		} else {
			defer client.Close()
			opts = append(opts, scheduler.WithTracker(
				tracker.New(client, cfg.Redis.KeyPrefix, cfg.Scheduler.MaxBackoff),
			))
		}
	}

	s, err := scheduler.New(cfg.Scheduler.Cron, cfg.Target.SourceName(), collect, log, opts...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if addr := cfg.Scheduler.MetricsAddr; addr != "" {
		srv, srvErr := cmdcommon.NewMetricsServer(addr, reg, log)
		if srvErr != nil {
			return srvErr
		}
		g.Go(func() error { return srv.RunWithGracefulShutdown(gctx) })
	}
	g.Go(func() error { return s.Start(gctx, runNow) })
	return g.Wait()
}
