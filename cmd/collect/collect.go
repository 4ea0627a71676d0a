// Package collect implements the collect command: one full pass over the
// target site, written to the dataset file and the enabled sinks.
package collect

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	cmdcommon "github.com/K11E3R/moroccan-education-API/cmd/common"
	"github.com/K11E3R/moroccan-education-API/internal/metrics"
)

// Command returns the collect command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect educational resources from the target site",
		Long: `Discover the target site's URLs from its sitemaps, categorize them,
fetch and extract levels, subjects and content, then write the dataset.

Optional sinks: CSV export (--csv), Elasticsearch (--index) and the
PostgreSQL run history (--record). Run metrics are pushed to a Prometheus
Pushgateway when --push-url (metrics.push_url) is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cmdcommon.BindFlags(cmd, map[string]string{
				"target.base_url":       "base-url",
				"target.seeds":          "seed",
				"target.source":         "source",
				"storage.output":        "output",
				"storage.csv":           "csv",
				"elasticsearch.enabled": "index",
				"database.enabled":      "record",
				"collector.concurrency": "concurrency",
				"metrics.push_url":      "push-url",
			}); err != nil {
				return err
			}

			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer func() { _ = deps.Logger.Sync() }()

			reg := prometheus.NewRegistry()
			outcome, err := cmdcommon.RunCollection(cmd.Context(), deps, metrics.New(reg))
			cmdcommon.PushMetrics(cmd.Context(), deps.Config.Metrics, reg, deps.Logger)
			if err != nil {
				return fmt.Errorf("collection failed: %w", err)
			}

			cmdcommon.RenderCollectSummary(cmd.OutOrStdout(), outcome)
			if sinkErr := outcome.JoinSinkErrors(); sinkErr != nil {
				return fmt.Errorf("dataset saved to %s but some sinks failed: %w", outcome.Output, sinkErr)
			}
			return nil
		},
	}

	cmd.Flags().String("base-url", "", "site root to collect, e.g. https://moutamadris.ma")
	cmd.Flags().StringSlice("seed", nil, "sitemap URL to start from (repeatable)")
	cmd.Flags().String("source", "", "source label stored on every record (default: base URL host)")
	cmd.Flags().StringP("output", "o", "", "dataset file to write")
	cmd.Flags().Bool("csv", false, "also export CSV files next to the dataset")
	cmd.Flags().Bool("index", false, "also index the dataset into Elasticsearch")
	cmd.Flags().Bool("record", false, "record the run in the PostgreSQL history")
	cmd.Flags().Int("concurrency", 0, "maximum concurrent page fetches")
	cmd.Flags().String("push-url", "", "Prometheus Pushgateway to push run metrics to")

	return cmd
}
