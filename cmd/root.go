// Package cmd implements the command-line interface: collecting the
// dataset, serving it and maintaining it.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/K11E3R/moroccan-education-API/cmd/collect"
	"github.com/K11E3R/moroccan-education-API/cmd/common"
	"github.com/K11E3R/moroccan-education-API/cmd/runs"
	"github.com/K11E3R/moroccan-education-API/cmd/schedule"
	"github.com/K11E3R/moroccan-education-API/cmd/serve"
	"github.com/K11E3R/moroccan-education-API/cmd/validate"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug mode for all commands
	Debug bool

	rootCmd = &cobra.Command{
		Use:   "edu",
		Short: "Moroccan education resources collector and API",
		Long: `Collects K-12 educational resources (levels, subjects, courses, exercises,
controls, exams and corrections) from public Moroccan education websites
and serves the resulting dataset through a read-only HTTP API.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command until it returns or the process receives
// SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug mode")

	if err := viper.BindPFlag(common.ConfigFileKey, rootCmd.PersistentFlags().Lookup("config")); err != nil {
		panic(fmt.Sprintf("bind config flag: %v", err))
	}
	if err := viper.BindPFlag("app.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("bind debug flag: %v", err))
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "edu version %s\n", Version)
		},
	})

	rootCmd.AddCommand(collect.Command())
	rootCmd.AddCommand(serve.Command(Version))
	rootCmd.AddCommand(validate.Command())
	rootCmd.AddCommand(schedule.Command())
	rootCmd.AddCommand(runs.Command())
}
