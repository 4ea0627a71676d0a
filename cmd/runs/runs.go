// Package runs implements the runs command: the collection history.
package runs

import (
	"fmt"

	"github.com/spf13/cobra"

	cmdcommon "github.com/K11E3R/moroccan-education-API/cmd/common"
)

const defaultLimit = 20

// Command returns the runs command.
func Command() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent collection runs",
		Long:  `List the most recent collection runs recorded in PostgreSQL, newest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			if !deps.Config.Database.Enabled {
				return cmdcommon.ErrDatabaseDisabled
			}

			repo, closeDB, err := cmdcommon.OpenRunRepository(cmd.Context(), deps.Config.Database, deps.Logger)
			if err != nil {
				return err
			}
			defer closeDB()

			history, err := repo.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(history) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}

			cmdcommon.RenderRuns(cmd.OutOrStdout(), history)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultLimit, "number of runs to show")

	return cmd
}
