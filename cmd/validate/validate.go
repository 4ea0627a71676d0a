// Package validate implements the validate command: quality report and
// optional cleanup of a dataset file.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cmdcommon "github.com/K11E3R/moroccan-education-API/cmd/common"
	"github.com/K11E3R/moroccan-education-API/internal/storage"
	validation "github.com/K11E3R/moroccan-education-API/internal/validate"
)

// Report output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ErrInvalidRecords is returned with --strict when the dataset has invalid records.
var ErrInvalidRecords = errors.New("dataset has invalid records")

const maxIssuesShown = 50

type options struct {
	clean      bool
	output     string
	seedLevels bool
	format     string
	strict     bool
}

// Command returns the validate command.
func Command() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "validate <dataset.json>",
		Short: "Check a dataset and optionally write a cleaned copy",
		Long: `Report missing fields, malformed URLs, Arabic names without Arabic script
and unknown levels. With --clean, whitespace is trimmed, invalid and
duplicate records are dropped, lists are sorted and the result is written
to --output (default <dataset>_clean.json).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.clean, "clean", false, "write a cleaned copy of the dataset")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "cleaned dataset path")
	cmd.Flags().BoolVar(&opts.seedLevels, "seed-levels", false, "add the official levels missing from the dataset")
	cmd.Flags().StringVarP(&opts.format, "format", "f", FormatTable, "report format: table, json or yaml")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit with an error when records are invalid")

	return cmd
}

func run(cmd *cobra.Command, path string, opts options) error {
	switch opts.format {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", opts.format)
	}

	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	log := deps.Logger

	dataset, err := storage.LoadDataset(path)
	if err != nil {
		return err
	}

	if opts.seedLevels {
		added := validation.SeedLevels(dataset)
		log.Info("Official levels seeded", "added", added)
	}

	report := validation.NewValidator().Validate(dataset)
	if err := writeReport(cmd.OutOrStdout(), report, opts.format); err != nil {
		return err
	}

	if opts.clean || opts.seedLevels {
		out := opts.output
		if out == "" {
			out = cleanPath(path)
		}
		result := dataset
		if opts.clean {
			result = validation.Clean(dataset)
		}
		if err := storage.NewJSONSink(out, log).Write(cmd.Context(), result); err != nil {
			return fmt.Errorf("write cleaned dataset: %w", err)
		}
		log.Info("Dataset written",
			"path", out,
			"total_items", result.Metadata.TotalItems,
			"dropped", dataset.Metadata.TotalItems-result.Metadata.TotalItems,
		)
	}

	if opts.strict && report.Invalid > 0 {
		return fmt.Errorf("%w: %d of %d", ErrInvalidRecords, report.Invalid, report.Total)
	}
	return nil
}

func cleanPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_clean" + ext
}

func writeReport(w io.Writer, report *validation.Report, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(report)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		renderTable(w, report)
		return nil
	}
}

func renderTable(w io.Writer, report *validation.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("Validation of %s: score %.1f%%", report.Source, report.Score*100))
	t.AppendHeader(table.Row{"Kind", "Total", "Valid", "Invalid", "Warnings"})
	for _, k := range []struct {
		name string
		r    validation.KindReport
	}{
		{"levels", report.Levels},
		{"subjects", report.Subjects},
		{"content", report.Content},
	} {
		t.AppendRow(table.Row{k.name, k.r.Total, k.r.Valid, k.r.Invalid, k.r.Warnings})
	}
	t.AppendFooter(table.Row{"Total", report.Total, report.Valid, report.Invalid, ""})
	t.Render()

	if len(report.Issues) > 0 {
		it := table.NewWriter()
		it.SetOutputMirror(w)
		it.SetStyle(table.StyleLight)
		it.AppendHeader(table.Row{"Severity", "Kind", "ID", "Field", "Message"})
		for i, issue := range report.Issues {
			if i == maxIssuesShown {
				it.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d more", len(report.Issues)-maxIssuesShown)})
				break
			}
			it.AppendRow(table.Row{issue.Severity, issue.Kind, issue.ID, issue.Field, issue.Message})
		}
		it.Render()
	}

	for _, rec := range report.Recommendations() {
		fmt.Fprintf(w, "- %s\n", rec)
	}
}
