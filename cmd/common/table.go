package common

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/K11E3R/moroccan-education-API/internal/database"
	"github.com/K11E3R/moroccan-education-API/internal/domain"
)

// newTable returns a writer using the light style shared by all commands.
func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

// RenderCollectSummary prints the per-category counts and fetch stats of
// a finished collection.
func RenderCollectSummary(w io.Writer, o *CollectOutcome) {
	if o == nil || o.Result == nil {
		return
	}
	run := o.Result.Run
	meta := run.Metadata

	t := newTable(w, "Collection "+run.RunID)
	t.AppendHeader(table.Row{"Category", "Discovered", "Collected"})
	for _, c := range domain.Categories() {
		t.AppendRow(table.Row{string(c), o.Result.Discovered[c], meta.CountFor(c)})
	}
	t.AppendFooter(table.Row{"Total", len(o.Result.Resolution.URLs), meta.TotalItems})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	t.Render()

	s := newTable(w, "")
	s.AppendRows([]table.Row{
		{"Source", run.Source},
		{"Sitemaps fetched", o.Result.Resolution.SitemapsFetched},
		{"URLs attempted", meta.AttemptedURLs},
		{"URLs visited", meta.VisitedURLs},
		{"URLs failed", meta.FailedURLs},
		{"Quality score", fmt.Sprintf("%.2f", meta.QualityScore)},
		{"Duration", o.Result.Duration.Round(time.Millisecond).String()},
		{"Output", o.Output},
	})
	for _, p := range o.CSVPaths {
		s.AppendRow(table.Row{"CSV", p})
	}
	if o.Indexed > 0 {
		s.AppendRow(table.Row{"Indexed documents", o.Indexed})
	}
	if o.Summary != nil {
		s.AppendRow(table.Row{"History id", o.Summary.ID})
	}
	reasons := make([]string, 0, len(o.Result.FailureReasons))
	for r := range o.Result.FailureReasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		s.AppendRow(table.Row{"Failed (" + r + ")", o.Result.FailureReasons[r]})
	}
	s.Render()
}

// RenderRuns prints the run history.
func RenderRuns(w io.Writer, runs []*database.RunSummary) {
	t := newTable(w, "")
	t.AppendHeader(table.Row{"ID", "Started", "Source", "Status", "Items", "Visited", "Failed", "Quality", "Duration"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.CollectionDate.Local().Format("2006-01-02 15:04"),
			r.Source,
			r.Status,
			r.TotalItems,
			r.VisitedURLs,
			r.FailedURLs,
			strconv.FormatFloat(r.QualityScore, 'f', 2, 64),
			r.Duration().String(),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "", "Runs", len(runs)})
	t.Render()
}
