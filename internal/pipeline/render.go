package pipeline

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Render formats the run report as a terminal table.
func (r *RunReport) Render() string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Stage", "Status", "Processed", "New", "Known", "Dropped", "Failed", "Duration"})

	for _, o := range r.Outcomes {
		duration := ""
		if o.Duration > 0 {
			duration = o.Duration.Round(time.Millisecond).String()
		}
		tw.AppendRow(table.Row{
			o.Stage,
			o.Status,
			o.Counts.Processed,
			o.Counts.New,
			o.Counts.Known,
			o.Counts.Dropped,
			o.Counts.Failed,
			duration,
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})

	out := tw.Render()
	if r.RunID != "" {
		out += fmt.Sprintf("\nrun %s: %s", r.RunID, r.Status)
	}
	return out
}

// FailedStage returns the name of the failed stage, or "".
func (r *RunReport) FailedStage() string {
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			return o.Stage
		}
	}
	return ""
}
