package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"jellyplex/internal/syncer"
)

// renderSummaryTable renders the run counters for terminal output.
func renderSummaryTable(summary syncer.Summary, verifyOnly bool) string {
	rows := []struct {
		label string
		value int
	}{
		{"Movies", summary.Movies},
		{"Files considered", summary.Items},
		{"Links created", summary.Linked},
		{"Items removed", summary.Removed},
		{"Links verified", summary.Verified},
		{"Broken links", summary.Broken},
		{"Links repaired", summary.Repaired},
	}
	if verifyOnly {
		rows = []struct {
			label string
			value int
		}{
			{"Movies checked", summary.Movies},
			{"Links verified", summary.Verified},
			{"Broken links", summary.Broken},
		}
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Result", "Count"})
	for _, row := range rows {
		tw.AppendRow(table.Row{row.label, strconv.Itoa(row.value)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
