package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column names one table column; numeric columns render right-aligned.
type column struct {
	name    string
	numeric bool
}

// The two table shapes the CLI renders. Progress, elapsed time, duration,
// and step ordinals read better flush against their units.
var (
	executionListColumns = []column{
		{name: "ID"},
		{name: "Title"},
		{name: "Status"},
		{name: "Stage"},
		{name: "Progress", numeric: true},
		{name: "Elapsed", numeric: true},
		{name: "Created"},
	}

	stepListColumns = []column{
		{name: "#", numeric: true},
		{name: "Stage"},
		{name: "Status"},
		{name: "Duration", numeric: true},
		{name: "GPU"},
		{name: "Metadata"},
	}
)

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, col := range columns {
		header[i] = col.name
		align := text.AlignLeft
		if col.numeric {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	return tw.Render()
}
