package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// column is one table column. Numeric columns align right; wide columns
// wrap at maxWidth instead of stretching the terminal.
type column struct {
	header   string
	numeric  bool
	maxWidth int
}

var byteCounts = message.NewPrinter(language.English)

// formatBytes renders a byte count with digit grouping, e.g. "1,048,576".
func formatBytes(n int64) string {
	return byteCounts.Sprintf("%d", n)
}

// shortDigest keeps the leading characters of a base64 digest, enough to
// tell files apart in a listing. The JSON output carries the full value.
func shortDigest(d string) string {
	const keep = 12
	if len(d) <= keep {
		return d
	}
	return d[:keep] + "…"
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		header[i] = c.header
		cfg := table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if c.numeric {
			cfg.Align = text.AlignRight
		}
		if c.maxWidth > 0 {
			cfg.WidthMax = c.maxWidth
			cfg.WidthMaxEnforcer = text.WrapSoft
		}
		configs[i] = cfg
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}
