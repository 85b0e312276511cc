package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"folio/internal/catalog"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"

	dateFormat     = "2006-01-02 15:04"
	dateTimeFormat = "2006-01-02 15:04:05"
)

// groupsTable renders the group listing with archival metadata columns.
// Fond/opis/delo are registry numbers, so they align right.
func groupsTable(groups []catalog.Group) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Group", "Fond", "Opis", "Delo", "Created"})
	for _, g := range groups {
		tw.AppendRow(table.Row{
			g.GroupID, g.Fond, g.Opis, g.Delo,
			g.CreatedAt.Local().Format(dateFormat),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// filesTable renders a group's files with their recognition status.
func filesTable(files []catalog.File, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Name", "File", "Status", "Updated"})
	for _, f := range files {
		tw.AppendRow(table.Row{
			f.OriginalName, f.FileID,
			colorStatus(f.Status, colorize),
			f.UpdatedAt.Local().Format(dateTimeFormat),
		})
	}
	return tw.Render()
}

// colorStatus wraps a status in its pipeline-phase color: blue while
// waiting on OCR, yellow mid-correction, green when finished.
func colorStatus(status catalog.Status, colorize bool) string {
	if !colorize {
		return string(status)
	}
	return statusColor(status) + string(status) + ansiReset
}

func statusColor(status catalog.Status) string {
	switch status {
	case catalog.StatusDone:
		return ansiGreen
	case catalog.StatusUpgrading:
		return ansiYellow
	default:
		return ansiBlue
	}
}
