package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Format selects the report rendering.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatTable Format = "table"
	FormatHTML  Format = "html"
)

// ParseFormat recognizes a format name; empty means CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatTable:
		return FormatTable, nil
	case FormatHTML:
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown report format %q", raw)
}

// ContentType returns the MIME type for serving a rendered report.
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatTable:
		return "text/plain; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Extension returns the download filename extension.
func (f Format) Extension() string {
	switch f {
	case FormatHTML:
		return "html"
	case FormatTable:
		return "txt"
	default:
		return "csv"
	}
}

// Render serializes the report in the requested format.
func Render(rep Report, format Format) string {
	tw := table.NewWriter()

	header := make(table.Row, len(rep.Header))
	for i, h := range rep.Header {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rep.Rows {
		r := make(table.Row, len(rep.Header))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	switch format {
	case FormatHTML:
		return tw.RenderHTML()
	case FormatTable:
		tw.SetStyle(table.StyleRounded)
		return tw.Render()
	default:
		return tw.RenderCSV()
	}
}
