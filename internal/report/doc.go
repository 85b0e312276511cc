// Package report assembles tabular recognition reports for a group: one row
// per recognized text region and entity type, rendered as CSV, a plain-text
// table, or HTML.
package report
