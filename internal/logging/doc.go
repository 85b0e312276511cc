// Package logging constructs the slog loggers used across Folio.
//
// Loggers are built from configuration (console or JSON format, optional log
// file tee) and handed to components at construction time; there is no global
// logger. Standardized attribute keys for group and file identifiers live in
// attrs.go so log lines stay greppable across components.
package logging
