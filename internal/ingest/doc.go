// Package ingest accepts uploaded ZIP archives of scanned pages and unpacks
// them into a group's raw data directory, filtering out directory entries,
// macOS packaging junk, and files with disallowed extensions.
package ingest
