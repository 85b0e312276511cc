// Package server exposes the HTTP API: group upload and management, file
// status and stage content access, processing-service callbacks, and report
// downloads, all versioned under /api/v1.
package server
