// Package daemon composes the document store, catalog, external-service
// dispatchers, and HTTP API into a single lifecycle with flock-based locking
// to prevent multiple instances from sharing one data directory.
package daemon
