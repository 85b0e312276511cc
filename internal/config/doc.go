// Package config loads, normalizes, and validates Folio configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and derives the store and group directory
// roots from the configured data directory. The Config type centralizes every
// knob the daemon and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical service URLs, and clear validation errors.
package config
