// Package catalog owns the domain model: groups of uploaded scans, the files
// they contain, and the status lifecycle each file advances through.
//
// Statuses move progress -> upgrading -> done, driven by callbacks from the
// external processing services; CanAdvance encodes the automated-pipeline
// rule and administrative patches bypass it. Every status write lands in two
// places, the document store record and a flat per-group mirror file, with
// the store acting as the source of truth whenever the two disagree.
//
// The package also derives the per-group directory layout (raw_data,
// statuses, progress, done), which external services treat as a stable
// contract.
package catalog
