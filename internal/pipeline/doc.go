// Package pipeline orchestrates the recognition flow: uploads create a
// group and hand it to OCR, service callbacks advance per-file status, and
// reaching the upgrading status chains the postprocessing handoff.
package pipeline
