// Package main hosts the folio CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon API: group inspection, recognition status,
// report downloads, and configuration scaffolding. Heavy lifting lives in
// the internal packages; commands stay thin and declarative.
package main
