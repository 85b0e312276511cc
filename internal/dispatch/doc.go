// Package dispatch hands units of work to the external OCR and
// postprocessing services.
//
// A dispatch is an HTTP request naming a source directory, a destination
// directory, and a callback address the service invokes when it finishes.
// Transient failures retry with exponential backoff under a fixed attempt
// budget; exhaustion surfaces ErrUpstreamUnavailable and never rolls back
// file status, so a stalled pipeline is visible rather than corrupted.
package dispatch
