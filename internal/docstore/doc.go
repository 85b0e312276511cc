// Package docstore persists JSON documents one file per key under a base
// directory and is the single source of truth for group and file metadata.
//
// Writes follow a temp-file, fsync, rename discipline so a document is never
// observed half-written, even across a process crash. Mutations on one key
// serialize through a per-key lock registry; distinct keys proceed in
// parallel. Replace and Update accept an optional version stamp (nanosecond
// mtime) for optimistic concurrency. Keys are sandboxed beneath the base
// directory; anything resolving outside it is rejected before I/O.
//
// The lock registry grows with distinct keys touched over the process
// lifetime. Groups and files are finite at this scale, so growth is accepted
// rather than evicted.
//
// There is no cross-process locking: exactly one process instance may own a
// base directory, which the daemon enforces with a file lock.
package docstore
