package docstore

import "errors"

var (
	// ErrNotFound indicates the requested key has no document.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists indicates a create without overwrite hit an existing document.
	ErrAlreadyExists = errors.New("document already exists")
	// ErrConcurrentModification indicates an optimistic-lock version mismatch.
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrCorruptDocument indicates on-disk bytes that do not parse as JSON.
	ErrCorruptDocument = errors.New("corrupt document")
	// ErrInvalidKey indicates a key that resolves outside the store sandbox.
	ErrInvalidKey = errors.New("invalid key")
	// ErrStorageIO indicates a disk-level failure. Retry policy belongs to the caller.
	ErrStorageIO = errors.New("storage i/o failure")
)
