package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const docSuffix = ".json"

// Version is the last-modification stamp of a document, with nanosecond
// resolution. It orders writes to a single key and backs the optimistic
// concurrency checks on Replace and Update.
type Version int64

// PatchFunc receives the current document bytes and returns the replacement
// document. It runs inside the key's exclusive section and may block, e.g. on
// another service call.
type PatchFunc func(current json.RawMessage) (any, error)

// Store is a key to JSON-document persistence layer over a local filesystem.
// Writes are atomic (temp file, fsync, rename) and mutations on a single key
// serialize through a per-key lock; operations on distinct keys proceed
// independently. Exactly one process may own a base directory at a time.
type Store struct {
	baseDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New opens a store rooted at baseDir, creating the directory when absent.
func New(baseDir string) (*Store, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("docstore: base directory must be set")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("docstore: resolve base directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create base directory: %w", ErrStorageIO, err)
	}
	return &Store{baseDir: abs, locks: make(map[string]*sync.Mutex)}, nil
}

// BaseDir returns the absolute store root.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Create writes doc at key. When overwrite is false an existing document
// fails with ErrAlreadyExists.
func (s *Store) Create(ctx context.Context, key string, doc any, overwrite bool) error {
	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, key)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: stat %s: %w", ErrStorageIO, key, err)
		}
	}
	return s.atomicWrite(key, path, doc)
}

// Read decodes the document at key into out.
func (s *Store) Read(ctx context.Context, key string, out any) error {
	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("%w: read %s: %w", ErrStorageIO, key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorruptDocument, key, err)
	}
	return nil
}

// Replace atomically overwrites the document at key. A non-nil ifMatch is
// compared against the document's current version; mismatch or a missing
// document fails with ErrConcurrentModification. Returns the new version.
func (s *Store) Replace(ctx context.Context, key string, doc any, ifMatch *Version) (Version, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	if err := s.checkVersion(key, path, ifMatch); err != nil {
		return 0, err
	}
	if err := s.atomicWrite(key, path, doc); err != nil {
		return 0, err
	}
	return s.versionAt(key, path)
}

// Update performs a read-modify-write under the same exclusive section as
// Replace. patch receives the current document bytes and returns the new
// document. Same optimistic-lock semantics as Replace.
func (s *Store) Update(ctx context.Context, key string, patch PatchFunc, ifMatch *Version) (Version, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	if err := s.checkVersion(key, path, ifMatch); err != nil {
		return 0, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return 0, fmt.Errorf("%w: read %s: %w", ErrStorageIO, key, err)
	}
	if !json.Valid(data) {
		return 0, fmt.Errorf("%w: %s", ErrCorruptDocument, key)
	}

	doc, err := patch(json.RawMessage(data))
	if err != nil {
		return 0, fmt.Errorf("docstore: patch %s: %w", key, err)
	}
	if err := s.atomicWrite(key, path, doc); err != nil {
		return 0, err
	}
	return s.versionAt(key, path)
}

// Delete removes the document at key. A missing document is an error unless
// missingOK is set.
func (s *Store) Delete(ctx context.Context, key string, missingOK bool) error {
	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if missingOK {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("%w: delete %s: %w", ErrStorageIO, key, err)
	}
	return nil
}

// Exists reports whether a document is present at key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat %s: %w", ErrStorageIO, key, err)
	}
	return true, nil
}

// Stat returns the current version of the document at key.
func (s *Store) Stat(ctx context.Context, key string) (Version, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.versionAt(key, path)
}

// List enumerates document keys under prefix, sorted. With recursive false
// only direct children of the prefix directory are returned. Temporary files
// are never listed.
func (s *Store) List(ctx context.Context, prefix string, recursive bool) ([]string, error) {
	base := s.baseDir
	if prefix != "" {
		resolved, err := s.resolveUnderBase(prefix)
		if err != nil {
			return nil, err
		}
		base = resolved
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(base); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: stat %s: %w", ErrStorageIO, prefix, err)
	}

	var keys []string
	appendKey := func(path string) error {
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(strings.TrimSuffix(rel, docSuffix)))
		return nil
	}

	if recursive {
		err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isDocumentName(d.Name()) {
				return nil
			}
			return appendKey(path)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", ErrStorageIO, prefix, err)
		}
	} else {
		entries, err := os.ReadDir(base)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", ErrStorageIO, prefix, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !isDocumentName(entry.Name()) {
				continue
			}
			if err := appendKey(filepath.Join(base, entry.Name())); err != nil {
				return nil, fmt.Errorf("%w: list %s: %w", ErrStorageIO, prefix, err)
			}
		}
	}

	sort.Strings(keys)
	return keys, nil
}

func isDocumentName(name string) bool {
	return strings.HasSuffix(name, docSuffix) && !strings.HasPrefix(name, ".")
}

func (s *Store) checkVersion(key, path string, ifMatch *Version) error {
	if ifMatch == nil {
		return nil
	}
	current, err := s.versionAt(key, path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: %s: document missing", ErrConcurrentModification, key)
		}
		return err
	}
	if current != *ifMatch {
		return fmt.Errorf("%w: %s: version %d, expected %d", ErrConcurrentModification, key, current, *ifMatch)
	}
	return nil
}

func (s *Store) versionAt(key, path string) (Version, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return 0, fmt.Errorf("%w: stat %s: %w", ErrStorageIO, key, err)
	}
	return Version(info.ModTime().UnixNano()), nil
}

// keyPath maps a key to its on-disk location, rejecting keys that resolve
// outside the base directory before any I/O happens.
func (s *Store) keyPath(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	resolved, err := s.resolveUnderBase(key)
	if err != nil {
		return "", err
	}
	if resolved == s.baseDir {
		return "", fmt.Errorf("%w: %q resolves to the store root", ErrInvalidKey, key)
	}
	return resolved + docSuffix, nil
}

func (s *Store) resolveUnderBase(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidKey, rel)
	}
	resolved := filepath.Clean(filepath.Join(s.baseDir, filepath.FromSlash(rel)))
	if resolved != s.baseDir && !strings.HasPrefix(resolved, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes the store directory", ErrInvalidKey, rel)
	}
	return resolved, nil
}

func (s *Store) lockFor(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[path] = lock
	}
	return lock
}
