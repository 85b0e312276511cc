package docstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWriteJSON serializes doc and writes it to path so that readers only
// ever observe the previous document or the complete new one: the bytes go to
// a dot-prefixed temporary file in the target's directory, are fsynced, and
// then renamed over the target in a single step. The temporary file is
// removed on any failure.
func AtomicWriteJSON(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return AtomicWriteFile(path, append(data, '\n'))
}

// AtomicWriteFile writes raw bytes to path with the same temp+fsync+rename
// discipline as AtomicWriteJSON.
func AtomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory %s: %w", ErrStorageIO, dir, err)
	}

	// The temp file must live in the target directory so the rename stays on
	// one filesystem and therefore atomic.
	tmp, err := os.CreateTemp(dir, ".tmp_*"+docSuffix)
	if err != nil {
		return fmt.Errorf("%w: create temp file in %s: %w", ErrStorageIO, dir, err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("%w: write %s: %w", ErrStorageIO, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("%w: sync %s: %w", ErrStorageIO, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %w", ErrStorageIO, tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %w", ErrStorageIO, path, err)
	}
	return nil
}

func (s *Store) atomicWrite(key, path string, doc any) error {
	if err := AtomicWriteJSON(path, doc); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
