package ingest

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SpoolArchive streams an uploaded archive to a temporary file so extraction
// can seek. The caller must invoke cleanup when done.
func SpoolArchive(r io.Reader) (string, func(), error) {
	tmp, err := os.CreateTemp("", "upload_*.zip")
	if err != nil {
		return "", nil, fmt.Errorf("spool archive: %w", err)
	}
	name := tmp.Name()
	cleanup := func() { _ = os.Remove(name) }

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("spool archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("spool archive: %w", err)
	}
	return name, cleanup, nil
}

// ExtractZip unpacks archivePath into destDir, keeping only regular entries
// with an allowed extension. Directory entries, archive junk
// (__MACOSX/, ._* resource forks, .DS_Store), and entries that would resolve
// outside destDir are skipped, not failed: one bad member must not reject a
// whole batch. Returns the extracted paths sorted by name.
func ExtractZip(archivePath, destDir string, allowedExts []string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination %s: %w", destDir, err)
	}
	destRoot, err := filepath.Abs(destDir)
	if err != nil {
		return nil, err
	}

	// ErrInsecurePath still yields a usable reader; escaping entries are
	// filtered per entry below.
	reader, err := zip.OpenReader(archivePath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	allowed := make(map[string]struct{}, len(allowedExts))
	for _, ext := range allowedExts {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	var extracted []string
	for _, entry := range reader.File {
		name := entry.Name
		if entry.FileInfo().IsDir() || IsTrashMember(name) {
			continue
		}
		if _, ok := allowed[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}

		target := filepath.Join(destRoot, filepath.FromSlash(name))
		target = filepath.Clean(target)
		if target != destRoot && !strings.HasPrefix(target, destRoot+string(filepath.Separator)) {
			continue // zip-slip attempt
		}

		if err := extractEntry(entry, target); err != nil {
			return nil, fmt.Errorf("extract %s: %w", name, err)
		}
		extracted = append(extracted, target)
	}

	sort.Strings(extracted)
	return extracted, nil
}

func extractEntry(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(target)
		return err
	}
	return dst.Close()
}

// IsTrashMember reports whether an archive entry is packaging junk rather
// than content: macOS resource forks and Finder metadata.
func IsTrashMember(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	base := name
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	return strings.HasPrefix(base, "._") || base == ".DS_Store"
}
