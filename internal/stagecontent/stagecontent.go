package stagecontent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"folio/internal/docstore"
)

// ErrAmbiguousContent indicates that more than one payload file matched a
// resolution request. Callers disambiguate with an explicit filename instead
// of the system guessing.
var ErrAmbiguousContent = errors.New("ambiguous stage content")

// ErrNotFound indicates no payload file matched.
var ErrNotFound = errors.New("stage content not found")

var (
	resultSuffix = regexp.MustCompile(`(?i)_result$`)
	indexSuffix  = regexp.MustCompile(`_\d{3,}$`)
	folder       = cases.Fold()
)

// NormalizeStem reduces a producer- or source-side filename to its logical
// stem: the extension, a conventional "_result" suffix, and a trailing
// numeric index (three or more digits) are stripped, then the rest is
// casefolded. "scan007_003_result.json" and "SCAN007.jpg" normalize equally.
func NormalizeStem(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	stem = resultSuffix.ReplaceAllString(stem, "")
	stem = indexSuffix.ReplaceAllString(stem, "")
	return folder.String(stem)
}

// Resolve maps a file to its payload location inside a stage directory.
// Producer services name their outputs independently of the file identifier,
// so resolution tries, in order:
//
//  1. the caller-supplied explicit filename, coerced to a .json suffix;
//  2. "<fileID>.json";
//  3. a directory scan for names whose normalized stem equals the stem of
//     originalName, or that contain the file identifier.
//
// Exactly one candidate resolves; several fail with ErrAmbiguousContent and
// none with ErrNotFound.
func Resolve(dir, fileID, originalName, explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		name := filepath.Base(explicit)
		if !strings.EqualFold(filepath.Ext(name), ".json") {
			name = strings.TrimSuffix(name, filepath.Ext(name)) + ".json"
		}
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("%w: %s", ErrNotFound, name)
			}
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		return path, nil
	}

	direct := filepath.Join(dir, fileID+".json")
	if _, err := os.Stat(direct); err == nil {
		return direct, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", direct, err)
	}

	candidates, err := scan(dir, fileID, originalName)
	if err != nil {
		return "", err
	}
	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("%w: no payload for %q in %s", ErrNotFound, originalName, dir)
	case 1:
		return candidates[0], nil
	default:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = filepath.Base(c)
		}
		return "", fmt.Errorf("%w: %q matches %s", ErrAmbiguousContent, originalName, strings.Join(names, ", "))
	}
}

// WritePath returns the location a new payload for fileID should be written
// to when no existing payload resolves: an existing match is reused,
// otherwise "<fileID>.json".
func WritePath(dir, fileID, originalName, explicit string) (string, error) {
	path, err := Resolve(dir, fileID, originalName, explicit)
	if err == nil {
		return path, nil
	}
	if errors.Is(err, ErrNotFound) {
		if explicit = strings.TrimSpace(explicit); explicit != "" {
			name := filepath.Base(explicit)
			if !strings.EqualFold(filepath.Ext(name), ".json") {
				name = strings.TrimSuffix(name, filepath.Ext(name)) + ".json"
			}
			return filepath.Join(dir, name), nil
		}
		return filepath.Join(dir, fileID+".json"), nil
	}
	return "", err
}

func scan(dir, fileID, originalName string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	wantStem := NormalizeStem(originalName)
	var matches []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}
		switch {
		case wantStem != "" && NormalizeStem(name) == wantStem:
			matches = append(matches, filepath.Join(dir, name))
		case fileID != "" && strings.Contains(name, fileID):
			matches = append(matches, filepath.Join(dir, name))
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// ReadPayload loads the payload bytes at path, distinguishing a missing
// payload from a disk failure.
func ReadPayload(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("read payload %s: %w", path, err)
	}
	return data, nil
}

// WritePayload stores doc at path with the store's atomic-write discipline so
// stage directory readers never observe a torn payload.
func WritePayload(path string, doc any) error {
	return docstore.AtomicWriteJSON(path, doc)
}
