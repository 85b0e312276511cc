package stagecontent

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestNormalizeStem(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"scan01.jpg", "scan01"},
		{"scan01_003_result.json", "scan01"},
		{"SCAN01_RESULT.json", "scan01"},
		{"scan01_12.json", "scan01_12"}, // two digits are not an index suffix
		{"page_0001.json", "page"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		if got := NormalizeStem(tc.in); got != tc.want {
			t.Fatalf("NormalizeStem(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveExplicitName(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "custom.json")

	path, err := Resolve(dir, "fid", "scan01.jpg", "custom")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if filepath.Base(path) != "custom.json" {
		t.Fatalf("unexpected path: %s", path)
	}

	if _, err := Resolve(dir, "fid", "scan01.jpg", "absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolvePrefersFileID(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "fid123.json", "scan01_result.json")

	path, err := Resolve(dir, "fid123", "scan01.jpg", "")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if filepath.Base(path) != "fid123.json" {
		t.Fatalf("expected file-id match, got %s", path)
	}
}

func TestResolveByNormalizedStem(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "scan01_003_result.json", "other_001_result.json")

	path, err := Resolve(dir, "fid", "scan01.jpg", "")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if filepath.Base(path) != "scan01_003_result.json" {
		t.Fatalf("unexpected match: %s", path)
	}
}

func TestResolveAmbiguousFails(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "scan01_001_result.json", "scan01_002_result.json")

	_, err := Resolve(dir, "fid", "scan01.jpg", "")
	if !errors.Is(err, ErrAmbiguousContent) {
		t.Fatalf("expected ErrAmbiguousContent, got %v", err)
	}
	if !strings.Contains(err.Error(), "scan01_001_result.json") {
		t.Fatalf("error should name candidates: %v", err)
	}
}

func TestResolveEmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	if _, err := Resolve(dir, "fid", "scan01.jpg", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Missing stage directories behave like empty ones.
	if _, err := Resolve(filepath.Join(dir, "absent"), "fid", "scan01.jpg", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent dir, got %v", err)
	}
}

func TestWritePathDefaultsToFileID(t *testing.T) {
	dir := t.TempDir()

	path, err := WritePath(dir, "fid", "scan01.jpg", "")
	if err != nil {
		t.Fatalf("WritePath returned error: %v", err)
	}
	if filepath.Base(path) != "fid.json" {
		t.Fatalf("unexpected default path: %s", path)
	}

	writeFiles(t, dir, "scan01_result.json")
	path, err = WritePath(dir, "fid", "scan01.jpg", "")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "scan01_result.json" {
		t.Fatalf("expected reuse of existing payload, got %s", path)
	}
}

func TestWritePayloadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.json")

	if err := WritePayload(path, map[string]string{"text": "hello"}); err != nil {
		t.Fatalf("WritePayload returned error: %v", err)
	}
	data, err := ReadPayload(path)
	if err != nil {
		t.Fatalf("ReadPayload returned error: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("unexpected payload: %q", data)
	}

	if _, err := ReadPayload(filepath.Join(dir, "missing.json")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
