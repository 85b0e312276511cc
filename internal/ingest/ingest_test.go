package ingest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func buildZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	for name, body := range entries {
		if strings.HasSuffix(name, "/") {
			if _, err := w.Create(name); err != nil {
				t.Fatal(err)
			}
			continue
		}
		entry, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractZipFiltersJunkAndExtensions(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"scan01.jpg":            "jpeg bytes",
		"scan02.png":            "png bytes",
		"notes.txt":             "not an image",
		"nested/scan03.tiff":    "tiff bytes",
		"__MACOSX/scan01.jpg":   "resource fork",
		"__MACOSX/":             "",
		"._scan02.png":          "resource fork",
		".DS_Store":             "finder",
		"nested/.DS_Store":      "finder",
		"nested/._scan03.tiff":  "resource fork",
		"empty_dir/":            "",
		"UPPER.JPG":             "case insensitive ext",
		"nested/deep/scan4.pdf": "pdf bytes",
	})

	dest := t.TempDir()
	got, err := ExtractZip(archive, dest, []string{".jpg", ".jpeg", ".png", ".tiff", ".pdf"})
	if err != nil {
		t.Fatalf("ExtractZip: %v", err)
	}

	want := []string{
		filepath.Join(dest, "UPPER.JPG"),
		filepath.Join(dest, "nested", "deep", "scan4.pdf"),
		filepath.Join(dest, "nested", "scan03.tiff"),
		filepath.Join(dest, "scan01.jpg"),
		filepath.Join(dest, "scan02.png"),
	}
	if len(got) != len(want) {
		t.Fatalf("extracted %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("extracted[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	body, err := os.ReadFile(filepath.Join(dest, "nested", "scan03.tiff"))
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "tiff bytes" {
		t.Fatalf("unexpected content: %q", body)
	}
	if _, err := os.Stat(filepath.Join(dest, "notes.txt")); !os.IsNotExist(err) {
		t.Fatal("disallowed extension was extracted")
	}
	if _, err := os.Stat(filepath.Join(dest, ".DS_Store")); !os.IsNotExist(err) {
		t.Fatal("finder metadata was extracted")
	}
}

func TestExtractZipSkipsEscapingEntries(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"../evil.jpg": "outside",
		"ok.jpg":      "inside",
	})

	parent := t.TempDir()
	dest := filepath.Join(parent, "raw")
	got, err := ExtractZip(archive, dest, []string{".jpg"})
	if err != nil {
		t.Fatalf("ExtractZip: %v", err)
	}
	if len(got) != 1 || filepath.Base(got[0]) != "ok.jpg" {
		t.Fatalf("extracted %v", got)
	}
	if _, err := os.Stat(filepath.Join(parent, "evil.jpg")); !os.IsNotExist(err) {
		t.Fatal("entry escaped the destination directory")
	}
}

func TestExtractZipEmptyArchive(t *testing.T) {
	archive := buildZip(t, map[string]string{})
	got, err := ExtractZip(archive, t.TempDir(), []string{".jpg"})
	if err != nil {
		t.Fatalf("ExtractZip: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("extracted %v from empty archive", got)
	}
}

func TestExtractZipBadArchive(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(bad, []byte("this is not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractZip(bad, t.TempDir(), []string{".jpg"}); err == nil {
		t.Fatal("expected error for malformed archive")
	}
}

func TestSpoolArchive(t *testing.T) {
	path, cleanup, err := SpoolArchive(strings.NewReader("archive bytes"))
	if err != nil {
		t.Fatalf("SpoolArchive: %v", err)
	}
	defer cleanup()

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "archive bytes" {
		t.Fatalf("unexpected spool content: %q", body)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("cleanup did not remove the spool file")
	}
}

func TestIsTrashMember(t *testing.T) {
	cases := map[string]bool{
		"__MACOSX/a.jpg":     true,
		"._a.jpg":            true,
		"nested/._a.jpg":     true,
		".DS_Store":          true,
		"nested/.DS_Store":   true,
		"scan.jpg":           false,
		"nested/scan.jpg":    false,
		"not__MACOSX/a.jpg":  false,
		"dotless/DS_Store.x": false,
	}
	for name, want := range cases {
		if got := IsTrashMember(name); got != want {
			t.Errorf("IsTrashMember(%q) = %v, want %v", name, got, want)
		}
	}
}
