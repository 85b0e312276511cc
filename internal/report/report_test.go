package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"folio/internal/catalog"
	"folio/internal/docstore"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	root := t.TempDir()
	store, err := docstore.New(filepath.Join(root, "store"))
	if err != nil {
		t.Fatal(err)
	}
	layout := catalog.NewLayout(filepath.Join(root, "groups"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return catalog.New(store, layout, logger)
}

func writeStagePayload(t *testing.T, cat *catalog.Catalog, groupID string, stage catalog.Stage, name, body string) {
	t.Helper()
	dir := cat.Layout().StageDir(groupID, stage)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func seedGroup(t *testing.T, cat *catalog.Catalog, names ...string) catalog.Group {
	t.Helper()
	ctx := context.Background()
	group, err := cat.CreateGroup(ctx, "12", "3", "456")
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, name := range names {
		file, err := cat.AddFile(ctx, group.GroupID, name, "/tmp/"+name)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, file.FileID)
	}
	if err := cat.SetGroupIndex(ctx, group.GroupID, ids); err != nil {
		t.Fatal(err)
	}
	return group
}

func TestBuildRegionsAndEntities(t *testing.T) {
	cat := newTestCatalog(t)
	group := seedGroup(t, cat, "scan01.jpg", "scan02.jpg", "scan03.jpg")

	// scan01: one region, two entity types, a duplicated value.
	writeStagePayload(t, cat, group.GroupID, catalog.StageDone, "scan01_000_result.json", `{
		"regions": [{
			"corrected_text": "Иванов Иван, 1901",
			"named_entities": [
				{"type": "person", "value": "Иванов Иван"},
				{"type": "date", "value": "1901"},
				{"type": "person", "value": "Иванов Иван"}
			]
		}]
	}`)
	// scan02: flat payload, no entities.
	writeStagePayload(t, cat, group.GroupID, catalog.StageDone, "scan02_result.json", `{
		"text": "протокол заседания"
	}`)
	// scan03: no payload at all.

	b := NewBuilder(cat, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rep, err := b.Build(context.Background(), group.GroupID, catalog.StageDone, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(rep.Header) != len(defaultFields) {
		t.Fatalf("header: %v", rep.Header)
	}
	// scan01 contributes one row per entity type, scan02 and scan03 one each.
	if len(rep.Rows) != 4 {
		t.Fatalf("got %d rows: %v", len(rep.Rows), rep.Rows)
	}

	// [scan_no fond opis delo text entity_type entity_value extra]
	r0 := rep.Rows[0]
	if r0[0] != "1" || r0[1] != "12" || r0[2] != "3" || r0[3] != "456" {
		t.Fatalf("row 0 meta: %v", r0)
	}
	if r0[5] != "person" || r0[6] != "Иванов Иван" {
		t.Fatalf("row 0 entities: %v", r0)
	}
	if r1 := rep.Rows[1]; r1[5] != "date" || r1[6] != "1901" {
		t.Fatalf("row 1 entities: %v", r1)
	}
	if r2 := rep.Rows[2]; r2[0] != "2" || r2[4] != "протокол заседания" || r2[5] != "" {
		t.Fatalf("row 2: %v", r2)
	}
	if r3 := rep.Rows[3]; r3[0] != "3" || r3[4] != "" {
		t.Fatalf("row 3 (missing payload): %v", r3)
	}
}

func TestBuildEntityOptions(t *testing.T) {
	cat := newTestCatalog(t)
	group := seedGroup(t, cat, "scan01.jpg")
	writeStagePayload(t, cat, group.GroupID, catalog.StageDone, "scan01.json", `{
		"named_entities": [
			{"type": "place", "value": "Москва"},
			{"type": "person", "value": "Петров"},
			{"type": "person", "value": "Сидоров"},
			{"type": "person", "value": "Петров"}
		],
		"corrected_text": "t"
	}`)

	b := NewBuilder(cat, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rep, err := b.Build(context.Background(), group.GroupID, catalog.StageDone, Options{
		Fields:           []string{"entity_type", "entity_value", "bogus_field"},
		EntityTypesOrder: []string{"person", "place"},
		EntityJoiner:     "; ",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(rep.Header) != 2 {
		t.Fatalf("unknown field not dropped: %v", rep.Header)
	}
	if len(rep.Rows) != 2 {
		t.Fatalf("rows: %v", rep.Rows)
	}
	if rep.Rows[0][0] != "person" || rep.Rows[0][1] != "Петров; Сидоров" {
		t.Fatalf("ordered dedup row: %v", rep.Rows[0])
	}
	if rep.Rows[1][0] != "place" || rep.Rows[1][1] != "Москва" {
		t.Fatalf("trailing type row: %v", rep.Rows[1])
	}
}

func TestBuildKeepDuplicates(t *testing.T) {
	cat := newTestCatalog(t)
	group := seedGroup(t, cat, "scan01.jpg")
	writeStagePayload(t, cat, group.GroupID, catalog.StageProgress, "scan01.json", `{
		"named_entities": [
			{"type": "person", "value": "a"},
			{"type": "person", "value": "a"}
		]
	}`)

	b := NewBuilder(cat, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rep, err := b.Build(context.Background(), group.GroupID, catalog.StageProgress, Options{
		Fields:              []string{"entity_value"},
		KeepDuplicateValues: true,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(rep.Rows) != 1 || rep.Rows[0][0] != "a\na" {
		t.Fatalf("rows: %v", rep.Rows)
	}
}

func TestBuildUnknownGroup(t *testing.T) {
	cat := newTestCatalog(t)
	b := NewBuilder(cat, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := b.Build(context.Background(), "missing", catalog.StageDone, Options{})
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRenderFormats(t *testing.T) {
	rep := Report{
		GroupID: "g",
		Stage:   catalog.StageDone,
		Header:  []string{"A", "B"},
		Rows:    [][]string{{"1", "x"}, {"2", "y"}},
	}

	csvOut := Render(rep, FormatCSV)
	if !strings.Contains(csvOut, "A,B") || !strings.Contains(csvOut, "1,x") {
		t.Fatalf("csv output: %q", csvOut)
	}

	htmlOut := Render(rep, FormatHTML)
	if !strings.Contains(htmlOut, "<table") || !strings.Contains(htmlOut, "<td") {
		t.Fatalf("html output: %q", htmlOut)
	}

	tableOut := Render(rep, FormatTable)
	if !strings.Contains(tableOut, "1") || !strings.Contains(tableOut, "y") {
		t.Fatalf("table output: %q", tableOut)
	}
}

func TestParseFormat(t *testing.T) {
	for raw, want := range map[string]Format{
		"":      FormatCSV,
		"csv":   FormatCSV,
		"CSV":   FormatCSV,
		"table": FormatTable,
		"html":  FormatHTML,
	} {
		got, err := ParseFormat(raw)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", raw, got, err)
		}
	}
	if _, err := ParseFormat("xlsx"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestReportFilename(t *testing.T) {
	rep := Report{GroupID: "g1", Stage: catalog.StageDone}
	if got := rep.Filename("csv"); got != "report_g1_done.csv" {
		t.Fatalf("filename: %q", got)
	}
}
