package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type testDoc struct {
	Name    string `json:"name"`
	Counter int    `json:"counter"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return store
}

func TestCreateAndRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := testDoc{Name: "scan01", Counter: 1}
	if err := store.Create(ctx, "files/abc", want, false); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	var got testDoc
	if err := store.Read(ctx, "files/abc", &got); err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestCreateWithoutOverwriteFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "k", testDoc{}, false); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	err := store.Create(ctx, "k", testDoc{}, false)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := store.Create(ctx, "k", testDoc{Name: "v2"}, true); err != nil {
		t.Fatalf("overwrite Create: %v", err)
	}
}

func TestReadMissingAndCorrupt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var doc testDoc
	if err := store.Read(ctx, "missing", &doc); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	path := filepath.Join(store.BaseDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.Read(ctx, "broken", &doc); !errors.Is(err, ErrCorruptDocument) {
		t.Fatalf("expected ErrCorruptDocument, got %v", err)
	}
}

func TestKeySandbox(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"../escape", "a/../../b", "/etc/passwd", "", "  "} {
		err := store.Create(ctx, key, testDoc{}, false)
		if !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}

	// Dotted segments that stay inside the sandbox are fine.
	if err := store.Create(ctx, "groups/a/../b", testDoc{}, false); err != nil {
		t.Fatalf("in-sandbox traversal rejected: %v", err)
	}
}

func TestDeleteSemantics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Delete(ctx, "gone", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "gone", true); err != nil {
		t.Fatalf("missingOK delete: %v", err)
	}

	if err := store.Create(ctx, "doomed", testDoc{}, false); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "doomed", false); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	exists, err := store.Exists(ctx, "doomed")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("document still present after delete")
	}
}

func TestListPrefixAndRecursion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"files/a", "files/b", "groups/g1", "group_index/g1"} {
		if err := store.Create(ctx, key, testDoc{}, false); err != nil {
			t.Fatal(err)
		}
	}
	// A leftover temp file must never be listed.
	if err := os.WriteFile(filepath.Join(store.BaseDir(), "files", ".tmp_x.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	keys, err := store.List(ctx, "files", false)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "files/a" || keys[1] != "files/b" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	all, err := store.List(ctx, "", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 keys, got %v", all)
	}

	none, err := store.List(ctx, "absent", true)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty list for absent prefix, got %v, %v", none, err)
	}
}

func TestReplaceOptimisticLock(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "k", testDoc{Counter: 1}, false); err != nil {
		t.Fatal(err)
	}
	observed, err := store.Stat(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}

	// A replace that completes after the version was observed invalidates it.
	// Sleep past filesystems with coarse mtime granularity.
	time.Sleep(10 * time.Millisecond)
	if _, err := store.Replace(ctx, "k", testDoc{Counter: 2}, nil); err != nil {
		t.Fatal(err)
	}

	_, err = store.Replace(ctx, "k", testDoc{Counter: 3}, &observed)
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}

	current, err := store.Stat(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Replace(ctx, "k", testDoc{Counter: 3}, &current); err != nil {
		t.Fatalf("replace with current version: %v", err)
	}
}

func TestReplaceMissingWithVersionFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v := Version(42)
	if _, err := store.Replace(ctx, "ghost", testDoc{}, &v); !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
}

func TestUpdateSerializesConcurrentIncrements(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "counter", testDoc{}, false); err != nil {
		t.Fatal(err)
	}

	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "counter", func(current json.RawMessage) (any, error) {
				var doc testDoc
				if err := json.Unmarshal(current, &doc); err != nil {
					return nil, err
				}
				doc.Counter++
				return doc, nil
			}, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent update: %v", err)
		}
	}

	var doc testDoc
	if err := store.Read(ctx, "counter", &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Counter != workers {
		t.Fatalf("lost updates: got %d want %d", doc.Counter, workers)
	}
}

func TestUpdatePatchErrorLeavesDocumentUntouched(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "k", testDoc{Name: "original"}, false); err != nil {
		t.Fatal(err)
	}
	_, err := store.Update(ctx, "k", func(json.RawMessage) (any, error) {
		return nil, errors.New("boom")
	}, nil)
	if err == nil {
		t.Fatal("expected patch error")
	}

	var doc testDoc
	if err := store.Read(ctx, "k", &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Name != "original" {
		t.Fatalf("document mutated after failed patch: %+v", doc)
	}
}

func TestWrittenDocumentIsPrettyPrinted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "k", testDoc{Name: "x"}, false); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(store.BaseDir(), "k.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n  \"name\"") {
		t.Fatalf("expected indented JSON, got %q", data)
	}
}

func TestAtomicWriteLeavesNoTempOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := store.Create(ctx, "k", testDoc{Counter: i}, true); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(store.BaseDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".tmp_") {
			t.Fatalf("temporary file left behind: %s", entry.Name())
		}
	}
}

func TestCanceledContextRefusesWork(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Create(ctx, "k", testDoc{}, false); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
