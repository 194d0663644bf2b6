package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"formarter/compliance/pkg/checklist"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func createTestLibrary(t *testing.T) (*DirLibrary, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "motions", "tro-draft.txt"), "UNITED STATES DISTRICT COURT")
	writeFile(t, filepath.Join(root, "motions", "tro-draft.yaml"), "name: TRO Draft\ncontext:\n  is_ex_parte: true\n")
	writeFile(t, filepath.Join(root, "motions", "tro-final.md"), "final")
	writeFile(t, filepath.Join(root, "motions", "notes.pdf"), "ignored")
	writeFile(t, filepath.Join(root, "exhibits", "decl.txt"), "declaration")
	writeFile(t, filepath.Join(root, ".hidden", "x.txt"), "hidden")
	writeFile(t, filepath.Join(root, "loose.txt"), "root level")

	lib, err := NewDirLibrary(&DirConfig{Root: root})
	if err != nil {
		t.Fatalf("NewDirLibrary() error = %v", err)
	}
	return lib, root
}

func TestDirLibrary_Get(t *testing.T) {
	lib, _ := createTestLibrary(t)
	ctx := context.Background()

	doc, err := lib.Get(ctx, "motions/tro-draft")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Name != "TRO Draft" || doc.Collection != "motions" || doc.Text != "UNITED STATES DISTRICT COURT" {
		t.Errorf("Get() = %+v", doc)
	}
	want := &checklist.Context{IsExParte: true}
	if diff := cmp.Diff(want, doc.Context); diff != "" {
		t.Errorf("Context mismatch (-want +got):\n%s", diff)
	}

	plain, err := lib.Get(ctx, "motions/tro-final")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if plain.Name != "tro-final" || plain.Context != nil {
		t.Errorf("document without sidecar = %+v, want base name and nil context", plain)
	}

	for _, id := range []string{"motions/notes", ".hidden/x", "motions/missing", "../etc/passwd"} {
		if _, err := lib.Get(ctx, id); !errors.Is(err, ErrDocumentNotFound) {
			t.Errorf("Get(%q) error = %v, want ErrDocumentNotFound", id, err)
		}
	}
}

func TestDirLibrary_ListAndCollections(t *testing.T) {
	lib, _ := createTestLibrary(t)
	ctx := context.Background()

	ids, err := lib.List(ctx, "motions")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if diff := cmp.Diff([]string{"motions/tro-draft", "motions/tro-final"}, ids); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	if _, err := lib.List(ctx, "nope"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("List(unknown) error = %v, want ErrCollectionNotFound", err)
	}

	names, err := lib.Collections(ctx)
	if err != nil {
		t.Fatalf("Collections() error = %v", err)
	}
	if diff := cmp.Diff([]string{"exhibits", "motions"}, names); diff != "" {
		t.Errorf("Collections() mismatch (-want +got):\n%s", diff)
	}
}

func TestDirLibrary_DefaultContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "c", "a.txt"), "a")
	writeFile(t, filepath.Join(root, "c", "b.txt"), "b")
	writeFile(t, filepath.Join(root, "c", "b.yml"), "context:\n  is_urgent: true\n")

	lib, err := NewDirLibrary(&DirConfig{Root: root, DefaultContext: &checklist.Context{HasCaseProfile: true}})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := lib.Get(context.Background(), "c/a")
	b, _ := lib.Get(context.Background(), "c/b")
	if a.Context == nil || !a.Context.HasCaseProfile {
		t.Errorf("a.Context = %+v, want default", a.Context)
	}
	if b.Context == nil || !b.Context.IsUrgent || b.Context.HasCaseProfile {
		t.Errorf("b.Context = %+v, want sidecar context to replace the default", b.Context)
	}
}

func TestDirLibrary_BadSidecar(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "c", "a.txt"), "a")
	writeFile(t, filepath.Join(root, "c", "a.yaml"), "contxt: {}\n")

	lib, _ := NewDirLibrary(&DirConfig{Root: root})
	_, err := lib.Get(context.Background(), "c/a")
	if err == nil || errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Get() error = %v, want a metadata error", err)
	}
}

func TestDirLibrary_Invalidate(t *testing.T) {
	lib, root := createTestLibrary(t)
	ctx := context.Background()
	if _, err := lib.List(ctx, "motions"); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(root, "motions", "tro-amended.txt"), "amended")
	ids, _ := lib.List(ctx, "motions")
	if len(ids) != 2 {
		t.Errorf("cached List() = %v, want the stale index", ids)
	}

	lib.Invalidate()
	ids, _ = lib.List(ctx, "motions")
	if len(ids) != 3 {
		t.Errorf("List() after Invalidate = %v, want 3 ids", ids)
	}
}

func TestNewDirLibrary_Errors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f.txt")
	writeFile(t, file, "x")
	for _, cfg := range []*DirConfig{nil, {Root: ""}, {Root: file}, {Root: filepath.Join(file, "missing")}} {
		if _, err := NewDirLibrary(cfg); err == nil {
			t.Errorf("NewDirLibrary(%+v) expected error", cfg)
		}
	}
}

func TestLoadDocumentsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.json")
	writeFile(t, path, `{
  "documents": [
    {"id": "d2", "name": "Emergency TRO", "text_content": "b", "case_profile_index": 0,
     "custom_title": "EMERGENCY EX PARTE MOTION", "modified_at": "2024-03-01T10:00:00.123456"},
    {"id": "d1", "name": "TRO", "text_content": "a", "case_profile_index": 1, "case_id": "178"},
    {"id": "", "name": "broken"}
  ]
}`)

	lib, err := LoadDocumentsJSON(path)
	if err != nil {
		t.Fatalf("LoadDocumentsJSON() error = %v", err)
	}
	ctx := context.Background()

	d1, err := lib.Get(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if d1.Collection != "case-178" || !d1.Context.HasCaseProfile || d1.Context.IsExParte {
		t.Errorf("d1 = %+v ctx %+v", d1, d1.Context)
	}
	d2, _ := lib.Get(ctx, "d2")
	if d2.Collection != UncategorizedCollection || !d2.Context.IsExParte || !d2.Context.IsUrgent || d2.Context.HasCaseProfile {
		t.Errorf("d2 = %+v ctx %+v", d2, d2.Context)
	}
	if d2.ModifiedAt.IsZero() {
		t.Error("d2.ModifiedAt not parsed")
	}

	names, _ := lib.Collections(ctx)
	if diff := cmp.Diff([]string{"case-178", UncategorizedCollection}, names); diff != "" {
		t.Errorf("Collections() mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryLibrary_CopiesDocuments(t *testing.T) {
	lib := NewMemoryLibrary(&Document{ID: "a", Collection: "c", Context: &checklist.Context{}})
	doc, _ := lib.Get(context.Background(), "a")
	doc.Context.IsExParte = true
	doc.Text = "changed"

	again, _ := lib.Get(context.Background(), "a")
	if again.Context.IsExParte || again.Text != "" {
		t.Errorf("library document mutated through a returned copy: %+v", again)
	}
	if !lib.Remove("a") || lib.Remove("a") {
		t.Error("Remove() should report existence once")
	}
}

type countingTarget struct{ n chan struct{} }

func (c *countingTarget) Invalidate() { c.n <- struct{}{} }

func TestWatcher_InvalidatesOnChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "motions", "a.txt"), "a")

	target := &countingTarget{n: make(chan struct{}, 10)}
	w, err := NewWatcher(target, &WatcherConfig{Root: root, DebounceInterval: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}()

	// Allow the watches to be registered.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(root, "motions", "b.txt"), "b")

	select {
	case <-target.n:
	case <-time.After(3 * time.Second):
		t.Fatal("library was not invalidated after a file change")
	}
	if w.Invalidations() < 1 {
		t.Errorf("Invalidations() = %d, want >= 1", w.Invalidations())
	}
}
