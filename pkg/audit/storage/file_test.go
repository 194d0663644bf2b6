package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"formarter/compliance/pkg/audit"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"motion", "motion.json"},
		{"motions/tro-draft", "motions_tro-draft.json"},
		{`cases\2024\tro`, "cases_2024_tro.json"},
		{"", "_.json"},
		{"..", "_...json"},
	}
	for _, tt := range tests {
		if got := SafeName(tt.id); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestFileStorage_OneFilePerDocument(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStorage(&FileConfig{Dir: dir})
	if err != nil {
		t.Fatalf("NewFileStorage() error = %v", err)
	}
	ctx := context.Background()

	for _, rec := range []*audit.Record{
		makeRecord("s1", "motions/a", 0, 50),
		makeRecord("s2", "motions/a", 1, 60),
		makeRecord("s3", "motions/b", 2, 70),
	} {
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 2 || names[0] != "motions_a.json" || names[1] != "motions_b.json" {
		t.Errorf("files = %v, want [motions_a.json motions_b.json]", names)
	}
}

func TestFileStorage_MaxSessions(t *testing.T) {
	store, err := NewFileStorage(&FileConfig{Dir: t.TempDir(), MaxSessionsPerDocument: 2})
	if err != nil {
		t.Fatalf("NewFileStorage() error = %v", err)
	}
	ctx := context.Background()
	for i, id := range []string{"s1", "s2", "s3"} {
		_ = store.Save(ctx, makeRecord(id, "doc", i, 50))
	}

	if _, err := store.Get(ctx, "s1"); !errors.Is(err, audit.ErrSessionNotFound) {
		t.Errorf("oldest session should be dropped, Get() error = %v", err)
	}
	n, _ := store.Count(ctx, nil)
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestFileStorage_Current(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStorage(&FileConfig{Dir: dir})
	if err != nil {
		t.Fatalf("NewFileStorage() error = %v", err)
	}
	ctx := context.Background()

	if _, err := store.Current(ctx); !errors.Is(err, audit.ErrSessionNotFound) {
		t.Errorf("Current() on empty store error = %v, want ErrSessionNotFound", err)
	}

	if err := store.SaveCurrent(ctx, makeRecord("s1", "current", 0, 50)); err != nil {
		t.Fatalf("SaveCurrent() error = %v", err)
	}
	got, err := store.Current(ctx)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if got.SessionID != "s1" {
		t.Errorf("Current() = %s, want s1", got.SessionID)
	}

	// A document whose id matches the record name does not clash.
	if err := store.Save(ctx, makeRecord("s2", "current", 1, 90)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, _ = store.Current(ctx)
	if got.SessionID != "s1" {
		t.Errorf("Current() after Save = %s, want s1", got.SessionID)
	}

	var _ audit.CurrentStore = store
}

func TestFileStorage_DeleteRemovesEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStorage(&FileConfig{Dir: dir})
	ctx := context.Background()
	_ = store.Save(ctx, makeRecord("s1", "doc", 0, 50))

	n, err := store.Delete(ctx, &audit.Query{DocumentID: "doc"})
	if err != nil || n != 1 {
		t.Fatalf("Delete() = %d, %v; want 1, nil", n, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "doc.json")); !os.IsNotExist(err) {
		t.Errorf("empty document file should be removed, stat error = %v", err)
	}
}

func TestFileStorage_SkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStorage(&FileConfig{Dir: dir})
	ctx := context.Background()
	_ = store.Save(ctx, makeRecord("s1", "good", 0, 50))
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	recs, err := store.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("Query() returned %d records, want 1", len(recs))
	}
}
