package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/audit/storage"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, store audit.Store, document string, ages ...int) {
	t.Helper()
	for i, days := range ages {
		created := now.AddDate(0, 0, -days)
		rec := &audit.Record{
			SessionID:  fmt.Sprintf("%s-%d", document, i),
			DocumentID: document,
			Status:     audit.StateCompleted,
			CreatedAt:  created,
			UpdatedAt:  created,
		}
		if err := store.Save(context.Background(), rec); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
}

func newTestPruner(store audit.Store, config *Config) *Pruner {
	p := NewPruner(store, config)
	p.now = func() time.Time { return now }
	return p
}

func TestPruner_Prune(t *testing.T) {
	tests := []struct {
		name        string
		config      *Config
		wantDeleted int64
		wantLeft    int64
	}{
		{"age only", &Config{RetentionDays: 30}, 3, 3},
		{"keep forever", &Config{}, 0, 6},
		{"per document only", &Config{KeepPerDocument: 1}, 4, 2},
		{"age then per document", &Config{RetentionDays: 30, KeepPerDocument: 1}, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStorage()
			seed(t, store, "doc-a", 1, 10, 40)
			seed(t, store, "doc-b", 2, 60, 90)

			deleted, err := newTestPruner(store, tt.config).Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("Prune() = %d, want %d", deleted, tt.wantDeleted)
			}
			left, _ := store.Count(context.Background(), nil)
			if left != tt.wantLeft {
				t.Errorf("remaining = %d, want %d", left, tt.wantLeft)
			}
		})
	}
}

func TestPruner_KeepsNewestPerDocument(t *testing.T) {
	store := storage.NewMemoryStorage()
	seed(t, store, "doc", 5, 1, 3)

	if _, err := newTestPruner(store, &Config{KeepPerDocument: 1}).Prune(context.Background()); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	latest, err := store.Latest(context.Background(), "doc")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.SessionID != "doc-1" {
		t.Errorf("kept %s, want doc-1 (newest)", latest.SessionID)
	}
}

func TestPruner_Archive(t *testing.T) {
	store := storage.NewMemoryStorage()
	seed(t, store, "doc", 1, 100, 200)
	dir := filepath.Join(t.TempDir(), "archives")

	p := newTestPruner(store, &Config{RetentionDays: 30, ArchiveBeforeDelete: true, ArchivePath: dir})
	if _, err := p.Prune(context.Background()); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "audits-age-*.json"))
	if err != nil || len(files) != 1 {
		t.Fatalf("archive files = %v (err %v), want 1", files, err)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	var archived []audit.Record
	if err := json.Unmarshal(data, &archived); err != nil {
		t.Fatalf("archive is not valid JSON: %v", err)
	}
	if len(archived) != 2 {
		t.Errorf("archived %d records, want 2", len(archived))
	}
}
