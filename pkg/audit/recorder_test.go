package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"formarter/compliance/pkg/checklist"
)

// flakyStore fails its first N saves and keeps the rest in memory.
type flakyStore struct {
	mu       sync.Mutex
	failures int
	calls    int
	saved    map[string]*Record
}

func newFlakyStore(failures int) *flakyStore {
	return &flakyStore{failures: failures, saved: make(map[string]*Record)}
}

func (f *flakyStore) Save(ctx context.Context, rec *Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return NewStorageError("flaky", "save", errors.New("disk full"))
	}
	f.saved[rec.SessionID] = rec.Clone()
	return nil
}

func (f *flakyStore) Get(ctx context.Context, id string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.saved[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return rec.Clone(), nil
}

func (f *flakyStore) Latest(ctx context.Context, documentID string) (*Record, error) {
	return nil, ErrSessionNotFound
}

func (f *flakyStore) Query(ctx context.Context, q *Query) ([]*Record, error) { return nil, nil }
func (f *flakyStore) Count(ctx context.Context, q *Query) (int64, error)     { return 0, nil }
func (f *flakyStore) Delete(ctx context.Context, q *Query) (int64, error)    { return 0, nil }
func (f *flakyStore) Close() error                                           { return nil }

func TestRecorder_PersistsEveryStep(t *testing.T) {
	store := newFlakyStore(0)
	rec := NewRecorder(store, nil)
	ctx := context.Background()

	s := NewSession("doc-1", SessionOptions{TotalItems: 2})
	_ = s.RecordResult(result(1, checklist.StatusPass, checklist.SeverityNormal))
	if err := rec.Persist(ctx, s); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	saved, err := store.Get(ctx, s.ID())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if saved.Status != StateInProgress || saved.Progress.ItemsChecked != 1 {
		t.Errorf("partial record = %s/%d, want in_progress/1", saved.Status, saved.Progress.ItemsChecked)
	}

	_ = s.RecordResult(result(2, checklist.StatusFail, checklist.SeverityNormal))
	_ = s.Finalize()
	if err := rec.Persist(ctx, s); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	saved, _ = store.Get(ctx, s.ID())
	if saved.Status != StateCompleted || len(saved.Results) != 2 {
		t.Errorf("final record = %s with %d results, want completed with 2", saved.Status, len(saved.Results))
	}
}

func TestRecorder_RetriesOnce(t *testing.T) {
	store := newFlakyStore(1)
	var attempts int
	rec := NewRecorder(store, &RecorderConfig{
		Retries:      1,
		WriteTimeout: time.Second,
		OnPersist:    func(d time.Duration, n int, err error) { attempts = n },
	})

	s := NewSession("doc-1", SessionOptions{TotalItems: 1})
	if err := rec.Persist(context.Background(), s); err != nil {
		t.Fatalf("Persist() error = %v, want success on retry", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if len(s.Snapshot().Warnings) != 0 {
		t.Error("successful retry should not add a warning")
	}
}

func TestRecorder_FailureBecomesWarning(t *testing.T) {
	store := newFlakyStore(10)
	rec := NewRecorder(store, nil)

	s := NewSession("doc-1", SessionOptions{TotalItems: 1})
	_ = s.RecordResult(result(1, checklist.StatusPass, checklist.SeverityNormal))

	err := rec.Persist(context.Background(), s)
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("Persist() error = %v, want *PersistenceError", err)
	}
	if perr.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", perr.Attempts)
	}
	var serr *StorageError
	if !errors.As(err, &serr) {
		t.Errorf("Persist() error should wrap the storage error, got %v", err)
	}
	if store.calls != 2 {
		t.Errorf("store calls = %d, want 2", store.calls)
	}

	snap := s.Snapshot()
	if len(snap.Warnings) != 1 || !strings.Contains(snap.Warnings[0], "not persisted") {
		t.Errorf("Warnings = %v, want one persistence warning", snap.Warnings)
	}
	if len(snap.Results) != 1 {
		t.Errorf("in-memory results lost: %d", len(snap.Results))
	}

	// The session stays usable.
	if err := s.Finalize(); err != nil {
		t.Errorf("Finalize() after persistence failure error = %v", err)
	}
}

func TestRecorder_NilStore(t *testing.T) {
	var rec *Recorder
	if err := rec.Persist(context.Background(), NewSession("doc", SessionOptions{})); err != nil {
		t.Errorf("nil recorder Persist() error = %v", err)
	}
}
