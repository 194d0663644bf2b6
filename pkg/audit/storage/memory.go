package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"formarter/compliance/pkg/audit"
)

// MemoryStorage implements audit.Store with an in-memory map. Records are
// lost on exit; it backs tests and the `storage.backend: memory` setting.
type MemoryStorage struct {
	records map[string]*audit.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*audit.Record),
	}
}

// Save stores a copy of rec.
func (s *MemoryStorage) Save(ctx context.Context, rec *audit.Record) error {
	if rec == nil || rec.SessionID == "" {
		return audit.NewStorageError("memory", "save", errors.New("record has no session id"))
	}
	if err := ctx.Err(); err != nil {
		return audit.NewStorageError("memory", "save", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.SessionID] = rec.Clone()
	return nil
}

// Get returns a copy of the record for sessionID.
func (s *MemoryStorage) Get(ctx context.Context, sessionID string) (*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", audit.ErrSessionNotFound, sessionID)
	}
	return rec.Clone(), nil
}

// Latest returns a copy of the newest record for documentID.
func (s *MemoryStorage) Latest(ctx context.Context, documentID string) (*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := latest(s.all(), documentID)
	if rec == nil {
		return nil, fmt.Errorf("%w: no audit for document %s", audit.ErrSessionNotFound, documentID)
	}
	return rec.Clone(), nil
}

// Query returns copies of the records matching query.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, err := selectRecords(s.all(), query)
	if err != nil {
		return nil, err
	}
	for i, rec := range found {
		found[i] = rec.Clone()
	}
	return found, nil
}

// Count returns the number of records matching query, ignoring pagination.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, err := selectRecords(s.all(), unpaged(query))
	if err != nil {
		return 0, err
	}
	return int64(len(found)), nil
}

// Delete removes the records matching query, ignoring pagination.
func (s *MemoryStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := selectRecords(s.all(), unpaged(query))
	if err != nil {
		return 0, err
	}
	for _, rec := range found {
		delete(s.records, rec.SessionID)
	}
	return int64(len(found)), nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}

func (s *MemoryStorage) all() []*audit.Record {
	out := make([]*audit.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out
}

func unpaged(query *audit.Query) *audit.Query {
	if query == nil {
		return nil
	}
	q := *query
	q.Limit = 0
	q.Offset = 0
	return &q
}
