package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"formarter/compliance/pkg/audit"
)

// FileConfig contains configuration for the file storage backend.
type FileConfig struct {
	// Dir is the directory holding per-document record files.
	// Default: "data/audits"
	Dir string

	// MaxSessionsPerDocument caps the history kept in each document file.
	// Oldest sessions are dropped first. Zero keeps everything.
	// Default: 0
	MaxSessionsPerDocument int
}

// DefaultFileConfig returns the default file storage configuration.
func DefaultFileConfig() *FileConfig {
	return &FileConfig{Dir: "data/audits"}
}

// currentFile is the interactive current-session record, kept in a
// subdirectory so no document id can map onto it.
const currentFile = "session/current.json"

// documentFile is the on-disk layout of one document's records.
type documentFile struct {
	DocumentID string          `json:"document_id"`
	Sessions   []*audit.Record `json:"sessions"`
}

// FileStorage implements audit.Store with one JSON file per document, so
// workers auditing different documents never write the same file. Writes
// go to a temporary file that is renamed into place.
type FileStorage struct {
	dir    string
	config *FileConfig
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStorage creates the storage directory if needed.
func NewFileStorage(config *FileConfig) (*FileStorage, error) {
	if config == nil {
		config = DefaultFileConfig()
	}
	if config.Dir == "" {
		return nil, audit.NewStorageError("file", "open", errors.New("directory cannot be empty"))
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, audit.NewStorageError("file", "open", err)
	}

	logger := slog.Default().With("component", "audit.storage.file")
	logger.Info("file storage initialized", "dir", config.Dir)

	return &FileStorage{
		dir:    config.Dir,
		config: config,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// SafeName maps a document id to a file name: path separators become
// underscores.
func SafeName(documentID string) string {
	name := strings.NewReplacer("/", "_", `\`, "_").Replace(documentID)
	if name == "" || name == "." || name == ".." {
		name = "_" + name
	}
	return name + ".json"
}

// Path returns the file that holds documentID's records.
func (s *FileStorage) Path(documentID string) string {
	return filepath.Join(s.dir, SafeName(documentID))
}

// Save inserts or replaces rec in its document file.
func (s *FileStorage) Save(ctx context.Context, rec *audit.Record) error {
	if rec == nil || rec.SessionID == "" {
		return audit.NewStorageError("file", "save", errors.New("record has no session id"))
	}
	if err := ctx.Err(); err != nil {
		return audit.NewStorageError("file", "save", err)
	}

	unlock := s.lock(rec.DocumentID)
	defer unlock()

	path := s.Path(rec.DocumentID)
	doc, err := readDocumentFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return audit.NewStorageError("file", "save", err)
	}
	if doc == nil {
		doc = &documentFile{DocumentID: rec.DocumentID}
	}

	replaced := false
	for i, existing := range doc.Sessions {
		if existing.SessionID == rec.SessionID {
			doc.Sessions[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Sessions = append(doc.Sessions, rec)
	}
	sort.SliceStable(doc.Sessions, func(i, j int) bool {
		return doc.Sessions[i].CreatedAt.Before(doc.Sessions[j].CreatedAt)
	})
	if n := s.config.MaxSessionsPerDocument; n > 0 && len(doc.Sessions) > n {
		doc.Sessions = doc.Sessions[len(doc.Sessions)-n:]
	}

	if err := writeJSON(path, doc); err != nil {
		return audit.NewStorageError("file", "save", err)
	}
	return nil
}

// SaveCurrent writes rec as the current-session record. Only a single
// interactive audit should use it; batch audits rely on per-document files.
func (s *FileStorage) SaveCurrent(ctx context.Context, rec *audit.Record) error {
	if err := ctx.Err(); err != nil {
		return audit.NewStorageError("file", "save_current", err)
	}
	unlock := s.lock(currentFile)
	defer unlock()

	path := filepath.Join(s.dir, filepath.FromSlash(currentFile))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return audit.NewStorageError("file", "save_current", err)
	}
	if err := writeJSON(path, rec); err != nil {
		return audit.NewStorageError("file", "save_current", err)
	}
	return nil
}

// Current returns the current-session record.
func (s *FileStorage) Current(ctx context.Context) (*audit.Record, error) {
	unlock := s.lock(currentFile)
	defer unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(currentFile)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no current session", audit.ErrSessionNotFound)
	}
	if err != nil {
		return nil, audit.NewStorageError("file", "current", err)
	}
	var rec audit.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, audit.NewStorageError("file", "current", err)
	}
	return &rec, nil
}

// Get scans the document files for sessionID.
func (s *FileStorage) Get(ctx context.Context, sessionID string) (*audit.Record, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.SessionID == sessionID {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", audit.ErrSessionNotFound, sessionID)
}

// Latest reads the document's file and returns its newest record.
func (s *FileStorage) Latest(ctx context.Context, documentID string) (*audit.Record, error) {
	unlock := s.lock(documentID)
	doc, err := readDocumentFile(s.Path(documentID))
	unlock()

	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no audit for document %s", audit.ErrSessionNotFound, documentID)
	}
	if err != nil {
		return nil, audit.NewStorageError("file", "latest", err)
	}
	rec := latest(doc.Sessions, documentID)
	if rec == nil {
		return nil, fmt.Errorf("%w: no audit for document %s", audit.ErrSessionNotFound, documentID)
	}
	return rec, nil
}

// Query returns records matching query across all document files.
func (s *FileStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return selectRecords(records, query)
}

// Count returns the number of records matching query, ignoring pagination.
func (s *FileStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	records, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	found, err := selectRecords(records, unpaged(query))
	if err != nil {
		return 0, err
	}
	return int64(len(found)), nil
}

// Delete rewrites each document file without the matching records and
// removes files left empty.
func (s *FileStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	q := unpaged(query)
	if q == nil {
		q = &audit.Query{}
	}
	if err := validateQuery(q); err != nil {
		return 0, err
	}

	paths, err := s.documentPaths()
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return deleted, audit.NewStorageError("file", "delete", err)
		}
		n, err := s.deleteFrom(path, q)
		if err != nil {
			return deleted, audit.NewStorageError("file", "delete", err)
		}
		deleted += n
	}
	return deleted, nil
}

func (s *FileStorage) deleteFrom(path string, q *audit.Query) (int64, error) {
	doc, err := readDocumentFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	unlock := s.lock(doc.DocumentID)
	defer unlock()

	// Re-read under the document lock.
	doc, err = readDocumentFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	kept := doc.Sessions[:0]
	var n int64
	for _, rec := range doc.Sessions {
		if q.Matches(rec) {
			n++
			continue
		}
		kept = append(kept, rec)
	}
	if n == 0 {
		return 0, nil
	}
	if len(kept) == 0 {
		return n, os.Remove(path)
	}
	doc.Sessions = kept
	return n, writeJSON(path, doc)
}

// Close is a no-op.
func (s *FileStorage) Close() error {
	return nil
}

func (s *FileStorage) load(ctx context.Context) ([]*audit.Record, error) {
	paths, err := s.documentPaths()
	if err != nil {
		return nil, err
	}

	var records []*audit.Record
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, audit.NewStorageError("file", "query", err)
		}
		doc, err := readDocumentFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			s.logger.Warn("skipping unreadable audit file", "path", path, "error", err)
			continue
		}
		records = append(records, doc.Sessions...)
	}
	return records, nil
}

func (s *FileStorage) documentPaths() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, audit.NewStorageError("file", "list", err)
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, name))
	}
	return paths, nil
}

// lock serializes writers of one file. Two document ids that sanitize to
// the same name share a lock.
func (s *FileStorage) lock(documentID string) func() {
	key := SafeName(documentID)
	if documentID == currentFile {
		key = currentFile
	}

	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func readDocumentFile(path string) (*documentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc documentFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &doc, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
