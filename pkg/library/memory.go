package library

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryLibrary holds documents in memory. It backs documents.json
// libraries, ad-hoc API submissions and tests.
type MemoryLibrary struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewMemoryLibrary creates an empty library.
func NewMemoryLibrary(docs ...*Document) *MemoryLibrary {
	lib := &MemoryLibrary{docs: make(map[string]*Document)}
	for _, d := range docs {
		lib.Add(d)
	}
	return lib
}

// Add inserts or replaces a document.
func (l *MemoryLibrary) Add(doc *Document) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.docs[doc.ID] = copyDocument(doc)
}

// Remove deletes a document and reports whether it existed.
func (l *MemoryLibrary) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.docs[id]
	delete(l.docs, id)
	return ok
}

// Get returns a copy of the document.
func (l *MemoryLibrary) Get(ctx context.Context, id string) (*Document, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	doc, ok := l.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return copyDocument(doc), nil
}

// List returns the ids of a collection's documents.
func (l *MemoryLibrary) List(ctx context.Context, collection string) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var ids []string
	for id, doc := range l.docs {
		if doc.Collection == collection {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	sort.Strings(ids)
	return ids, nil
}

// Collections returns the distinct non-empty collection names.
func (l *MemoryLibrary) Collections(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seen := make(map[string]bool)
	var names []string
	for _, doc := range l.docs {
		if doc.Collection != "" && !seen[doc.Collection] {
			seen[doc.Collection] = true
			names = append(names, doc.Collection)
		}
	}
	sort.Strings(names)
	return names, nil
}

func copyDocument(doc *Document) *Document {
	c := *doc
	if doc.Context != nil {
		ctx := *doc.Context
		c.Context = &ctx
	}
	return &c
}
