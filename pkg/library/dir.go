package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"formarter/compliance/pkg/checklist"
)

// DirConfig contains configuration for a directory library.
type DirConfig struct {
	// Root is the library directory. Each subdirectory is a collection.
	Root string

	// Extensions lists the document file extensions.
	// Default: [".txt", ".md"]
	Extensions []string

	// DefaultContext applies to documents without a sidecar context.
	// Default: nil (applicability context missing)
	DefaultContext *checklist.Context
}

// entry is one indexed document file.
type entry struct {
	path       string
	collection string
}

// DirLibrary serves documents from a directory tree. A document's id is its
// path relative to Root without the extension, using forward slashes; its
// collection is the first path element. Metadata comes from a YAML sidecar
// with the same base name (doc.yaml or doc.yml next to doc.txt).
//
// The directory index is built on first use and cached until Invalidate.
type DirLibrary struct {
	config *DirConfig
	logger *slog.Logger

	mu          sync.RWMutex
	built       bool
	docs        map[string]entry
	collections map[string][]string
}

// NewDirLibrary creates a library over config.Root.
func NewDirLibrary(config *DirConfig) (*DirLibrary, error) {
	if config == nil || config.Root == "" {
		return nil, errors.New("library root cannot be empty")
	}
	info, err := os.Stat(config.Root)
	if err != nil {
		return nil, fmt.Errorf("library root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library root %s is not a directory", config.Root)
	}
	if len(config.Extensions) == 0 {
		config.Extensions = []string{".txt", ".md"}
	}

	return &DirLibrary{
		config: config,
		logger: slog.Default().With("component", "library.dir"),
	}, nil
}

// Root returns the library directory.
func (l *DirLibrary) Root() string {
	return l.config.Root
}

// Invalidate drops the cached index; the next call rescans the directory.
func (l *DirLibrary) Invalidate() {
	l.mu.Lock()
	l.built = false
	l.docs = nil
	l.collections = nil
	l.mu.Unlock()
	l.logger.Debug("library index invalidated")
}

// Get reads the document text and its sidecar.
func (l *DirLibrary) Get(ctx context.Context, id string) (*Document, error) {
	if err := l.ensureIndex(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	e, ok := l.docs[id]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}

	info, err := os.Stat(e.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("stat document %s: %w", id, err)
	}
	text, err := os.ReadFile(e.path)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", id, err)
	}

	doc := &Document{
		ID:         id,
		Name:       path.Base(id),
		Collection: e.collection,
		Text:       string(text),
		Context:    l.config.DefaultContext,
		ModifiedAt: info.ModTime().UTC(),
	}

	meta, err := l.sidecar(e.path)
	if err != nil {
		return nil, fmt.Errorf("document %s metadata: %w", id, err)
	}
	if meta != nil {
		if meta.Name != "" {
			doc.Name = meta.Name
		}
		if meta.Context != nil {
			doc.Context = meta.Context
		}
	}
	if doc.Context != nil {
		c := *doc.Context
		doc.Context = &c
	}
	return doc, nil
}

// List returns the document ids of a collection.
func (l *DirLibrary) List(ctx context.Context, collection string) ([]string, error) {
	if err := l.ensureIndex(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	ids, ok := l.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	return append([]string(nil), ids...), nil
}

// Collections returns the names of the top-level subdirectories that hold
// at least one document.
func (l *DirLibrary) Collections(ctx context.Context) ([]string, error) {
	if err := l.ensureIndex(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.collections))
	for name := range l.collections {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (l *DirLibrary) ensureIndex() error {
	l.mu.RLock()
	built := l.built
	l.mu.RUnlock()
	if built {
		return nil
	}

	docs, collections, err := l.scan()
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.docs = docs
	l.collections = collections
	l.built = true
	l.mu.Unlock()

	l.logger.Debug("library indexed", "documents", len(docs), "collections", len(collections))
	return nil
}

func (l *DirLibrary) scan() (map[string]entry, map[string][]string, error) {
	docs := make(map[string]entry)
	collections := make(map[string][]string)

	err := filepath.WalkDir(l.config.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != l.config.Root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !l.isDocument(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(l.config.Root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		id := strings.TrimSuffix(rel, path.Ext(rel))
		if prev, dup := docs[id]; dup {
			l.logger.Warn("duplicate document id, keeping first",
				"id", id, "kept", prev.path, "ignored", p)
			return nil
		}

		collection := ""
		if i := strings.IndexByte(id, '/'); i >= 0 {
			collection = id[:i]
		}
		docs[id] = entry{path: p, collection: collection}
		collections[collection] = append(collections[collection], id)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan library %s: %w", l.config.Root, err)
	}

	for _, ids := range collections {
		sort.Strings(ids)
	}
	return docs, collections, nil
}

func (l *DirLibrary) isDocument(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range l.config.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

func (l *DirLibrary) sidecar(docPath string) (*sidecar, error) {
	base := strings.TrimSuffix(docPath, filepath.Ext(docPath))
	for _, ext := range []string{".yaml", ".yml"} {
		meta, err := readSidecar(base + ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return meta, err
	}
	return nil, nil
}
