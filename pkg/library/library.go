package library

import (
	"context"
	"errors"
	"time"

	"formarter/compliance/pkg/checklist"
)

var (
	// ErrDocumentNotFound indicates a document id the library cannot resolve.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrCollectionNotFound indicates an unknown collection name.
	ErrCollectionNotFound = errors.New("collection not found")
)

// Document is a fully loaded document ready for evaluation.
type Document struct {
	ID         string
	Name       string
	Collection string
	Text       string

	// Context holds the applicability flags recorded for the document, or
	// nil when the library has none.
	Context *checklist.Context

	ModifiedAt time.Time
}

// Library resolves document ids to documents and lists collections.
// Implementations must be safe for concurrent use.
type Library interface {
	// Get loads a document or returns an error wrapping ErrDocumentNotFound.
	Get(ctx context.Context, id string) (*Document, error)

	// List returns the ids of a collection's documents in ascending order,
	// or an error wrapping ErrCollectionNotFound.
	List(ctx context.Context, collection string) ([]string, error)

	// Collections returns the collection names in ascending order.
	Collections(ctx context.Context) ([]string, error)
}
