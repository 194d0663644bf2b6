package health

import (
	"context"
	"errors"
	"fmt"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/library"
)

// CatalogCheck fails when no catalog is loaded or it holds no rules.
func CatalogCheck(catalog func() *checklist.Catalog) CheckFunc {
	return func(context.Context) error {
		c := catalog()
		if c == nil {
			return errors.New("rule catalog not loaded")
		}
		if c.Len() == 0 {
			return errors.New("rule catalog is empty")
		}
		return nil
	}
}

// StoreCheck fails when the audit store cannot answer a count query.
func StoreCheck(store audit.Store) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := store.Count(ctx, &audit.Query{Limit: 1}); err != nil {
			return fmt.Errorf("audit store unavailable: %w", err)
		}
		return nil
	}
}

// LibraryCheck fails when the document library cannot be listed.
func LibraryCheck(lib library.Library) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := lib.Collections(ctx); err != nil {
			return fmt.Errorf("document library unavailable: %w", err)
		}
		return nil
	}
}
