// Package storage provides storage backends for audit records.
//
// # Storage Backends
//
//   - SQLite: one row per session, the record stored as JSON. Either the
//     cgo driver (github.com/mattn/go-sqlite3, driver "sqlite3") or the pure
//     Go driver (modernc.org/sqlite, driver "sqlite") can be selected.
//   - File: one JSON file per document holding that document's sessions,
//     plus an optional current-session record for interactive audits.
//   - Memory: in-memory map for tests and throwaway runs.
//
// All backends implement audit.Store. Records of different documents never
// share a row or a file, so parallel batch workers do not contend.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:        "data/audits.db",
//	    Driver:      storage.DriverPureGo,
//	    WALMode:     true,
//	    BusyTimeout: 5 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	recent, err := store.Query(ctx, &audit.Query{DocumentID: "motions/tro", Limit: 10})
//
// # File Naming
//
// Document ids map to file names by replacing "/" and "\" with "_", so
// "motions/tro-draft" is stored in "motions_tro-draft.json".
package storage
