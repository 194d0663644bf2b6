package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"formarter/compliance/pkg/audit"
)

// Supported database/sql driver names.
const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"

	// DriverPureGo is modernc.org/sqlite.
	DriverPureGo = "sqlite"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the SQLite driver, DriverCGO or DriverPureGo.
	// Default: "sqlite3"
	Driver string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audits.db",
		Driver:       DriverCGO,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements audit.Store using SQLite. Each session is one
// row keyed by session id, so concurrent sessions never share a row.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverCGO
	}
	if config.Driver != DriverCGO && config.Driver != DriverPureGo {
		return nil, audit.NewStorageError("sqlite", "open",
			fmt.Errorf("unsupported driver %q (want %q or %q)", config.Driver, DriverCGO, DriverPureGo))
	}
	if config.Path == "" {
		return nil, audit.NewStorageError("sqlite", "open", errors.New("database path cannot be empty"))
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open(config.Driver, dsn(config))
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// dsn carries the pragmas in the connection string so that every pooled
// connection gets them. The two drivers spell them differently.
func dsn(config *SQLiteConfig) string {
	ms := config.BusyTimeout.Milliseconds()
	var params []string
	switch config.Driver {
	case DriverPureGo:
		params = append(params, fmt.Sprintf("_pragma=busy_timeout(%d)", ms))
		if config.WALMode {
			params = append(params, "_pragma=journal_mode(WAL)")
		}
	default:
		params = append(params, fmt.Sprintf("_busy_timeout=%d", ms))
		if config.WALMode {
			params = append(params, "_journal_mode=WAL")
		}
	}
	return "file:" + config.Path + "?" + strings.Join(params, "&")
}

// initialize creates the schema and verifies its version.
func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}
	s.logger.Debug("database schema created")

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Save inserts or replaces the row for rec.SessionID.
func (s *SQLiteStorage) Save(ctx context.Context, rec *audit.Record) error {
	if rec == nil || rec.SessionID == "" {
		return audit.NewStorageError("sqlite", "save", errors.New("record has no session id"))
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return audit.NewStorageError("sqlite", "marshal", err)
	}

	_, err = s.db.ExecContext(ctx, upsertAudit,
		rec.SessionID, rec.DocumentID, rec.Collection, string(rec.Status),
		rec.Summary.Score, rec.Summary.ScoreDefined(), rec.Degenerate, rec.CatalogVersion,
		rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano(), string(data),
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "save", err)
	}
	return nil
}

// Get returns the record for a session id.
func (s *SQLiteStorage) Get(ctx context.Context, sessionID string) (*audit.Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT record FROM audits WHERE session_id = ?", sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", audit.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "get", err)
	}
	return decodeRecord(data)
}

// Latest returns the most recently created record for a document.
func (s *SQLiteStorage) Latest(ctx context.Context, documentID string) (*audit.Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT record FROM audits WHERE document_id = ? ORDER BY created_ns DESC, session_id DESC LIMIT 1",
		documentID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no audit for document %s", audit.ErrSessionNotFound, documentID)
	}
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "latest", err)
	}
	return decodeRecord(data)
}

// Query retrieves records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	if query == nil {
		query = &audit.Query{}
	}
	whereClause, args, err := buildWhereClause(query)
	if err != nil {
		return nil, err
	}

	sqlQuery := "SELECT record FROM audits"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	order := "DESC"
	if strings.EqualFold(query.SortOrder, "asc") {
		order = "ASC"
	}
	sqlQuery += fmt.Sprintf(" ORDER BY created_ns %s, session_id %s", order, order)

	limit := -1
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	if query == nil {
		query = &audit.Query{}
	}
	whereClause, args, err := buildWhereClause(query)
	if err != nil {
		return 0, err
	}

	sqlQuery := "SELECT COUNT(*) FROM audits"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters and returns the number
// removed. Pagination fields are ignored.
func (s *SQLiteStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	if query == nil {
		query = &audit.Query{}
	}
	whereClause, args, err := buildWhereClause(query)
	if err != nil {
		return 0, err
	}

	sqlQuery := "DELETE FROM audits"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Close releases the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the clause without the WHERE keyword and its arguments.
func buildWhereClause(query *audit.Query) (string, []any, error) {
	if err := validateQuery(query); err != nil {
		return "", nil, err
	}

	var conditions []string
	var args []any

	if query.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, query.SessionID)
	}
	if query.DocumentID != "" {
		conditions = append(conditions, "document_id = ?")
		args = append(args, query.DocumentID)
	}
	if query.Collection != "" {
		conditions = append(conditions, "collection = ?")
		args = append(args, query.Collection)
	}
	if query.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(query.Status))
	}
	if query.StartTime != nil {
		conditions = append(conditions, "created_ns >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "created_ns <= ?")
		args = append(args, query.EndTime.UnixNano())
	}
	if query.MinScore != nil {
		conditions = append(conditions, "score >= ?")
		args = append(args, *query.MinScore)
	}
	if query.MaxScore != nil {
		conditions = append(conditions, "score <= ?")
		args = append(args, *query.MaxScore)
	}

	return strings.Join(conditions, " AND "), args, nil
}

func decodeRecord(data string) (*audit.Record, error) {
	var rec audit.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, audit.NewStorageError("sqlite", "unmarshal", err)
	}
	return &rec, nil
}
