package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the audit database schema.
// The full record is stored as JSON; the remaining columns exist for
// filtering and ordering.
const Schema = `
-- Audit session records
CREATE TABLE IF NOT EXISTS audits (
    session_id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL,
    collection TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    score REAL NOT NULL DEFAULT 0,
    score_defined BOOLEAN NOT NULL DEFAULT 0,
    degenerate BOOLEAN NOT NULL DEFAULT 0,
    catalog_version TEXT,

    -- Unix nanoseconds
    created_ns INTEGER NOT NULL,
    updated_ns INTEGER NOT NULL,

    record TEXT NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audits_document ON audits(document_id, created_ns);
CREATE INDEX IF NOT EXISTS idx_audits_collection ON audits(collection);
CREATE INDEX IF NOT EXISTS idx_audits_created ON audits(created_ns);
CREATE INDEX IF NOT EXISTS idx_audits_status ON audits(status);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

// upsertAudit replaces the row of an existing session.
const upsertAudit = `
INSERT INTO audits (
    session_id, document_id, collection, status, score, score_defined,
    degenerate, catalog_version, created_ns, updated_ns, record
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
    document_id = excluded.document_id,
    collection = excluded.collection,
    status = excluded.status,
    score = excluded.score,
    score_defined = excluded.score_defined,
    degenerate = excluded.degenerate,
    catalog_version = excluded.catalog_version,
    updated_ns = excluded.updated_ns,
    record = excluded.record;
`
