package trace

// SchemaDDL defines the SQLite schema for the epilog trace store.
// Tables: trace_sessions, trace_events.
// Execute against a SQLite database with: db.Exec(SchemaDDL)
const SchemaDDL = `
-- Agent runs; one session per traced execution
CREATE TABLE IF NOT EXISTS trace_sessions (
    id TEXT PRIMARY KEY,
    name TEXT,
    started_at TEXT NOT NULL DEFAULT (datetime('now')),
    ended_at TEXT,
    status TEXT NOT NULL DEFAULT 'running',
    metadata TEXT
);

CREATE INDEX IF NOT EXISTS ix_trace_sessions_started_at ON trace_sessions(started_at);
CREATE INDEX IF NOT EXISTS ix_trace_sessions_status ON trace_sessions(status);

-- Discrete trace events; id is the per-session ordering and dedup key
CREATE TABLE IF NOT EXISTS trace_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL REFERENCES trace_sessions(id) ON DELETE CASCADE,
    run_id TEXT NOT NULL,
    parent_run_id TEXT,
    event_type TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    event_data TEXT NOT NULL DEFAULT '{}',
    screenshot BLOB
);

CREATE INDEX IF NOT EXISTS ix_trace_events_session_id ON trace_events(session_id);
CREATE INDEX IF NOT EXISTS ix_trace_events_run_id ON trace_events(run_id);
CREATE INDEX IF NOT EXISTS ix_trace_events_event_type ON trace_events(event_type);
CREATE INDEX IF NOT EXISTS ix_trace_events_timestamp ON trace_events(timestamp);
`
