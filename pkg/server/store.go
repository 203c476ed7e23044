package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"epilog/pkg/trace"
)

// Store persists trace sessions and events in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the trace database at path and applies the
// schema. Enforces WAL journal mode and a 5-second busy timeout, and pings
// the connection before returning.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	ctx := context.Background()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout on %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, trace.SchemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new session and returns it with a generated id.
func (s *Store) CreateSession(ctx context.Context, name string, metadata json.RawMessage) (trace.Session, error) {
	sess := trace.Session{
		ID:        uuid.NewString(),
		Name:      name,
		StartedAt: time.Now().UTC(),
		Status:    trace.SessionRunning,
		Metadata:  metadata,
	}

	meta := sql.NullString{}
	if len(metadata) > 0 {
		meta = sql.NullString{String: string(metadata), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trace_sessions (id, name, started_at, status, metadata)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, nullable(name), sess.StartedAt.Format(time.RFC3339Nano), string(sess.Status), meta)
	if err != nil {
		return trace.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// ListSessions returns sessions newest first with event counts attached.
func (s *Store) ListSessions(ctx context.Context, skip, limit int) ([]trace.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.name, s.started_at, s.ended_at, s.status, s.metadata,
		        (SELECT COUNT(*) FROM trace_events e WHERE e.session_id = s.id)
		 FROM trace_sessions s
		 ORDER BY s.started_at DESC
		 LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []trace.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// GetSession returns a single session with its event count.
func (s *Store) GetSession(ctx context.Context, sessionID string) (trace.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT s.id, s.name, s.started_at, s.ended_at, s.status, s.metadata,
		        (SELECT COUNT(*) FROM trace_events e WHERE e.session_id = s.id)
		 FROM trace_sessions s WHERE s.id = ?`, sessionID)

	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return trace.Session{}, &trace.SessionNotFoundError{SessionID: sessionID}
	}
	if err != nil {
		return trace.Session{}, err
	}
	return sess, nil
}

// InsertEvent stores one trace event (screenshot optional) and returns the
// assigned id.
func (s *Store) InsertEvent(ctx context.Context, ev trace.Event, screenshot []byte) (int64, error) {
	if len(ev.EventData) == 0 {
		ev.EventData = json.RawMessage(`{}`)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO trace_events (session_id, run_id, parent_run_id, event_type, timestamp, event_data, screenshot)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.SessionID, ev.RunID, nullable(ev.ParentRunID), ev.EventType,
		ev.Timestamp.UTC().Format(time.RFC3339Nano), string(ev.EventData), screenshot)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return res.LastInsertId()
}

// Events returns a session's events ordered by id, with pagination.
func (s *Store) Events(ctx context.Context, sessionID string, skip, limit int) ([]trace.Event, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, run_id, parent_run_id, event_type, timestamp, event_data,
		        screenshot IS NOT NULL
		 FROM trace_events WHERE session_id = ?
		 ORDER BY id ASC LIMIT ? OFFSET ?`, sessionID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// EventsSince returns a session's events with id greater than afterID, in
// ascending order. This is the polling primitive behind the SSE stream.
func (s *Store) EventsSince(ctx context.Context, sessionID string, afterID int64) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, run_id, parent_run_id, event_type, timestamp, event_data,
		        screenshot IS NOT NULL
		 FROM trace_events WHERE session_id = ? AND id > ?
		 ORDER BY id ASC`, sessionID, afterID)
	if err != nil {
		return nil, fmt.Errorf("query events since %d: %w", afterID, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// EventByID returns one event regardless of session.
func (s *Store) EventByID(ctx context.Context, eventID int64) (trace.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, run_id, parent_run_id, event_type, timestamp, event_data,
		        screenshot IS NOT NULL
		 FROM trace_events WHERE id = ?`, eventID)

	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return trace.Event{}, &trace.EventNotFoundError{EventID: eventID}
	}
	if err != nil {
		return trace.Event{}, err
	}
	return ev, nil
}

// ContextWindow returns up to limit events from the same session with ids
// below the target, oldest first. Used by the diagnosis engine.
func (s *Store) ContextWindow(ctx context.Context, target trace.Event, limit int) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, run_id, parent_run_id, event_type, timestamp, event_data,
		        screenshot IS NOT NULL
		 FROM trace_events WHERE session_id = ? AND id < ?
		 ORDER BY id DESC LIMIT ?`, target.SessionID, target.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("query context window: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// Screenshot returns the raw image bytes for an event, or
// EventNotFoundError when the event or its screenshot is absent.
func (s *Store) Screenshot(ctx context.Context, eventID int64) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT screenshot FROM trace_events WHERE id = ?`, eventID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, &trace.EventNotFoundError{EventID: eventID}
	}
	if err != nil {
		return nil, fmt.Errorf("query screenshot: %w", err)
	}
	if len(data) == 0 {
		return nil, &trace.EventNotFoundError{EventID: eventID}
	}
	return data, nil
}

// scanner abstracts *sql.Row and *sql.Rows for the shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (trace.Session, error) {
	var (
		sess      trace.Session
		name      sql.NullString
		startedAt string
		endedAt   sql.NullString
		status    string
		metadata  sql.NullString
	)
	if err := sc.Scan(&sess.ID, &name, &startedAt, &endedAt, &status, &metadata, &sess.EventCount); err != nil {
		return trace.Session{}, err
	}
	sess.Name = name.String
	sess.Status = trace.SessionStatus(status)
	sess.StartedAt = parseTime(startedAt)
	if endedAt.Valid {
		t := parseTime(endedAt.String)
		sess.EndedAt = &t
	}
	if metadata.Valid {
		sess.Metadata = json.RawMessage(metadata.String)
	}
	return sess, nil
}

func scanEvent(sc scanner) (trace.Event, error) {
	var (
		ev        trace.Event
		parentRun sql.NullString
		timestamp string
		eventData string
	)
	if err := sc.Scan(&ev.ID, &ev.SessionID, &ev.RunID, &parentRun, &ev.EventType,
		&timestamp, &eventData, &ev.HasScreenshot); err != nil {
		return trace.Event{}, err
	}
	ev.ParentRunID = parentRun.String
	ev.Timestamp = parseTime(timestamp)
	ev.EventData = json.RawMessage(eventData)
	return ev, nil
}

func scanEvents(rows *sql.Rows) ([]trace.Event, error) {
	var events []trace.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// parseTime tolerates both RFC3339Nano and SQLite's datetime() format.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

// nullable maps "" to SQL NULL.
func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
