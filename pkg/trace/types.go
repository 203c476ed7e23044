// Package trace defines the shared domain types for epilog: sessions,
// trace events, diagnosis results, and the metadata projection used by
// the replay UI. Types here mirror the wire format of the trace API.
package trace

import (
	"encoding/json"
	"time"
)

// SessionStatus describes the lifecycle state of a trace session.
type SessionStatus string

// Session status constants.
const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Session represents one recorded agent run. Sessions are created by the
// ingesting agent and are immutable to the replay side.
type Session struct {
	ID         string          `json:"id"`
	Name       string          `json:"name,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	EndedAt    *time.Time      `json:"ended_at,omitempty"`
	Status     SessionStatus   `json:"status"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	EventCount int             `json:"event_count,omitempty"`
}

// Event is one discrete, timestamped record of agent activity (tool call,
// thought, output, error). The integer ID is assigned by the server,
// strictly increasing per session, and is the sole ordering and dedup key.
type Event struct {
	ID            int64           `json:"id"`
	SessionID     string          `json:"session_id,omitempty"`
	RunID         string          `json:"run_id"`
	ParentRunID   string          `json:"parent_run_id,omitempty"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	EventData     json.RawMessage `json:"event_data"`
	HasScreenshot bool            `json:"has_screenshot"`
}

// Payload decodes the free-form event data into a map. Malformed or absent
// data yields nil; callers must treat any payload shape as valid.
func (e Event) Payload() map[string]any {
	if len(e.EventData) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(e.EventData, &m); err != nil {
		return nil
	}
	return m
}

// DiagnosisReport is the model's structured finding for a single event.
type DiagnosisReport struct {
	IncidentSummary          string `json:"incident_summary"`
	VisualMismatchIdentified bool   `json:"visual_mismatch_identified"`
	Explanation              string `json:"explanation"`
	SuggestedFixLogic        string `json:"suggested_fix_logic,omitempty"`
}

// DiagnosisResult is the diagnose endpoint response: the report plus an
// optional unified-diff patch. A nil Patch means no fix was generated.
type DiagnosisResult struct {
	Diagnosis DiagnosisReport `json:"diagnosis"`
	Patch     *string         `json:"patch"`
}

// HasPatch reports whether the result carries a non-empty patch.
func (r DiagnosisResult) HasPatch() bool {
	return r.Patch != nil && *r.Patch != ""
}

// ApplyPatchRequest asks the server to apply a unified diff to a file
// under the configured project root.
type ApplyPatchRequest struct {
	FilePath    string `json:"file_path"`
	DiffContent string `json:"diff_content"`
}

// ApplyPatchResponse reports the outcome of a patch application.
type ApplyPatchResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StreamMessage is one frame of the per-session event stream: either an
// event or a server-reported error marker, never both.
type StreamMessage struct {
	Event *Event
	Err   string
}
