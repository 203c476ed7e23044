package trace

import "fmt"

// SessionNotFoundError represents a session lookup failure.
// It enables typed error discrimination via errors.As.
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.SessionID)
}

// EventNotFoundError represents an event lookup failure.
type EventNotFoundError struct {
	EventID int64
}

func (e *EventNotFoundError) Error() string {
	return fmt.Sprintf("event %d not found", e.EventID)
}

// RemoteError carries the human-readable detail message returned by the
// trace API for a failed one-shot request (diagnose, apply-patch). The
// detail is surfaced verbatim to the operator.
type RemoteError struct {
	StatusCode int
	Detail     string
}

func (e *RemoteError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}
