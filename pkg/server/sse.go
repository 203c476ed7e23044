package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// streamPollInterval is how often the SSE handler polls the store for new
// events when the feed is quiet.
const streamPollInterval = time.Second

// streamHeartbeat keeps idle connections alive through proxies.
const streamHeartbeat = 15 * time.Second

// handleEventStream serves a session's events over SSE. Events already
// stored are delivered immediately; afterwards the handler polls for ids
// above the last one sent, so a reconnecting client that re-reads history
// is safe (the consumer dedups by id).
func (s *Server) handleEventStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Streaming unsupported"})
		return
	}

	sessionID := c.Param("id")
	ctx := c.Request.Context()

	// Unknown session: one error frame, then close. The client logs and
	// discards error markers without tearing down its own state.
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		writeSSEError(c, "Session not found")
		flusher.Flush()
		return
	}

	var lastID int64
	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()
	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	// Initial backlog before the first tick.
	lastID = s.writeNewEvents(c, sessionID, lastID)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": heartbeat\n\n")
			flusher.Flush()
		case <-ticker.C:
			if next := s.writeNewEvents(c, sessionID, lastID); next != lastID {
				lastID = next
				flusher.Flush()
			}
		}
	}
}

// writeNewEvents emits all stored events above lastID as SSE data frames
// and returns the new high-water mark. Store errors become error frames;
// the connection stays up.
func (s *Server) writeNewEvents(c *gin.Context, sessionID string, lastID int64) int64 {
	events, err := s.store.EventsSince(c.Request.Context(), sessionID, lastID)
	if err != nil {
		writeSSEError(c, err.Error())
		return lastID
	}

	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", data)
		lastID = ev.ID
	}
	return lastID
}

// writeSSEError emits an error-marker frame.
func writeSSEError(c *gin.Context, msg string) {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
}
