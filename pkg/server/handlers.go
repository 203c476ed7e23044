package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"epilog/pkg/trace"
)

// createSessionRequest mirrors the session creation payload.
type createSessionRequest struct {
	Name     string          `json:"name"`
	Metadata json.RawMessage `json:"metadata"`
}

// createEventRequest mirrors the event ingestion payload.
type createEventRequest struct {
	SessionID        string          `json:"session_id" binding:"required"`
	RunID            string          `json:"run_id" binding:"required"`
	ParentRunID      string          `json:"parent_run_id"`
	EventType        string          `json:"event_type" binding:"required"`
	Timestamp        time.Time       `json:"timestamp"`
	EventData        json.RawMessage `json:"event_data"`
	ScreenshotBase64 string          `json:"screenshot_base64"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	sess, err := s.store.CreateSession(c.Request.Context(), req.Name, req.Metadata)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (s *Server) handleListSessions(c *gin.Context) {
	skip := intQuery(c, "skip", 0)
	limit := intQuery(c, "limit", 100)

	sessions, err := s.store.ListSessions(c.Request.Context(), skip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if sessions == nil {
		sessions = []trace.Session{}
	}
	c.JSON(http.StatusOK, sessions)
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, err := s.store.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		var notFound *trace.SessionNotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) handleSessionEvents(c *gin.Context) {
	skip := intQuery(c, "skip", 0)
	limit := intQuery(c, "limit", 1000)

	events, err := s.store.Events(c.Request.Context(), c.Param("id"), skip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if events == nil {
		events = []trace.Event{}
	}
	c.JSON(http.StatusOK, events)
}

func (s *Server) handleCreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if strings.TrimSpace(req.EventType) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "event_type cannot be empty"})
		return
	}

	var screenshot []byte
	if req.ScreenshotBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ScreenshotBase64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid base64 screenshot data: " + err.Error()})
			return
		}
		screenshot = data
	}

	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	ev := trace.Event{
		SessionID:   req.SessionID,
		RunID:       req.RunID,
		ParentRunID: req.ParentRunID,
		EventType:   strings.TrimSpace(req.EventType),
		Timestamp:   req.Timestamp,
		EventData:   req.EventData,
	}

	id, err := s.store.InsertEvent(c.Request.Context(), ev, screenshot)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	ev.ID = id
	ev.HasScreenshot = screenshot != nil
	c.JSON(http.StatusCreated, ev)
}

func (s *Server) handleScreenshot(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid event id"})
		return
	}

	data, err := s.store.Screenshot(c.Request.Context(), eventID)
	if err != nil {
		var notFound *trace.EventNotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Screenshot not found for this event"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

func (s *Server) handleDiagnose(c *gin.Context) {
	if s.diagnoser == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": "Diagnosis engine not configured. Please set OPENAI_API_KEY.",
		})
		return
	}

	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid event id"})
		return
	}

	result, err := s.diagnoser.RunDiagnosis(c.Request.Context(), eventID)
	if err != nil {
		var notFound *trace.EventNotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Diagnosis failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleApplyPatch(c *gin.Context) {
	if s.patcher == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": "Project path not set. Cannot apply patch.",
		})
		return
	}

	var req trace.ApplyPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if err := s.patcher.Apply(c.Request.Context(), req.FilePath, req.DiffContent); err != nil {
		c.JSON(http.StatusOK, trace.ApplyPatchResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, trace.ApplyPatchResponse{Success: true, Message: "Patch applied successfully."})
}

// intQuery reads an integer query parameter with a default.
func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
