// Package client is the Go client for the epilog trace API: session and
// event queries, trace ingestion, the diagnose and apply-patch calls, and
// the per-session SSE event stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"epilog/pkg/trace"
)

// defaultTimeout bounds one-shot API round-trips. Diagnosis runs a model
// call server-side, so it gets its own longer budget.
const (
	defaultTimeout  = 5 * time.Second
	diagnoseTimeout = 120 * time.Second
)

// apiPrefix is the mount point of the trace API.
const apiPrefix = "/api/v1/traces"

// Client talks to one epilog API server.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New creates a client for the API at baseURL (e.g. http://localhost:8000).
func New(baseURL string) *Client {
	return &Client{
		baseURL: trimSlash(baseURL),
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// url builds an absolute API URL from a path under the traces prefix.
func (c *Client) url(path string) string {
	return c.baseURL + apiPrefix + path
}

// ListSessions returns sessions newest first, with event counts.
func (c *Client) ListSessions(ctx context.Context, skip, limit int) ([]trace.Session, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))

	var sessions []trace.Session
	if err := c.getJSON(ctx, c.url("/sessions")+"?"+q.Encode(), &sessions); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns a single session by id.
func (c *Client) GetSession(ctx context.Context, sessionID string) (trace.Session, error) {
	var s trace.Session
	if err := c.getJSON(ctx, c.url("/sessions/"+url.PathEscape(sessionID)), &s); err != nil {
		return trace.Session{}, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return s, nil
}

// Events returns the ordered events already stored for a session. Used to
// backfill before (or instead of) opening a live stream.
func (c *Client) Events(ctx context.Context, sessionID string) ([]trace.Event, error) {
	var events []trace.Event
	path := "/sessions/" + url.PathEscape(sessionID) + "/events"
	if err := c.getJSON(ctx, c.url(path), &events); err != nil {
		return nil, fmt.Errorf("get events for %s: %w", sessionID, err)
	}
	return events, nil
}

// CreateSession registers a new trace session and returns it. name may be
// empty; metadata may be nil.
func (c *Client) CreateSession(ctx context.Context, name string, metadata map[string]any) (trace.Session, error) {
	payload := map[string]any{}
	if name != "" {
		payload["name"] = name
	}
	if metadata != nil {
		payload["metadata"] = metadata
	}

	var s trace.Session
	if err := c.postJSON(ctx, c.url("/sessions"), payload, &s, defaultTimeout); err != nil {
		return trace.Session{}, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// SendEvent ingests a single trace event and returns the id the server
// assigned. screenshotB64 is optional base64 image data.
func (c *Client) SendEvent(ctx context.Context, ev trace.Event, screenshotB64 string) (int64, error) {
	payload := map[string]any{
		"session_id": ev.SessionID,
		"run_id":     ev.RunID,
		"event_type": ev.EventType,
		"timestamp":  ev.Timestamp,
		"event_data": ev.EventData,
	}
	if ev.ParentRunID != "" {
		payload["parent_run_id"] = ev.ParentRunID
	}
	if screenshotB64 != "" {
		payload["screenshot_base64"] = screenshotB64
	}

	var created trace.Event
	if err := c.postJSON(ctx, c.url("/events"), payload, &created, defaultTimeout); err != nil {
		return 0, fmt.Errorf("send event: %w", err)
	}
	return created.ID, nil
}

// Diagnose triggers the diagnosis workflow for an event and returns the
// report and optional patch. Failures carry the server's detail message as
// a *trace.RemoteError.
func (c *Client) Diagnose(ctx context.Context, eventID int64) (trace.DiagnosisResult, error) {
	var result trace.DiagnosisResult
	path := fmt.Sprintf("/events/%d/diagnose", eventID)
	if err := c.postJSON(ctx, c.url(path), nil, &result, diagnoseTimeout); err != nil {
		return trace.DiagnosisResult{}, err
	}
	return result, nil
}

// ApplyPatch asks the server to apply a unified diff under its configured
// project root.
func (c *Client) ApplyPatch(ctx context.Context, req trace.ApplyPatchRequest) (trace.ApplyPatchResponse, error) {
	var resp trace.ApplyPatchResponse
	if err := c.postJSON(ctx, c.url("/apply-patch"), req, &resp, defaultTimeout); err != nil {
		return trace.ApplyPatchResponse{}, err
	}
	return resp, nil
}

// ScreenshotURL returns the deterministic screenshot URL for an event.
// Only call for events with HasScreenshot set; the server 404s otherwise.
func (c *Client) ScreenshotURL(eventID int64) string {
	return c.url(fmt.Sprintf("/events/%d/screenshot", eventID))
}

// getJSON performs a GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return remoteError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// postJSON performs a POST with an optional JSON body and decodes the JSON
// response into out. A per-call timeout overrides the client default.
func (c *Client) postJSON(ctx context.Context, rawURL string, payload, out any, timeout time.Duration) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// One-shot calls must not be cut short by the client-wide timeout.
	httpc := &http.Client{Transport: c.httpc.Transport}

	resp, err := httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return remoteError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// remoteError extracts the {"detail": ...} message the API attaches to
// failures, falling back to the raw body.
func remoteError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var payload struct {
		Detail string `json:"detail"`
	}
	detail := ""
	if err := json.Unmarshal(data, &payload); err == nil {
		detail = payload.Detail
	}
	if detail == "" {
		detail = string(bytes.TrimSpace(data))
	}
	return &trace.RemoteError{StatusCode: resp.StatusCode, Detail: detail}
}
