package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"epilog/pkg/trace"
)

// streamBuffer bounds the message channel between the SSE reader goroutine
// and the consumer, so a stalled view cannot grow memory without limit.
const streamBuffer = 100

// maxFrameSize caps a single SSE frame; event payloads can carry large
// tool outputs.
const maxFrameSize = 2 * 1024 * 1024

// Stream is one per-session server-push connection. Messages arrive on
// Messages() until the stream ends; after the channel closes, Err reports
// why. Close is idempotent and must complete before a stream for another
// session is opened, so a slow-closing connection can never inject events
// into the next session's log.
type Stream struct {
	sessionID string
	msgs      chan trace.StreamMessage
	cancel    context.CancelFunc

	mu     sync.Mutex
	err    error
	closed bool
}

// OpenStream connects to the session's SSE event feed. The returned stream
// is live until Close is called, ctx is cancelled, or the transport fails.
func (c *Client) OpenStream(ctx context.Context, sessionID string) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)

	path := "/sessions/" + url.PathEscape(sessionID) + "/events/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// No client timeout here: the connection is long-lived by design.
	httpc := &http.Client{Transport: c.httpc.Transport}
	resp, err := httpc.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stream for %s: %w", sessionID, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		cancel()
		return nil, remoteError(resp)
	}

	s := &Stream{
		sessionID: sessionID,
		msgs:      make(chan trace.StreamMessage, streamBuffer),
		cancel:    cancel,
	}

	go s.read(resp)
	return s, nil
}

// SessionID returns the session this stream belongs to.
func (s *Stream) SessionID() string {
	return s.sessionID
}

// Messages returns the inbound message channel. It closes when the stream
// ends for any reason.
func (s *Stream) Messages() <-chan trace.StreamMessage {
	return s.msgs
}

// Close terminates the connection. Safe to call more than once.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// Err reports why the stream ended, once Messages() has closed. A nil
// error means a clean close.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// read parses SSE frames off the response body and forwards them. Malformed
// frames are dropped; server error markers are forwarded as messages so the
// consumer can log them without losing the connection.
func (s *Stream) read(resp *http.Response) {
	defer resp.Body.Close()
	defer close(s.msgs)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			// Blank line ends the frame.
			if data.Len() > 0 {
				s.dispatch(data.String())
				data.Reset()
			}
		case strings.HasPrefix(line, ":"):
			// Comment / heartbeat, ignore.
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// Other SSE fields (event:, id:, retry:) carry nothing we need.
		}
	}
	if data.Len() > 0 {
		s.dispatch(data.String())
	}

	if err := scanner.Err(); err != nil {
		s.mu.Lock()
		if !s.closed {
			s.err = err
		}
		s.mu.Unlock()
	}
}

// dispatch decodes one frame payload and forwards it. The send blocks when
// the buffer is full; backpressure, not loss, is the policy for a live
// replay feed.
func (s *Stream) dispatch(payload string) {
	msg, ok := decodeFrame(payload)
	if !ok {
		return
	}
	s.msgs <- msg
}

// decodeFrame classifies a frame payload as an error marker, an event, or
// garbage (dropped). Malformed input never terminates ingestion.
func decodeFrame(payload string) (trace.StreamMessage, bool) {
	var marker struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(payload), &marker); err == nil && marker.Error != "" {
		return trace.StreamMessage{Err: marker.Error}, true
	}

	var ev trace.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return trace.StreamMessage{}, false
	}
	if ev.ID == 0 {
		// Not a trace event shape.
		return trace.StreamMessage{}, false
	}
	return trace.StreamMessage{Event: &ev}, true
}
