package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"epilog/pkg/client"
	"epilog/pkg/trace"
)

// fetchTimeout bounds the one-shot API calls issued from the update loop.
const fetchTimeout = 10 * time.Second

// reconnectDelay is how long the UI waits before reopening a lost stream.
const reconnectDelay = 2 * time.Second

// sessionsMsg carries the fetched session list.
type sessionsMsg struct {
	sessions []trace.Session
	err      error
}

// backlogMsg carries a session's stored events.
type backlogMsg struct {
	sessionID string
	events    []trace.Event
	err       error
}

// streamOpenedMsg reports the outcome of an OpenStream call.
type streamOpenedMsg struct {
	sessionID string
	stream    *client.Stream
	err       error
}

// streamEventMsg carries one message off a live stream.
type streamEventMsg struct {
	stream *client.Stream
	msg    trace.StreamMessage
}

// streamEndedMsg reports that a stream's channel closed.
type streamEndedMsg struct {
	stream *client.Stream
}

// reconnectMsg fires after reconnectDelay to reopen a lost stream.
type reconnectMsg struct {
	sessionID string
}

// diagnosisMsg carries the outcome of a diagnose call.
type diagnosisMsg struct {
	eventID int64
	result  trace.DiagnosisResult
	err     error
}

// patchMsg carries the outcome of an apply-patch call.
type patchMsg struct {
	resp trace.ApplyPatchResponse
	err  error
}

// fetchSessionsCmd returns a tea.Cmd that lists sessions from the API.
func fetchSessionsCmd(api *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		sessions, err := api.ListSessions(ctx, 0, 100)
		return sessionsMsg{sessions: sessions, err: err}
	}
}

// fetchBacklogCmd returns a tea.Cmd that loads a session's stored events.
func fetchBacklogCmd(api *client.Client, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		events, err := api.Events(ctx, sessionID)
		return backlogMsg{sessionID: sessionID, events: events, err: err}
	}
}

// openStreamCmd returns a tea.Cmd that opens the session's live stream.
func openStreamCmd(api *client.Client, sessionID string) tea.Cmd {
	return func() tea.Msg {
		s, err := api.OpenStream(context.Background(), sessionID)
		return streamOpenedMsg{sessionID: sessionID, stream: s, err: err}
	}
}

// waitForStream returns a tea.Cmd that blocks on the stream's channel and
// forwards the next message. The update loop re-issues it after every
// streamEventMsg, pumping the channel one message per update.
func waitForStream(s *client.Stream) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-s.Messages()
		if !ok {
			return streamEndedMsg{stream: s}
		}
		return streamEventMsg{stream: s, msg: msg}
	}
}

// reconnectCmd schedules a stream reopen.
func reconnectCmd(sessionID string) tea.Cmd {
	return tea.Tick(reconnectDelay, func(time.Time) tea.Msg {
		return reconnectMsg{sessionID: sessionID}
	})
}

// diagnoseCmd returns a tea.Cmd that runs diagnosis for one event. The
// client allows this call minutes, not seconds; the model stays responsive
// because the call runs outside the update loop.
func diagnoseCmd(api *client.Client, eventID int64) tea.Cmd {
	return func() tea.Msg {
		result, err := api.Diagnose(context.Background(), eventID)
		return diagnosisMsg{eventID: eventID, result: result, err: err}
	}
}

// applyPatchCmd returns a tea.Cmd that submits a patch for application.
func applyPatchCmd(api *client.Client, req trace.ApplyPatchRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		resp, err := api.ApplyPatch(ctx, req)
		return patchMsg{resp: resp, err: err}
	}
}
