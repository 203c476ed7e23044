package main

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"epilog/pkg/client"
	"epilog/pkg/diagnose"
	"epilog/pkg/timeline"
	"epilog/pkg/trace"
)

// ViewType represents the different views in the replay UI.
type ViewType int

const (
	// SessionsView shows the session picker.
	SessionsView ViewType = iota
	// TimelineView shows one session's event timeline.
	TimelineView
)

// Model is the Bubble Tea model for the replay timeline.
type Model struct {
	api      *client.Client
	fromFile string
	theme    Theme

	activeView ViewType
	width      int
	height     int

	// Session picker state
	sessions   []trace.Session
	sessionIdx int
	loadErr    string

	// Timeline state for the selected session
	session  trace.Session
	log      *timeline.Log
	pos      timeline.Position
	workflow diagnose.Workflow
	stream   *client.Stream

	spinner spinner.Model
	panel   viewport.Model

	status string
}

// newModel creates a Model. When fromFile is non-empty the UI replays a
// local JSONL dump instead of talking to the API.
func newModel(apiURL, fromFile string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		api:        client.New(apiURL),
		fromFile:   fromFile,
		theme:      DefaultTheme(),
		activeView: SessionsView,
		log:        timeline.NewLog(),
		spinner:    sp,
	}

	if fromFile != "" {
		m.activeView = TimelineView
		m.session = trace.Session{ID: "local", Name: fromFile, Status: trace.SessionRunning}
	}

	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.fromFile != "" {
		return tea.Batch(loadFileCmd(m.fromFile), watchFileCmd(m.fromFile))
	}
	return fetchSessionsCmd(m.api)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.panel.Width = panelWidth(msg.Width)
		m.panel.Height = panelHeight(msg.Height)

	case spinner.TickMsg:
		if m.workflow.State() == diagnose.StatePending ||
			m.workflow.PatchStatus() == diagnose.PatchApplying {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case sessionsMsg:
		if msg.err != nil {
			m.loadErr = msg.err.Error()
			return m, nil
		}
		m.loadErr = ""
		m.sessions = msg.sessions
		if m.sessionIdx >= len(m.sessions) {
			m.sessionIdx = 0
		}

	case backlogMsg:
		if msg.sessionID != m.session.ID {
			return m, nil
		}
		if msg.err != nil {
			m.status = "load events: " + msg.err.Error()
			return m, nil
		}
		m.ingest(msg.events)

	case streamOpenedMsg:
		return m.handleStreamOpened(msg)

	case streamEventMsg:
		return m.handleStreamEvent(msg)

	case streamEndedMsg:
		return m.handleStreamEnded(msg)

	case reconnectMsg:
		if m.activeView == TimelineView && msg.sessionID == m.session.ID && m.stream == nil {
			return m, openStreamCmd(m.api, m.session.ID)
		}

	case diagnosisMsg:
		return m.handleDiagnosis(msg)

	case patchMsg:
		return m.handlePatch(msg)

	case fileEventsMsg:
		if msg.err != nil {
			m.status = "read trace file: " + msg.err.Error()
			return m, nil
		}
		m.ingest(msg.events)

	case fileChangedMsg:
		return m, tea.Batch(loadFileCmd(m.fromFile), watchFileCmd(m.fromFile))
	}

	return m, nil
}

// ingest inserts a batch of events, preserving tail-follow semantics.
func (m *Model) ingest(events []trace.Event) {
	oldLen := m.log.Len()
	for _, ev := range events {
		m.log.Insert(ev)
	}
	m.pos.OnAppend(oldLen, m.log.Len())
}

// activeEvent returns the event under the scrub position, if any.
func (m Model) activeEvent() (trace.Event, bool) {
	return m.log.At(m.pos.ActiveIndex(m.log.Len()))
}

func (m Model) handleStreamOpened(msg streamOpenedMsg) (tea.Model, tea.Cmd) {
	if m.activeView != TimelineView || msg.sessionID != m.session.ID {
		// Stale connect for a session we already left.
		if msg.stream != nil {
			msg.stream.Close()
		}
		return m, nil
	}
	if msg.err != nil {
		m.status = "stream: " + msg.err.Error()
		return m, reconnectCmd(m.session.ID)
	}
	m.stream = msg.stream
	m.status = ""
	return m, waitForStream(msg.stream)
}

func (m Model) handleStreamEvent(msg streamEventMsg) (tea.Model, tea.Cmd) {
	if msg.stream != m.stream {
		// A stream closed during a session switch may still drain.
		return m, nil
	}
	if msg.msg.Err != "" {
		// Server error markers are informational; the connection stays up.
		m.status = "stream: " + msg.msg.Err
	} else if msg.msg.Event != nil {
		m.ingest([]trace.Event{*msg.msg.Event})
	}
	return m, waitForStream(msg.stream)
}

func (m Model) handleStreamEnded(msg streamEndedMsg) (tea.Model, tea.Cmd) {
	if msg.stream != m.stream {
		return m, nil
	}
	err := msg.stream.Err()
	m.stream = nil
	if err != nil && m.activeView == TimelineView {
		m.status = "stream lost, reconnecting: " + err.Error()
		return m, reconnectCmd(m.session.ID)
	}
	return m, nil
}

func (m Model) handleDiagnosis(msg diagnosisMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.workflow.Fail(msg.eventID, msg.err.Error())
		return m, nil
	}
	if m.workflow.Resolve(msg.eventID, msg.result) {
		m.panel.SetContent(renderPanelContent(m.theme, m.panel.Width, msg.result))
		m.panel.GotoTop()
	}
	return m, nil
}

func (m Model) handlePatch(msg patchMsg) (tea.Model, tea.Cmd) {
	ok := msg.err == nil && msg.resp.Success
	m.workflow.FinishApply(ok)
	switch {
	case msg.err != nil:
		m.status = "apply patch: " + msg.err.Error()
	case msg.resp.Message != "":
		m.status = msg.resp.Message
	}
	return m, nil
}

// handleKeyPress processes keyboard input for the active view.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.closeStream()
		return m, tea.Quit
	}

	switch m.activeView {
	case TimelineView:
		return m.handleTimelineKeys(key, msg)
	default:
		return m.handleSessionsKeys(key)
	}
}

// handleSessionsKeys processes keyboard input in the session picker.
func (m Model) handleSessionsKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m, tea.Quit
	case "j", "down":
		if m.sessionIdx < len(m.sessions)-1 {
			m.sessionIdx++
		}
	case "k", "up":
		if m.sessionIdx > 0 {
			m.sessionIdx--
		}
	case "r":
		return m, fetchSessionsCmd(m.api)
	case "enter":
		if m.sessionIdx < len(m.sessions) {
			return m.enterSession(m.sessions[m.sessionIdx])
		}
	}
	return m, nil
}

// handleTimelineKeys processes keyboard input in the timeline view.
func (m Model) handleTimelineKeys(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While the diagnosis panel is open the viewport owns scroll keys.
	if m.workflow.State() == diagnose.StateSucceeded {
		switch key {
		case "up", "down", "pgup", "pgdown", "k", "j":
			var cmd tea.Cmd
			m.panel, cmd = m.panel.Update(msg)
			return m, cmd
		}
	}

	switch key {
	case "q":
		m.closeStream()
		return m, tea.Quit

	case "esc":
		return m.handleEscape()

	case "left", "h":
		length := m.log.Len()
		if i := m.pos.ActiveIndex(length); i > 0 {
			m.pos.SelectIndex(i-1, length)
		}

	case "right", "l":
		length := m.log.Len()
		if i := m.pos.ActiveIndex(length); i >= 0 && i < length-1 {
			m.pos.SelectIndex(i+1, length)
		}

	case "g", "home":
		m.pos.SetPosition(0)

	case "G", "end":
		m.pos.SetPosition(100)

	case "d":
		return m.requestDiagnosis()

	case "a":
		return m.applyPatch()

	case "r":
		if m.fromFile == "" {
			return m, fetchBacklogCmd(m.api, m.session.ID)
		}
		return m, loadFileCmd(m.fromFile)
	}

	return m, nil
}

// handleEscape unwinds timeline state one layer at a time: error notice,
// then panel, then back to the session picker.
func (m Model) handleEscape() (tea.Model, tea.Cmd) {
	if m.workflow.ErrMessage() != "" {
		m.workflow.DismissError()
		return m, nil
	}
	if m.workflow.State() == diagnose.StateSucceeded {
		m.workflow.ClosePanel()
		return m, nil
	}
	if m.fromFile != "" {
		// File replay has no picker to return to.
		return m, nil
	}
	m.leaveSession()
	return m, fetchSessionsCmd(m.api)
}

// requestDiagnosis starts a diagnosis for the active event.
func (m Model) requestDiagnosis() (tea.Model, tea.Cmd) {
	if m.fromFile != "" {
		m.status = "diagnosis needs the API; not available in file replay"
		return m, nil
	}
	ev, ok := m.activeEvent()
	if !ok {
		return m, nil
	}
	if m.workflow.State() == diagnose.StatePending {
		return m, nil
	}
	m.workflow.Begin(ev.ID)
	m.status = ""
	return m, tea.Batch(diagnoseCmd(m.api, ev.ID), m.spinner.Tick)
}

// applyPatch submits the panel's patch, once.
func (m Model) applyPatch() (tea.Model, tea.Cmd) {
	if !m.workflow.BeginApply() {
		return m, nil
	}
	ev, _ := m.eventFor(m.workflow.PanelEventID())
	path := sourceFileFor(ev)
	if path == "" {
		m.workflow.FinishApply(false)
		m.status = "cannot apply: event has no source_file metadata"
		return m, nil
	}
	req := trace.ApplyPatchRequest{
		FilePath:    path,
		DiffContent: *m.workflow.Result().Patch,
	}
	return m, tea.Batch(applyPatchCmd(m.api, req), m.spinner.Tick)
}

// eventFor finds an event in the log by id.
func (m Model) eventFor(id int64) (trace.Event, bool) {
	for _, ev := range m.log.Events() {
		if ev.ID == id {
			return ev, true
		}
	}
	return trace.Event{}, false
}

// enterSession switches the timeline to a session: the previous stream is
// closed before the new one opens, and log and position start fresh.
func (m Model) enterSession(sess trace.Session) (tea.Model, tea.Cmd) {
	m.closeStream()
	m.log.Reset()
	m.pos.Reset()
	m.workflow = diagnose.Workflow{}
	m.status = ""
	m.session = sess
	m.activeView = TimelineView
	return m, tea.Batch(fetchBacklogCmd(m.api, sess.ID), openStreamCmd(m.api, sess.ID))
}

// leaveSession returns to the picker, dropping all per-session state.
func (m *Model) leaveSession() {
	m.closeStream()
	m.log.Reset()
	m.pos.Reset()
	m.workflow = diagnose.Workflow{}
	m.status = ""
	m.session = trace.Session{}
	m.activeView = SessionsView
}

func (m *Model) closeStream() {
	if m.stream != nil {
		m.stream.Close()
		m.stream = nil
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}
	switch m.activeView {
	case TimelineView:
		return m.timelineView()
	default:
		return m.sessionsView()
	}
}
