package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"epilog/pkg/diagnose"
)

// timelineView renders one session's event timeline.
func (m Model) timelineView() string {
	titleStyle := lipgloss.NewStyle().Foreground(m.theme.Primary).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(m.theme.Muted)

	name := m.session.Name
	if name == "" {
		name = m.session.ID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n",
		titleStyle.Render("epilog replay — "+truncate(name, 50)),
		mutedStyle.Render(string(m.session.Status)))

	length := m.log.Len()
	active := m.pos.ActiveIndex(length)

	if length == 0 {
		b.WriteString(mutedStyle.Render("waiting for events..."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderStrip(active, length))
		b.WriteString("\n")
		b.WriteString(m.renderGauge(active, length))
		b.WriteString("\n\n")
		b.WriteString(m.renderActiveEvent())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderWorkflow())
	b.WriteString(m.renderStatusLine())
	return b.String()
}

// renderStrip draws the event markers with the active one highlighted,
// windowed so long sessions fit the terminal width.
func (m Model) renderStrip(active, length int) string {
	cells := m.width / 2
	if cells < 10 {
		cells = 10
	}

	start := 0
	if length > cells {
		start = active - cells/2
		if start < 0 {
			start = 0
		}
		if start+cells > length {
			start = length - cells
		}
	}
	end := start + cells
	if end > length {
		end = length
	}

	activeStyle := lipgloss.NewStyle().Foreground(m.theme.Primary).Bold(true)
	dotStyle := lipgloss.NewStyle().Foreground(m.theme.Muted)

	var parts []string
	if start > 0 {
		parts = append(parts, dotStyle.Render("«"))
	}
	for i := start; i < end; i++ {
		if i == active {
			parts = append(parts, activeStyle.Render("●"))
		} else {
			parts = append(parts, dotStyle.Render("○"))
		}
	}
	if end < length {
		parts = append(parts, dotStyle.Render("»"))
	}
	return strings.Join(parts, " ")
}

// renderGauge draws the scrub bar with position percentage and event index.
func (m Model) renderGauge(active, length int) string {
	width := m.width - 30
	if width < 10 {
		width = 10
	}

	pos := m.pos.Value()
	filled := int(pos / 100 * float64(width))
	if filled > width {
		filled = width
	}

	barStyle := lipgloss.NewStyle().Foreground(m.theme.Secondary)
	bar := barStyle.Render(strings.Repeat("━", filled)) +
		lipgloss.NewStyle().Foreground(m.theme.Muted).Render(strings.Repeat("─", width-filled))

	return fmt.Sprintf("[%s] %5.1f%%  event %d/%d", bar, pos, active+1, length)
}

// renderActiveEvent shows the event under the scrubber: identity line,
// projected metadata, and the screenshot pointer if one exists.
func (m Model) renderActiveEvent() string {
	ev, ok := m.activeEvent()
	if !ok {
		return ""
	}

	headStyle := lipgloss.NewStyle().Foreground(m.theme.Warning).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(m.theme.Muted)

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n",
		headStyle.Render(fmt.Sprintf("#%d %s", ev.ID, ev.EventType)),
		mutedStyle.Render(ev.Timestamp.Local().Format(time.TimeOnly)+"  run "+truncate(ev.RunID, 12)))
	b.WriteString(renderMetadata(m.theme, ev))
	if ev.HasScreenshot {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("screenshot: " + m.api.ScreenshotURL(ev.ID)))
	}
	return b.String()
}

// renderWorkflow shows the diagnosis spinner, error notice, or result panel
// depending on workflow state.
func (m Model) renderWorkflow() string {
	switch m.workflow.State() {
	case diagnose.StatePending:
		return m.spinner.View() + " diagnosing event " +
			fmt.Sprintf("#%d", m.workflow.InflightID()) + "...\n"
	case diagnose.StateFailed:
		errStyle := lipgloss.NewStyle().Foreground(m.theme.Error)
		return errStyle.Render("diagnosis failed: "+m.workflow.ErrMessage()) +
			lipgloss.NewStyle().Foreground(m.theme.Muted).Render("  (esc to dismiss)") + "\n"
	case diagnose.StateSucceeded:
		return m.panelView() + "\n"
	default:
		return ""
	}
}

// renderStatusLine shows the transient status message and the key help.
func (m Model) renderStatusLine() string {
	mutedStyle := lipgloss.NewStyle().Foreground(m.theme.Muted)

	help := "←/→ scrub · g/G ends · d diagnose · esc back · q quit"
	if m.workflow.State() == diagnose.StateSucceeded {
		help = "j/k scroll · a apply patch · esc close · q quit"
	}

	var b strings.Builder
	if m.status != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(m.theme.Warning).Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(help))
	return b.String()
}
