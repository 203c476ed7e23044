package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"epilog/pkg/trace"
)

// sessionsView renders the session picker.
func (m Model) sessionsView() string {
	titleStyle := lipgloss.NewStyle().Foreground(m.theme.Primary).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(m.theme.Muted)
	errStyle := lipgloss.NewStyle().Foreground(m.theme.Error)

	var b strings.Builder
	b.WriteString(titleStyle.Render("epilog replay — sessions"))
	b.WriteString("\n\n")

	switch {
	case m.loadErr != "":
		b.WriteString(errStyle.Render("cannot reach API: " + m.loadErr))
		b.WriteString("\n\n")
		b.WriteString(mutedStyle.Render("r retry · q quit"))
		return b.String()
	case len(m.sessions) == 0:
		b.WriteString(mutedStyle.Render("no sessions recorded yet"))
		b.WriteString("\n\n")
		b.WriteString(mutedStyle.Render("r refresh · q quit"))
		return b.String()
	}

	for i, sess := range m.sessions {
		b.WriteString(m.sessionRow(sess, i == m.sessionIdx))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("enter open · j/k move · r refresh · q quit"))
	return b.String()
}

// sessionRow renders a single picker row.
func (m Model) sessionRow(sess trace.Session, selected bool) string {
	name := sess.Name
	if name == "" {
		name = sess.ID
	}

	statusStyle := lipgloss.NewStyle().Foreground(m.theme.Muted)
	switch sess.Status {
	case trace.SessionRunning:
		statusStyle = statusStyle.Foreground(m.theme.Success)
	case trace.SessionFailed:
		statusStyle = statusStyle.Foreground(m.theme.Error)
	}

	row := fmt.Sprintf("%-40s %s %4d events  %s",
		truncate(name, 40),
		statusStyle.Render(fmt.Sprintf("%-10s", sess.Status)),
		sess.EventCount,
		sess.StartedAt.Local().Format(time.DateTime))

	if selected {
		return lipgloss.NewStyle().Foreground(m.theme.Primary).Render("> " + row)
	}
	return "  " + row
}

// truncate cuts s to max runes, appending "..." when cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
