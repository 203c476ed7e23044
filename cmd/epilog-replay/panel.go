package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"epilog/pkg/diagnose"
	"epilog/pkg/trace"
)

// panelWidth derives the diagnosis panel width from the terminal width.
func panelWidth(termWidth int) int {
	w := termWidth - 4
	if w < 20 {
		w = 20
	}
	return w
}

// panelHeight derives the diagnosis panel height from the terminal height.
func panelHeight(termHeight int) int {
	h := termHeight / 2
	if h < 6 {
		h = 6
	}
	return h
}

// panelView renders the diagnosis result panel around the viewport.
func (m Model) panelView() string {
	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Primary).
		Padding(0, 1)

	title := lipgloss.NewStyle().Foreground(m.theme.Primary).Bold(true).
		Render("Diagnosis")
	if m.workflow.PatchStatus() == diagnose.PatchApplied {
		title += lipgloss.NewStyle().Foreground(m.theme.Success).Render("  [patch applied]")
	} else if m.workflow.PatchStatus() == diagnose.PatchApplying {
		title += "  " + m.spinner.View() + " applying..."
	}

	return borderStyle.Render(title + "\n" + m.panel.View())
}

// renderPanelContent builds the scrollable panel body: the report sections
// followed by the colorized patch, when one exists.
func renderPanelContent(theme Theme, width int, result trace.DiagnosisResult) string {
	if width < 20 {
		width = 20
	}

	headStyle := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true)
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	b.WriteString(headStyle.Render("Summary"))
	b.WriteString("\n")
	b.WriteString(wrap.Render(result.Diagnosis.IncidentSummary))
	b.WriteString("\n\n")

	if result.Diagnosis.VisualMismatchIdentified {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Warning).Render("Visual mismatch identified"))
		b.WriteString("\n\n")
	}

	b.WriteString(headStyle.Render("Explanation"))
	b.WriteString("\n")
	b.WriteString(wrap.Render(result.Diagnosis.Explanation))
	b.WriteString("\n\n")

	b.WriteString(headStyle.Render("Suggested fix"))
	b.WriteString("\n")
	b.WriteString(wrap.Render(result.Diagnosis.SuggestedFixLogic))

	if result.HasPatch() {
		b.WriteString("\n\n")
		b.WriteString(headStyle.Render("Patch"))
		b.WriteString("\n")
		b.WriteString(colorizeDiff(theme, *result.Patch))
	}

	return b.String()
}

// colorizeDiff styles added and removed lines of a unified diff.
func colorizeDiff(theme Theme, diff string) string {
	addStyle := lipgloss.NewStyle().Foreground(theme.Added)
	delStyle := lipgloss.NewStyle().Foreground(theme.Removed)
	hunkStyle := lipgloss.NewStyle().Foreground(theme.Secondary)

	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = hunkStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = hunkStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = addStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = delStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
