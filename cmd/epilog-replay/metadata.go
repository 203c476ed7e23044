package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"epilog/pkg/trace"
)

// sourceFileFor extracts metadata.source_file from an event payload.
func sourceFileFor(ev trace.Event) string {
	payload := ev.Payload()
	if payload == nil {
		return ""
	}
	meta, ok := payload["metadata"].(map[string]any)
	if !ok {
		return ""
	}
	file, _ := meta["source_file"].(string)
	return file
}

// renderMetadata formats the active event's payload as aligned key/value
// lines, priority keys first.
func renderMetadata(theme Theme, ev trace.Event) string {
	pairs := trace.ProjectMetadata(ev.Payload())
	if len(pairs) == 0 {
		return lipgloss.NewStyle().Foreground(theme.Muted).Render("(no payload)")
	}

	keyWidth := 0
	for _, p := range pairs {
		if len(p.Key) > keyWidth {
			keyWidth = len(p.Key)
		}
	}

	keyStyle := lipgloss.NewStyle().Foreground(theme.Secondary)
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s  %s",
			keyStyle.Render(fmt.Sprintf("%-*s", keyWidth, p.Key)),
			strings.ReplaceAll(p.Value, "\n", " "))
	}
	return b.String()
}
