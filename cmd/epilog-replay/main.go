// Package main implements the epilog-replay interactive trace timeline.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	apiURL := flag.String("api", "http://localhost:8000", "trace API base URL")
	fromFile := flag.String("from-file", "", "replay a local JSONL trace dump instead of the API")
	flag.Parse()

	// A panic inside the update loop must not leave the terminal in the
	// alternate screen; bubbletea restores it on the way out of Run, so
	// recover after Run returns and report.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "epilog-replay crashed: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	p := tea.NewProgram(newModel(*apiURL, *fromFile), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running replay: %v\n", err)
		os.Exit(1)
	}
}
