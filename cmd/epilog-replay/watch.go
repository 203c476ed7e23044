package main

import (
	"bufio"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"epilog/pkg/trace"
)

// fileEventsMsg carries events parsed from a local JSONL trace dump.
type fileEventsMsg struct {
	events []trace.Event
	err    error
}

// fileChangedMsg is sent when the watched trace file changes on disk.
type fileChangedMsg struct{}

// watchDebounce coalesces bursts of fsnotify events from appending writers.
const watchDebounce = 200 * time.Millisecond

// loadFileCmd returns a tea.Cmd that reads a JSONL trace dump. One event
// per line; malformed lines are skipped; events without an id get their
// line number, so a dump exported without ids still orders correctly.
func loadFileCmd(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return fileEventsMsg{err: err}
		}
		defer f.Close()

		var events []trace.Event
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
		lineNo := int64(0)
		for scanner.Scan() {
			lineNo++
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var ev trace.Event
			if err := json.Unmarshal(line, &ev); err != nil {
				continue
			}
			if ev.ID == 0 {
				ev.ID = lineNo
			}
			events = append(events, ev)
		}
		return fileEventsMsg{events: events, err: scanner.Err()}
	}
}

// watchFileCmd returns a tea.Cmd that waits for the trace file to change
// and then emits a single fileChangedMsg. The update loop re-arms it after
// each reload. Returns nil events silently if watching is impossible; the
// file is still loadable on demand with "r".
func watchFileCmd(path string) tea.Cmd {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("fsnotify: failed to create watcher: %v", err)
		return nil
	}
	// Watch the directory: editors and exporters often replace the file,
	// which drops a watch set on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		log.Printf("fsnotify: failed to watch %s: %v", path, err)
		return nil
	}

	name := filepath.Base(path)
	return func() tea.Msg {
		defer watcher.Close()

		debounce := time.NewTimer(0)
		if !debounce.Stop() {
			<-debounce.C
		}
		defer debounce.Stop()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				debounce.Reset(watchDebounce)

			case <-debounce.C:
				return fileChangedMsg{}

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				log.Printf("fsnotify: watcher error: %v", err)
				return nil
			}
		}
	}
}
