// Package timeline implements the replay core: an ordered, deduplicated
// event log and the scrub position controller that maps a continuous
// position onto a discrete event index with tail-follow semantics.
//
// Both types are plain single-owner state. The Bubble Tea update loop (or a
// test) drives every transition; nothing here starts goroutines.
package timeline

import (
	"sort"

	"epilog/pkg/trace"
)

// Log is the ordered set of trace events for the selected session.
// Events are unique by ID and kept ascending regardless of arrival order,
// so reconnect replays and out-of-order delivery are harmless.
type Log struct {
	events []trace.Event
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Insert adds an event, preserving ascending-ID order. An event whose ID is
// already present is ignored. Returns true when the log grew.
func (l *Log) Insert(ev trace.Event) bool {
	i := sort.Search(len(l.events), func(i int) bool {
		return l.events[i].ID >= ev.ID
	})
	if i < len(l.events) && l.events[i].ID == ev.ID {
		return false
	}

	l.events = append(l.events, trace.Event{})
	copy(l.events[i+1:], l.events[i:])
	l.events[i] = ev
	return true
}

// Len returns the number of events in the log.
func (l *Log) Len() int {
	return len(l.events)
}

// At returns the event at index i. The second return is false when i is out
// of range, so callers never need to bounds-check first.
func (l *Log) At(i int) (trace.Event, bool) {
	if i < 0 || i >= len(l.events) {
		return trace.Event{}, false
	}
	return l.events[i], true
}

// Last returns the newest event, if any.
func (l *Log) Last() (trace.Event, bool) {
	return l.At(len(l.events) - 1)
}

// Events returns the ordered events. The returned slice is the log's
// backing storage; callers must not mutate it.
func (l *Log) Events() []trace.Event {
	return l.events
}

// Reset drops all events. Called when switching sessions so that no event
// from the previous session can leak into the new view.
func (l *Log) Reset() {
	l.events = l.events[:0]
}
