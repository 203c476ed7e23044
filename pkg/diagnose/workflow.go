// Package diagnose implements the per-event diagnosis workflow as an
// explicit state machine: Idle -> Pending -> Succeeded|Failed for the
// request, NotApplied -> Applying -> Applied for the patch. Every
// transition is a synchronous method on Workflow, so the machine can be
// unit-tested without a rendering surface and a timeout layered on top is
// just another path to Failed.
package diagnose

import "epilog/pkg/trace"

// State is the lifecycle state of the visible diagnosis request.
type State int

// Diagnosis request states.
const (
	StateIdle State = iota
	StatePending
	StateSucceeded
	StateFailed
)

// String returns the state name for logs and test failures.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PatchState is the lifecycle state of the patch bound to the open panel.
type PatchState int

// Patch apply states. Applied is terminal for a panel instance.
const (
	PatchNotApplied PatchState = iota
	PatchApplying
	PatchApplied
)

// Workflow tracks the diagnosis lifecycle for the replay view. Concurrent
// requests for different events may be in flight on the network, but the
// workflow tracks exactly one id; resolutions for any other id are stale
// and dropped, so the visible panel has single-writer semantics.
type Workflow struct {
	state      State
	inflightID int64
	panelID    int64
	result     *trace.DiagnosisResult
	errMsg     string
	patch      PatchState
}

// State returns the current request state.
func (w *Workflow) State() State {
	return w.state
}

// InflightID returns the event id the spinner is attributed to. Zero when
// nothing is pending.
func (w *Workflow) InflightID() int64 {
	if w.state != StatePending {
		return 0
	}
	return w.inflightID
}

// PanelEventID returns the event id the open panel is bound to, or zero.
func (w *Workflow) PanelEventID() int64 {
	if w.state != StateSucceeded {
		return 0
	}
	return w.panelID
}

// Result returns the DiagnosisResult shown in the open panel, or nil.
func (w *Workflow) Result() *trace.DiagnosisResult {
	if w.state != StateSucceeded {
		return nil
	}
	return w.result
}

// ErrMessage returns the dismissible failure message, or "".
func (w *Workflow) ErrMessage() string {
	if w.state != StateFailed {
		return ""
	}
	return w.errMsg
}

// PatchStatus returns the apply state of the open panel's patch.
func (w *Workflow) PatchStatus() PatchState {
	return w.patch
}

// Begin records eventID as the tracked in-flight request. An open panel is
// closed first; no two results are ever visible at once. An earlier pending
// request for another id is not cancelled, merely superseded: its eventual
// resolution will be dropped as stale.
func (w *Workflow) Begin(eventID int64) {
	w.closePanelState()
	w.state = StatePending
	w.inflightID = eventID
	w.errMsg = ""
}

// Resolve delivers a successful diagnosis for eventID. Returns false when
// the resolution is stale (not the tracked in-flight id) and was dropped.
// On success the panel opens bound to this event and the patch state
// resets to NotApplied.
func (w *Workflow) Resolve(eventID int64, result trace.DiagnosisResult) bool {
	if w.state != StatePending || w.inflightID != eventID {
		return false
	}
	w.state = StateSucceeded
	w.panelID = eventID
	w.result = &result
	w.inflightID = 0
	w.patch = PatchNotApplied
	return true
}

// Fail delivers a failed diagnosis for eventID. Stale failures are dropped
// the same way stale successes are. The message is surfaced verbatim as a
// dismissible error; no panel opens.
func (w *Workflow) Fail(eventID int64, message string) bool {
	if w.state != StatePending || w.inflightID != eventID {
		return false
	}
	w.state = StateFailed
	w.errMsg = message
	w.inflightID = 0
	return true
}

// DismissError clears a Failed state back to Idle. No side effects.
func (w *Workflow) DismissError() {
	if w.state != StateFailed {
		return
	}
	w.state = StateIdle
	w.errMsg = ""
}

// ClosePanel clears a Succeeded state back to Idle and discards the result.
func (w *Workflow) ClosePanel() {
	w.closePanelState()
}

func (w *Workflow) closePanelState() {
	if w.state == StateSucceeded {
		w.state = StateIdle
	}
	w.result = nil
	w.panelID = 0
	w.patch = PatchNotApplied
}

// BeginApply starts applying the open panel's patch. Returns false unless a
// panel is open with a non-null patch still in NotApplied: re-invoking
// after (or during) an apply is a no-op, which is the idempotence guarantee
// the UI relies on regardless of the apply endpoint's own behavior.
func (w *Workflow) BeginApply() bool {
	if w.state != StateSucceeded || w.result == nil || !w.result.HasPatch() {
		return false
	}
	if w.patch != PatchNotApplied {
		return false
	}
	w.patch = PatchApplying
	return true
}

// FinishApply records the outcome of the apply call started by BeginApply.
// Success is terminal; failure returns the patch to NotApplied so the
// operator may retry.
func (w *Workflow) FinishApply(ok bool) {
	if w.patch != PatchApplying {
		return
	}
	if ok {
		w.patch = PatchApplied
	} else {
		w.patch = PatchNotApplied
	}
}
