package diagnose

import (
	"testing"

	"epilog/pkg/trace"
)

// result builds a DiagnosisResult, optionally with a patch.
func result(summary string, patch string) trace.DiagnosisResult {
	r := trace.DiagnosisResult{
		Diagnosis: trace.DiagnosisReport{IncidentSummary: summary},
	}
	if patch != "" {
		r.Patch = &patch
	}
	return r
}

// TestWorkflowHappyPath walks Idle -> Pending -> Succeeded -> Idle.
func TestWorkflowHappyPath(t *testing.T) {
	var w Workflow

	if w.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", w.State())
	}

	w.Begin(7)
	if w.State() != StatePending || w.InflightID() != 7 {
		t.Fatalf("after Begin: state = %v inflight = %d, want pending/7", w.State(), w.InflightID())
	}

	if !w.Resolve(7, result("stale selector", "")) {
		t.Fatal("Resolve(7) dropped, want accepted")
	}
	if w.State() != StateSucceeded || w.PanelEventID() != 7 {
		t.Fatalf("after Resolve: state = %v panel = %d, want succeeded/7", w.State(), w.PanelEventID())
	}
	if w.Result() == nil || w.Result().Diagnosis.IncidentSummary != "stale selector" {
		t.Errorf("Result() = %+v, want summary 'stale selector'", w.Result())
	}
	if w.InflightID() != 0 {
		t.Errorf("InflightID() after resolve = %d, want 0", w.InflightID())
	}

	w.ClosePanel()
	if w.State() != StateIdle || w.Result() != nil {
		t.Errorf("after ClosePanel: state = %v result = %v, want idle/nil", w.State(), w.Result())
	}
}

// TestStaleSuppression verifies the single-active-panel property: request A
// then B before A resolves; A resolving late must not touch the panel.
func TestStaleSuppression(t *testing.T) {
	var w Workflow

	w.Begin(1) // A
	w.Begin(2) // B supersedes A

	if w.InflightID() != 2 {
		t.Fatalf("InflightID() = %d, want 2", w.InflightID())
	}

	if !w.Resolve(2, result("b", "")) {
		t.Fatal("Resolve(2) dropped, want accepted")
	}
	if w.Resolve(1, result("a", "")) {
		t.Fatal("stale Resolve(1) accepted, want dropped")
	}

	if w.PanelEventID() != 2 {
		t.Errorf("PanelEventID() = %d, want 2", w.PanelEventID())
	}
	if got := w.Result().Diagnosis.IncidentSummary; got != "b" {
		t.Errorf("visible result = %q, want %q", got, "b")
	}
}

// TestStaleFailureSuppressed verifies a late failure for a superseded id
// does not disturb the current request.
func TestStaleFailureSuppressed(t *testing.T) {
	var w Workflow

	w.Begin(1)
	w.Begin(2)

	if w.Fail(1, "boom") {
		t.Fatal("stale Fail(1) accepted, want dropped")
	}
	if w.State() != StatePending || w.InflightID() != 2 {
		t.Errorf("state = %v inflight = %d, want pending/2", w.State(), w.InflightID())
	}
}

// TestFailureAndDismiss walks Pending -> Failed -> Idle.
func TestFailureAndDismiss(t *testing.T) {
	var w Workflow

	w.Begin(3)
	if !w.Fail(3, "diagnosis engine not configured") {
		t.Fatal("Fail(3) dropped, want accepted")
	}

	if w.State() != StateFailed {
		t.Fatalf("state = %v, want failed", w.State())
	}
	if w.ErrMessage() != "diagnosis engine not configured" {
		t.Errorf("ErrMessage() = %q, want verbatim detail", w.ErrMessage())
	}
	if w.InflightID() != 0 {
		t.Errorf("InflightID() = %d, want 0 after failure", w.InflightID())
	}

	w.DismissError()
	if w.State() != StateIdle || w.ErrMessage() != "" {
		t.Errorf("after DismissError: state = %v msg = %q, want idle/empty", w.State(), w.ErrMessage())
	}
}

// TestPatchIdempotence verifies applying twice issues exactly one apply:
// the second BeginApply is a no-op while Applying and after Applied.
func TestPatchIdempotence(t *testing.T) {
	var w Workflow

	w.Begin(5)
	w.Resolve(5, result("fix", "--- a/agent.py\n+++ b/agent.py\n"))

	if w.PatchStatus() != PatchNotApplied {
		t.Fatalf("PatchStatus() = %v, want NotApplied after resolve", w.PatchStatus())
	}

	if !w.BeginApply() {
		t.Fatal("first BeginApply() = false, want true")
	}
	if w.BeginApply() {
		t.Error("BeginApply() while Applying = true, want false")
	}

	w.FinishApply(true)
	if w.PatchStatus() != PatchApplied {
		t.Fatalf("PatchStatus() = %v, want Applied", w.PatchStatus())
	}

	if w.BeginApply() {
		t.Error("BeginApply() after Applied = true, want false (terminal)")
	}
	if w.PatchStatus() != PatchApplied {
		t.Errorf("PatchStatus() = %v, want Applied both times", w.PatchStatus())
	}
}

// TestPatchApplyFailureRetriable verifies a failed apply returns to
// NotApplied so the operator can retry.
func TestPatchApplyFailureRetriable(t *testing.T) {
	var w Workflow

	w.Begin(5)
	w.Resolve(5, result("fix", "some diff"))

	w.BeginApply()
	w.FinishApply(false)

	if w.PatchStatus() != PatchNotApplied {
		t.Fatalf("PatchStatus() = %v, want NotApplied after failed apply", w.PatchStatus())
	}
	if !w.BeginApply() {
		t.Error("BeginApply() retry = false, want true")
	}
}

// TestApplyWithoutPatch verifies BeginApply rejects a patchless result.
func TestApplyWithoutPatch(t *testing.T) {
	var w Workflow

	w.Begin(9)
	w.Resolve(9, result("no fix available", ""))

	if w.BeginApply() {
		t.Error("BeginApply() with null patch = true, want false")
	}
}

// TestNewRequestClosesPanel verifies no two results are ever visible: a new
// Begin while a panel is open discards the old result and its patch state.
func TestNewRequestClosesPanel(t *testing.T) {
	var w Workflow

	w.Begin(1)
	w.Resolve(1, result("first", "diff-1"))
	w.BeginApply()
	w.FinishApply(true)

	w.Begin(2)

	if w.Result() != nil || w.PanelEventID() != 0 {
		t.Errorf("panel still visible after new Begin: %+v", w.Result())
	}
	if w.PatchStatus() != PatchNotApplied {
		t.Errorf("PatchStatus() = %v, want reset to NotApplied", w.PatchStatus())
	}

	// The new request resolves normally.
	if !w.Resolve(2, result("second", "")) {
		t.Error("Resolve(2) dropped, want accepted")
	}
	if got := w.Result().Diagnosis.IncidentSummary; got != "second" {
		t.Errorf("visible result = %q, want %q", got, "second")
	}
}
