package diagnosis

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"epilog/pkg/trace"
)

// windowSize is how many preceding events accompany the target event.
const windowSize = 5

// EventSource is the slice of the trace store the engine reads from.
type EventSource interface {
	EventByID(ctx context.Context, eventID int64) (trace.Event, error)
	ContextWindow(ctx context.Context, target trace.Event, limit int) ([]trace.Event, error)
	Screenshot(ctx context.Context, eventID int64) ([]byte, error)
}

// Engine orchestrates the diagnosis loop for a single event: context
// assembly, the provider call, and optional patch synthesis.
type Engine struct {
	provider    Provider
	source      EventSource
	projectRoot string
}

// NewEngine builds an engine. projectRoot may be empty, in which case no
// patch is generated.
func NewEngine(provider Provider, source EventSource, projectRoot string) *Engine {
	return &Engine{provider: provider, source: source, projectRoot: projectRoot}
}

// RunDiagnosis executes the full loop for eventID. The returned result
// always carries a report; Patch is nil when no source file could be
// resolved or the model produced nothing usable.
func (e *Engine) RunDiagnosis(ctx context.Context, eventID int64) (trace.DiagnosisResult, error) {
	target, err := e.source.EventByID(ctx, eventID)
	if err != nil {
		return trace.DiagnosisResult{}, err
	}

	window, err := e.source.ContextWindow(ctx, target, windowSize)
	if err != nil {
		return trace.DiagnosisResult{}, fmt.Errorf("fetch context window: %w", err)
	}

	var screenshot []byte
	if target.HasScreenshot {
		screenshot, err = e.source.Screenshot(ctx, target.ID)
		if err != nil {
			// A missing screenshot degrades the diagnosis, it does not
			// block it.
			log.Printf("diagnosis: screenshot for event %d unavailable: %v", target.ID, err)
			screenshot = nil
		}
	}

	report, err := e.provider.Diagnose(ctx, window, target, screenshot)
	if err != nil {
		return trace.DiagnosisResult{}, fmt.Errorf("diagnose event %d: %w", eventID, err)
	}

	result := trace.DiagnosisResult{Diagnosis: report}
	if patch := e.generatePatch(ctx, report, target); patch != "" {
		result.Patch = &patch
	}
	return result, nil
}

// generatePatch resolves the source file named by the event metadata and
// asks the provider for a fix. Any failure here is logged and swallowed;
// the diagnosis itself is still useful without a patch.
func (e *Engine) generatePatch(ctx context.Context, report trace.DiagnosisReport, target trace.Event) string {
	if e.projectRoot == "" {
		return ""
	}

	filePath := sourceFileFromEvent(target)
	if filePath == "" {
		return ""
	}

	fullPath, err := resolveUnderRoot(e.projectRoot, filePath)
	if err != nil {
		log.Printf("diagnosis: rejecting source path %q: %v", filePath, err)
		return ""
	}

	source, err := os.ReadFile(fullPath)
	if err != nil {
		return ""
	}

	patch, err := e.provider.GeneratePatch(ctx, report, string(source), filePath)
	if err != nil {
		log.Printf("diagnosis: patch generation failed for %s: %v", filePath, err)
		return ""
	}

	patch = strings.TrimSpace(patch)
	if patch == "" {
		return ""
	}
	if looksLikeUnifiedDiff(patch) {
		return patch
	}

	// Some models return the corrected file wholesale; derive the diff
	// ourselves.
	return synthesizeUnifiedDiff(string(source), patch+"\n", filePath)
}

// sourceFileFromEvent extracts metadata.source_file from the event payload.
func sourceFileFromEvent(ev trace.Event) string {
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

// resolveUnderRoot joins path under root and rejects escapes.
func resolveUnderRoot(root, path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("absolute path not allowed")
	}
	full := filepath.Join(root, path)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes project root")
	}
	return full, nil
}
