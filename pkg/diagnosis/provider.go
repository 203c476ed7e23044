// Package diagnosis implements the server-side diagnosis engine: it
// assembles a temporal context window around a target event, asks a model
// provider for a structured report, and synthesizes a unified-diff patch
// when the relevant source file can be located.
package diagnosis

import (
	"context"

	"epilog/pkg/trace"
)

// Provider is the opaque diagnosis oracle. Implementations adapt one model
// API; the engine stays model-agnostic.
type Provider interface {
	// Diagnose analyzes the context window, the target event, and an
	// optional screenshot, returning a structured report.
	Diagnose(ctx context.Context, window []trace.Event, target trace.Event, screenshot []byte) (trace.DiagnosisReport, error)

	// GeneratePatch produces a unified diff fixing the diagnosed problem
	// in the given source file.
	GeneratePatch(ctx context.Context, report trace.DiagnosisReport, source, filePath string) (string, error)
}
