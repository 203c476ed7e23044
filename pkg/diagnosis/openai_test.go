package diagnosis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"epilog/pkg/trace"
)

type fakeCompleter struct {
	content string
	err     error

	gotReq openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.gotReq = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func TestDiagnoseParsesReport(t *testing.T) {
	client := &fakeCompleter{content: "```json\n" + `{
  "incident_summary": "wrong selector",
  "visual_mismatch_identified": true,
  "explanation": "the button moved",
  "suggested_fix_logic": "use a stable selector"
}` + "\n```"}

	p := NewOpenAIProviderWithClient(client, "gpt-4o")
	report, err := p.Diagnose(context.Background(), nil, trace.Event{ID: 1}, nil)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if report.IncidentSummary != "wrong selector" || !report.VisualMismatchIdentified {
		t.Errorf("report = %+v", report)
	}
	if client.gotReq.Model != "gpt-4o" {
		t.Errorf("model = %q", client.gotReq.Model)
	}
}

// A transport failure is reported through the report, not the error, so
// callers still render something.
func TestDiagnoseDegradesOnTransportError(t *testing.T) {
	client := &fakeCompleter{err: errors.New("connection refused")}

	p := NewOpenAIProviderWithClient(client, "gpt-4o")
	report, err := p.Diagnose(context.Background(), nil, trace.Event{ID: 1}, nil)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if report.IncidentSummary != "AI generation error" {
		t.Errorf("summary = %q", report.IncidentSummary)
	}
	if report.SuggestedFixLogic != "Manual review required." {
		t.Errorf("fix logic = %q", report.SuggestedFixLogic)
	}
}

func TestDiagnoseDegradesOnUnparseableOutput(t *testing.T) {
	client := &fakeCompleter{content: "I think the problem is..."}

	p := NewOpenAIProviderWithClient(client, "gpt-4o")
	report, err := p.Diagnose(context.Background(), nil, trace.Event{ID: 1}, nil)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if report.IncidentSummary != "AI analysis error" {
		t.Errorf("summary = %q", report.IncidentSummary)
	}
}

func TestDiagnoseAttachesScreenshot(t *testing.T) {
	client := &fakeCompleter{content: "{}"}
	png := []byte("\x89PNG\r\n\x1a\nrest")

	p := NewOpenAIProviderWithClient(client, "gpt-4o")
	if _, err := p.Diagnose(context.Background(), nil, trace.Event{ID: 1}, png); err != nil {
		t.Fatalf("Diagnose: %v", err)
	}

	msg := client.gotReq.Messages[0]
	if len(msg.MultiContent) != 2 {
		t.Fatalf("MultiContent len = %d, want 2", len(msg.MultiContent))
	}
	img := msg.MultiContent[1]
	if img.Type != openai.ChatMessagePartTypeImageURL {
		t.Fatalf("part type = %q", img.Type)
	}
	if !strings.HasPrefix(img.ImageURL.URL, "data:image/png;base64,") {
		t.Errorf("image URL = %q", img.ImageURL.URL)
	}
}

func TestGeneratePatchStripsFences(t *testing.T) {
	client := &fakeCompleter{content: "```diff\n--- a/x.py\n+++ b/x.py\n@@ -1,1 +1,1 @@\n-a\n+b\n```"}

	p := NewOpenAIProviderWithClient(client, "gpt-4o")
	patch, err := p.GeneratePatch(context.Background(), trace.DiagnosisReport{}, "a\n", "x.py")
	if err != nil {
		t.Fatalf("GeneratePatch: %v", err)
	}
	if strings.Contains(patch, "```") {
		t.Errorf("fences survived: %q", patch)
	}
	if !looksLikeUnifiedDiff(patch) {
		t.Errorf("patch = %q", patch)
	}
}

func TestGeneratePatchPropagatesError(t *testing.T) {
	client := &fakeCompleter{err: errors.New("rate limited")}

	p := NewOpenAIProviderWithClient(client, "gpt-4o")
	if _, err := p.GeneratePatch(context.Background(), trace.DiagnosisReport{}, "a\n", "x.py"); err == nil {
		t.Fatal("expected error")
	}
}
