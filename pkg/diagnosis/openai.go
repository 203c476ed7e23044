package diagnosis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"epilog/pkg/trace"
)

// OpenAIClient is the slice of the OpenAI API the provider needs. Tests
// substitute a fake.
type OpenAIClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider implements Provider against any OpenAI-compatible
// endpoint.
type OpenAIProvider struct {
	client OpenAIClient
	model  string
}

// NewOpenAIProvider builds a provider for the given API key, base URL
// (empty for api.openai.com), and model.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model}
}

// NewOpenAIProviderWithClient builds a provider around a custom client
// (useful for testing).
func NewOpenAIProviderWithClient(client OpenAIClient, model string) *OpenAIProvider {
	return &OpenAIProvider{client: client, model: model}
}

const diagnosePromptFmt = `You are an expert AI debugger.
Analyze the following execution trace events leading up to a failure.

RECENT CONTEXT:
%s

TARGET EVENT (WHERE FAILURE OCCURRED):
%s

TASK:
Compare the thought or action in the target event with the provided screenshot (if any).
Identify whether there is a mismatch between what the agent intended to do and what happened visually.

OUTPUT FORMAT:
Return a JSON object with:
- incident_summary: concise description of the failure.
- visual_mismatch_identified: boolean.
- explanation: detailed explanation of the mismatch or failure.
- suggested_fix_logic: high-level logic required to fix the code.`

const patchPromptFmt = `You are an expert software engineer.
An agent failed with the following diagnosis:

DIAGNOSIS:
%s

FIX LOGIC:
%s

SOURCE CODE (from %s):
%s

TASK:
Generate a standard unified diff patch that fixes the bug.
Ensure the diff is valid and can be applied with the patch utility.

OUTPUT:
Return ONLY the raw unified diff string. No commentary.`

// Diagnose asks the model for a structured report. Model or parse failures
// degrade to a "manual review required" report rather than an error, so a
// flaky oracle never fails the diagnose endpoint outright.
func (p *OpenAIProvider) Diagnose(ctx context.Context, window []trace.Event, target trace.Event, screenshot []byte) (trace.DiagnosisReport, error) {
	contextJSON, _ := json.MarshalIndent(window, "", "  ")
	targetJSON, _ := json.MarshalIndent(target, "", "  ")
	prompt := fmt.Sprintf(diagnosePromptFmt, contextJSON, targetJSON)

	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if screenshot != nil {
		msg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: imageDataURL(screenshot),
				},
			},
		}
	} else {
		msg.Content = prompt
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: []openai.ChatCompletionMessage{msg},
	})
	if err != nil {
		return fallbackReport("AI generation error", fmt.Sprintf("Diagnosis generation failed: %v", err)), nil
	}
	if len(resp.Choices) == 0 {
		return fallbackReport("AI generation error", "Model returned no choices"), nil
	}

	var report trace.DiagnosisReport
	text := stripFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		return fallbackReport("AI analysis error", fmt.Sprintf("Failed to parse model response: %v", err)), nil
	}
	return report, nil
}

// GeneratePatch asks the model for a unified diff for the given source.
func (p *OpenAIProvider) GeneratePatch(ctx context.Context, report trace.DiagnosisReport, source, filePath string) (string, error) {
	prompt := fmt.Sprintf(patchPromptFmt, report.Explanation, report.SuggestedFixLogic, filePath, source)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate patch: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generate patch: model returned no choices")
	}
	return stripFences(resp.Choices[0].Message.Content), nil
}

// fallbackReport is the degraded report returned when the oracle cannot be
// reached or its output cannot be parsed.
func fallbackReport(summary, explanation string) trace.DiagnosisReport {
	return trace.DiagnosisReport{
		IncidentSummary:          summary,
		VisualMismatchIdentified: false,
		Explanation:              explanation,
		SuggestedFixLogic:        "Manual review required.",
	}
}

// imageDataURL encodes screenshot bytes as a data URL, sniffing the common
// image formats off the magic bytes.
func imageDataURL(data []byte) string {
	mime := "image/jpeg"
	switch {
	case len(data) >= 8 && string(data[:8]) == "\x89PNG\r\n\x1a\n":
		mime = "image/png"
	case len(data) >= 6 && (string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a"):
		mime = "image/gif"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// stripFences removes a markdown code fence wrapper if present; models
// routinely wrap structured output despite instructions.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}
	// Drop the opening fence (with any language tag) and a closing fence.
	lines = lines[1:]
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			lines = append(lines[:i], lines[i+1:]...)
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
