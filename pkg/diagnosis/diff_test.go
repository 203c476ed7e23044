package diagnosis

import (
	"strings"
	"testing"
)

// TestLooksLikeUnifiedDiff classifies model output shapes.
func TestLooksLikeUnifiedDiff(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{
			name: "real unified diff",
			text: "--- a/agent.py\n+++ b/agent.py\n@@ -1,2 +1,2 @@\n-old\n+new\n",
			want: true,
		},
		{
			name: "corrected file dump",
			text: "def step():\n    return True\n",
			want: false,
		},
		{
			name: "empty",
			text: "",
			want: false,
		},
		{
			name: "decorator is not a hunk header",
			text: "@@property\ndef x(self): ...",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksLikeUnifiedDiff(tt.text); got != tt.want {
				t.Errorf("looksLikeUnifiedDiff() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestSynthesizeUnifiedDiff verifies a single-line change produces one
// hunk with context and correct markers.
func TestSynthesizeUnifiedDiff(t *testing.T) {
	oldText := "a\nb\nc\nd\ne\nf\ng\nh\ni\n"
	newText := "a\nb\nc\nd\nE\nf\ng\nh\ni\n"

	diff := synthesizeUnifiedDiff(oldText, newText, "agent.py")

	if !strings.HasPrefix(diff, "--- a/agent.py\n+++ b/agent.py\n") {
		t.Fatalf("diff missing file headers:\n%s", diff)
	}
	for _, want := range []string{"-e\n", "+E\n", " d\n", " f\n"} {
		if !strings.Contains(diff, want) {
			t.Errorf("diff missing %q:\n%s", want, diff)
		}
	}
	if strings.Contains(diff, " a\n") {
		t.Errorf("diff includes line outside context window:\n%s", diff)
	}
	if !looksLikeUnifiedDiff(diff) {
		t.Errorf("synthesized diff fails own classifier:\n%s", diff)
	}
}

// TestSynthesizeUnifiedDiffIdentical verifies identical inputs yield "".
func TestSynthesizeUnifiedDiffIdentical(t *testing.T) {
	text := "same\ncontent\n"
	if diff := synthesizeUnifiedDiff(text, text, "x.py"); diff != "" {
		t.Errorf("diff for identical content = %q, want empty", diff)
	}
}

// TestSynthesizeUnifiedDiffDistantChanges verifies changes far apart land
// in separate hunks.
func TestSynthesizeUnifiedDiffDistantChanges(t *testing.T) {
	lines := make([]string, 40)
	for i := range lines {
		lines[i] = "line"
	}
	oldText := strings.Join(lines, "\n") + "\n"

	changed := make([]string, 40)
	copy(changed, lines)
	changed[0] = "first"
	changed[39] = "last"
	newText := strings.Join(changed, "\n") + "\n"

	diff := synthesizeUnifiedDiff(oldText, newText, "x.py")

	if got := strings.Count(diff, "@@ -"); got != 2 {
		t.Errorf("hunk count = %d, want 2:\n%s", got, diff)
	}
	if !strings.Contains(diff, "+first\n") || !strings.Contains(diff, "+last\n") {
		t.Errorf("diff missing changed lines:\n%s", diff)
	}
}

// TestStripFences covers the markdown wrappers models produce.
func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no fence", in: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "diff fence", in: "```diff\n--- a/x\n+++ b/x\n```", want: "--- a/x\n+++ b/x"},
		{name: "bare fence", in: "```\ntext\n```", want: "text"},
		{name: "unterminated fence", in: "```diff\n-a\n+b", want: "-a\n+b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.in); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
