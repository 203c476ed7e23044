package diagnosis

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is the unified-diff context emitted around changed lines.
const contextLines = 3

// looksLikeUnifiedDiff reports whether text already carries unified-diff
// structure.
func looksLikeUnifiedDiff(text string) bool {
	return strings.Contains(text, "@@") &&
		(strings.Contains(text, "--- ") || strings.Contains(text, "+++ "))
}

// lineOp is one line of a line-level diff.
type lineOp struct {
	op   diffmatchpatch.Operation
	text string
}

// synthesizeUnifiedDiff computes a unified diff between two file contents.
// Used when the model returns a corrected file instead of a patch. Returns
// "" when the contents are identical.
func synthesizeUnifiedDiff(oldText, newText, filePath string) string {
	if oldText == newText {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lineIndex := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineIndex)

	ops := flattenLines(diffs)
	hunks := buildHunks(ops)
	if len(hunks) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n", filePath)
	fmt.Fprintf(&sb, "+++ b/%s\n", filePath)
	sb.WriteString(strings.Join(hunks, ""))
	return sb.String()
}

// flattenLines turns the line-mode diff into one op per line.
func flattenLines(diffs []diffmatchpatch.Diff) []lineOp {
	var ops []lineOp
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		if text == "" && d.Text != "\n" {
			continue
		}
		for _, line := range strings.Split(text, "\n") {
			ops = append(ops, lineOp{op: d.Type, text: line})
		}
	}
	return ops
}

// buildHunks groups the op list into unified-diff hunks with context.
func buildHunks(ops []lineOp) []string {
	var hunks []string

	i := 0
	oldLine, newLine := 1, 1
	for i < len(ops) {
		if ops[i].op == diffmatchpatch.DiffEqual {
			oldLine++
			newLine++
			i++
			continue
		}

		// Found a change; back up for leading context.
		start := i
		lead := 0
		for start > 0 && lead < contextLines && ops[start-1].op == diffmatchpatch.DiffEqual {
			start--
			lead++
		}

		// Extend through the change run, swallowing short equal gaps so
		// nearby changes share a hunk.
		end := i
		for end < len(ops) {
			if ops[end].op != diffmatchpatch.DiffEqual {
				end++
				continue
			}
			gap := 0
			for end+gap < len(ops) && ops[end+gap].op == diffmatchpatch.DiffEqual {
				gap++
			}
			if end+gap >= len(ops) || gap > 2*contextLines {
				break
			}
			end += gap
		}
		trail := 0
		for end < len(ops) && trail < contextLines && ops[end].op == diffmatchpatch.DiffEqual {
			end++
			trail++
		}

		hunkOldStart := oldLine - lead
		hunkNewStart := newLine - lead

		var body strings.Builder
		oldCount, newCount := 0, 0
		for _, op := range ops[start:end] {
			switch op.op {
			case diffmatchpatch.DiffEqual:
				body.WriteString(" " + op.text + "\n")
				oldCount++
				newCount++
			case diffmatchpatch.DiffDelete:
				body.WriteString("-" + op.text + "\n")
				oldCount++
			case diffmatchpatch.DiffInsert:
				body.WriteString("+" + op.text + "\n")
				newCount++
			}
		}

		hunks = append(hunks, fmt.Sprintf("@@ -%d,%d +%d,%d @@\n%s",
			hunkOldStart, oldCount, hunkNewStart, newCount, body.String()))

		// Advance the line counters over the consumed ops.
		for _, op := range ops[i:end] {
			switch op.op {
			case diffmatchpatch.DiffEqual:
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				oldLine++
			case diffmatchpatch.DiffInsert:
				newLine++
			}
		}
		i = end
	}

	return hunks
}
