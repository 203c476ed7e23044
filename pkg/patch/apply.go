// Package patch applies model-generated unified diffs to files under a
// configured project root, using the system patch utility.
package patch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Applier applies unified diffs inside one project root. The root is the
// trust boundary: paths that resolve outside it are rejected before any
// file is touched.
type Applier struct {
	root string
}

// NewApplier creates an applier rooted at projectRoot.
func NewApplier(projectRoot string) *Applier {
	return &Applier{root: projectRoot}
}

// Apply patches filePath (relative to the project root) with diffContent.
// The target must already exist; patching never creates files. The patch
// utility's stderr becomes the error message on failure.
func (a *Applier) Apply(ctx context.Context, filePath, diffContent string) error {
	if strings.TrimSpace(diffContent) == "" {
		return fmt.Errorf("empty diff")
	}

	fullPath, err := a.resolve(filePath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(fullPath); err != nil {
		return fmt.Errorf("target file %s: %w", filePath, err)
	}

	tmp, err := os.CreateTemp("", "epilog-*.diff")
	if err != nil {
		return fmt.Errorf("write temp diff: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(diffContent); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp diff: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write temp diff: %w", err)
	}

	cmd := exec.CommandContext(ctx, "patch", "-u", fullPath, "-i", tmp.Name())
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("patch failed: %s", msg)
	}
	return nil
}

// resolve joins filePath under the root and rejects traversal outside it.
func (a *Applier) resolve(filePath string) (string, error) {
	if filePath == "" {
		return "", fmt.Errorf("empty file path")
	}
	if filepath.IsAbs(filePath) {
		return "", fmt.Errorf("absolute path not allowed: %s", filePath)
	}

	full := filepath.Join(a.root, filePath)
	rel, err := filepath.Rel(a.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes project root: %s", filePath)
	}
	return full, nil
}
