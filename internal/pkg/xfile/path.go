package xfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveUnder validates that path stays inside base after cleaning and
// symlink resolution, and returns its canonical absolute form. The base
// directory must exist; the target itself may not exist yet, in which case
// symlinks are resolved over its longest existing ancestor.
func ResolveUnder(base, path string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve base %q: %w", base, err)
	}

	resolvedBase, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		return "", fmt.Errorf("resolve base %q: %w", base, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}

	resolved, err := resolveExisting(absPath)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}

	if !within(resolvedBase, resolved) {
		return "", fmt.Errorf("path %q escapes base directory %q", path, base)
	}

	return resolved, nil
}

// resolveExisting resolves symlinks over the longest existing prefix of
// path, reattaching the non-existing remainder unchanged.
func resolveExisting(path string) (string, error) {
	remainder := ""

	for p := path; ; {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			return filepath.Join(resolved, remainder), nil
		}

		if !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(p)
		if parent == p {
			return "", err
		}

		remainder = filepath.Join(filepath.Base(p), remainder)
		p = parent
	}
}

func within(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}

	if rel == "." {
		return true
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
