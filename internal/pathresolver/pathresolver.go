// Package pathresolver implements the project storage-directory hierarchy
// (C3, spec.md §4.2): a 16-hex-char SHA-256 prefix per absolute project
// path, a back-reference file recording that path, and descendant
// enumeration for hierarchical reads.
package pathresolver

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chirino/agent-memory/internal/config"
)

const backReferenceFile = ".project_path"

// Resolve returns the absolute, cleaned form of path.
func Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// Hash16 returns the first 16 hex characters of SHA-256(resolvedPath).
func Hash16(resolvedPath string) string {
	sum := sha256.Sum256([]byte(resolvedPath))
	return hex.EncodeToString(sum[:])[:16]
}

// ProjectDir returns the storage directory for a project path, creating it
// (and writing/confirming its .project_path back-reference) if needed.
// Two paths with the same absolute resolution always map to the same
// directory (spec.md invariant 6).
func ProjectDir(cfg *config.Config, projectPath string) (string, error) {
	resolved, err := Resolve(projectPath)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(cfg.ProjectsRoot(), Hash16(resolved))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := ensureBackReference(dir, resolved); err != nil {
		return "", err
	}
	return dir, nil
}

// ensureBackReference writes resolvedPath to dir/.project_path only if the
// file is absent, so the back-reference always reflects the path that
// first created the directory (spec.md invariant 6).
func ensureBackReference(dir, resolvedPath string) error {
	ref := filepath.Join(dir, backReferenceFile)
	if _, err := os.Stat(ref); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(ref, []byte(resolvedPath), 0o644)
}

// ReadBackReference returns the project path recorded in dir/.project_path,
// or "" if absent.
func ReadBackReference(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, backReferenceFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Descendants scans base_path/projects/*/.project_path and returns the
// resolved paths of stored projects that are strict descendants of parent.
// Parents with at most two path components are refused (safety against
// scanning the whole filesystem, spec.md §4.2); the limit caps the result
// count (default 20, see config.Config.DescendantScanLimit).
func Descendants(cfg *config.Config, parent string, limit int) ([]string, error) {
	resolvedParent, err := Resolve(parent)
	if err != nil {
		return nil, err
	}
	if countPathComponents(resolvedParent) <= 2 {
		return nil, nil
	}
	if limit <= 0 {
		limit = cfg.DescendantScanLimit
	}

	entries, err := os.ReadDir(cfg.ProjectsRoot())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var descendants []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(cfg.ProjectsRoot(), e.Name())
		stored, err := ReadBackReference(dir)
		if err != nil || stored == "" {
			continue
		}
		if isStrictDescendant(resolvedParent, stored) {
			descendants = append(descendants, stored)
		}
		if len(descendants) >= limit {
			break
		}
	}
	sort.Strings(descendants)
	return descendants, nil
}

func countPathComponents(path string) int {
	clean := filepath.Clean(path)
	clean = strings.Trim(clean, string(filepath.Separator))
	if clean == "" {
		return 0
	}
	return len(strings.Split(clean, string(filepath.Separator)))
}

// isStrictDescendant reports whether child is nested strictly under parent.
func isStrictDescendant(parent, child string) bool {
	if parent == child {
		return false
	}
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}
