package guard

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/nyxmori/warden/ignore"
	"github.com/nyxmori/warden/internal/pathutil"
)

// Ignore files read from the working-directory root. Generic patterns
// load first so the agent-specific file can tighten or relax them.
const (
	genericIgnoreFile = ".gitignore"
	agentIgnoreFile   = ".ai-ignore"
)

// FileGuard confines file access to a working directory and excludes
// paths matched by the directory's ignore files. A FileGuard is
// immutable after construction; reconfiguration means building a new
// one.
type FileGuard struct {
	workingDir string
	patterns   []string
	enabled    bool
}

// NewFileGuard builds a guard rooted at workingDir. When enabled is
// false or workingDir is empty the guard fails open: containment is
// opt-in, never implicit. Ignore patterns come from .gitignore and
// .ai-ignore directly under workingDir, in that order.
func NewFileGuard(workingDir string, enabled bool) *FileGuard {
	g := &FileGuard{enabled: enabled}
	workingDir = strings.TrimSpace(workingDir)
	if workingDir == "" {
		return g
	}
	abs, err := filepath.Abs(pathutil.ExpandHomePath(workingDir))
	if err != nil {
		slog.Warn("guard: cannot resolve working directory, containment disabled", "dir", workingDir, "error", err)
		return g
	}
	g.workingDir = abs

	for _, name := range []string{genericIgnoreFile, agentIgnoreFile} {
		pats, err := ignore.ParseFile(filepath.Join(abs, name))
		if err != nil {
			slog.Warn("guard: cannot read ignore file", "file", name, "error", err)
			continue
		}
		g.patterns = append(g.patterns, pats...)
	}
	return g
}

func (g *FileGuard) Enabled() bool {
	return g != nil && g.enabled
}

// WorkingDir returns the absolute working directory, or "" when
// containment is not configured.
func (g *FileGuard) WorkingDir() string {
	if g == nil {
		return ""
	}
	return g.workingDir
}

// Patterns returns the raw ignore patterns in evaluation order.
func (g *FileGuard) Patterns() []string {
	if g == nil {
		return nil
	}
	out := make([]string, len(g.patterns))
	copy(out, g.patterns)
	return out
}

// IsPathAllowed decides whether the agent may touch path. Symlinks are
// resolved on both the candidate and the working directory before the
// boundary comparison, so a link inside the tree cannot smuggle access
// to a target outside it. Never returns an error: a path that cannot
// be resolved is denied with a reason, and escalation is the caller's
// job.
func (g *FileGuard) IsPathAllowed(path string) (bool, string) {
	if !g.Enabled() || g.workingDir == "" {
		return true, ""
	}

	resolved, err := pathutil.ResolveSymlinks(path)
	if err != nil {
		return false, fmt.Sprintf("path %q cannot be resolved: %v", path, err)
	}
	root, err := pathutil.ResolveSymlinks(g.workingDir)
	if err != nil {
		return false, fmt.Sprintf("working directory %q cannot be resolved: %v", g.workingDir, err)
	}

	if !pathutil.WithinDir(root, resolved) {
		return false, fmt.Sprintf("path %q is outside the allowed working directory", path)
	}

	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return false, fmt.Sprintf("path %q is outside the allowed working directory", path)
	}
	if len(g.patterns) > 0 && ignore.Match(filepath.ToSlash(rel), g.patterns) {
		return false, fmt.Sprintf("path %q matches an ignore pattern and is protected", path)
	}
	return true, ""
}

// ProtectedPatternsText renders the non-negated patterns as a bulleted
// list for inclusion in the model-facing prompt, so the model is told
// up front what it must not touch. Negated patterns are exceptions,
// not prohibitions, and are left out.
func (g *FileGuard) ProtectedPatternsText() string {
	if g == nil || len(g.patterns) == 0 {
		return ""
	}
	var lines []string
	for _, p := range g.patterns {
		if ignore.Negated(p) {
			continue
		}
		lines = append(lines, "  - "+p)
	}
	return strings.Join(lines, "\n")
}
