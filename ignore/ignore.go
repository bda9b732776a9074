// Package ignore parses gitignore-style pattern files and evaluates
// relative paths against them. Pattern order is significant: a later
// pattern overrides the verdict of an earlier one, so a negated
// pattern ("!important.log") can re-include a path an earlier pattern
// excluded. This mirrors how conventional ignore-file tooling behaves.
package ignore

import (
	"bufio"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ParseFile reads a pattern file, returning raw patterns in file order
// with blank lines and "#" comments removed. A missing file yields nil
// without an error: the absence of an ignore file simply means no
// exclusions.
func ParseFile(p string) ([]string, error) {
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return patterns, nil
}

// Negated reports whether pattern is a negation ("!...") rule.
func Negated(pattern string) bool {
	return strings.HasPrefix(pattern, "!")
}

// Clean strips the negation prefix and any trailing slash, returning
// the form a path is actually tested against.
func Clean(pattern string) string {
	return strings.TrimSuffix(strings.TrimPrefix(pattern, "!"), "/")
}

// Match reports whether relPath (slash-separated, relative to the
// pattern file's directory) is ignored by patterns. Patterns are
// evaluated in order while maintaining a running verdict; each
// matching pattern sets the verdict to !negated, so file order decides
// conflicts.
func Match(relPath string, patterns []string) bool {
	relPath = strings.TrimPrefix(path.Clean(strings.ReplaceAll(relPath, "\\", "/")), "./")

	ignored := false
	for _, pattern := range patterns {
		neg := Negated(pattern)
		pat := Clean(pattern)
		if pat == "" {
			continue
		}
		if matchOne(relPath, pat) {
			ignored = !neg
		}
	}
	return ignored
}

func matchOne(relPath, pat string) bool {
	// Glob against the full relative path.
	if ok, err := doublestar.Match(pat, relPath); err == nil && ok {
		return true
	}
	// Glob against the basename, so "*.log" hits "sub/debug.log".
	if ok, err := doublestar.Match(pat, path.Base(relPath)); err == nil && ok {
		return true
	}
	// A glob that names a directory covers everything beneath it:
	// "build/*" reaches "build/sub/file.txt", "dir*" reaches
	// "dir1/file". fnmatch-style matchers let "*" cross "/"; doublestar
	// does not, so the descent has to be explicit.
	if ok, err := doublestar.Match(pat+"/**", relPath); err == nil && ok {
		return true
	}
	// "dir/**" covers everything beneath dir.
	if strings.HasSuffix(pat, "/**") && strings.HasPrefix(relPath, strings.TrimSuffix(pat, "/**")+"/") {
		return true
	}
	// A bare directory-style pattern covers the directory itself and
	// its contents, but never a sibling that merely shares the prefix.
	if relPath == pat || strings.HasPrefix(relPath, pat+"/") {
		return true
	}
	return false
}
