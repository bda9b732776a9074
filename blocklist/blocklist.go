// Package blocklist matches model-generated command text against an
// ordered list of dangerous-command patterns sourced from a CSV file.
//
// Matching is deliberately a substring / pipe-chain heuristic, not a
// shell parser: it is a defense-in-depth layer that catches the common
// destructive invocations but cannot defeat deliberate obfuscation
// (variable expansion, command substitution, encoding tricks).
package blocklist

import (
	_ "embed"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
)

//go:embed default_blocked_commands.csv
var defaultCSV string

// List is an immutable, ordered set of blocked-command patterns.
// Order is significant: IsBlocked returns the first matching pattern.
type List struct {
	patterns []string
}

// New builds a List from already-loaded patterns, for callers that
// prefer dependency injection over the process-wide Default.
func New(patterns []string) *List {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return &List{patterns: out}
}

// Patterns returns a copy of the pattern list in load order.
func (l *List) Patterns() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.patterns))
	copy(out, l.patterns)
	return out
}

// LoadFile reads patterns from a CSV source with at least "command"
// and "type" header columns; rows whose type equals "blocked"
// (case-insensitive, trimmed) contribute their command as a pattern.
//
// A missing file or a header without the required columns degrades to
// an empty list with a slog warning. Malformed input never aborts the
// caller: this loader runs at agent startup and a broken blocklist
// must not take the whole tool down.
func LoadFile(path string) *List {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("blocklist: cannot open source, no commands loaded", "path", path, "error", err)
		}
		return New(nil)
	}
	defer f.Close()
	return load(f, path)
}

func load(r io.Reader, name string) *List {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		slog.Warn("blocklist: source has no header row, no commands loaded", "path", name, "error", err)
		return New(nil)
	}
	cmdIdx, typeIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "command":
			cmdIdx = i
		case "type":
			typeIdx = i
		}
	}
	if cmdIdx < 0 || typeIdx < 0 {
		slog.Warn("blocklist: source is missing required 'command'/'type' columns, no commands loaded", "path", name)
		return New(nil)
	}

	var patterns []string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.Warn("blocklist: skipping malformed row", "path", name, "error", err)
			continue
		}
		if cmdIdx >= len(row) || typeIdx >= len(row) {
			continue
		}
		if strings.ToLower(strings.TrimSpace(row[typeIdx])) == "blocked" {
			patterns = append(patterns, strings.TrimSpace(row[cmdIdx]))
		}
	}
	return New(patterns)
}

var (
	defaultMu   sync.Mutex
	defaultList *List
)

// Default returns the process-wide blocklist, loading it on first use.
// When path is empty the bundled default CSV is used. The first
// successful load wins; concurrent first callers serialize on a mutex
// so the load happens once.
func Default(path string) *List {
	if l := currentDefault(); l != nil {
		return l
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultList == nil {
		defaultList = loadDefault(path)
	}
	return defaultList
}

// Reload discards the cached process-wide list and loads it again from
// path (or the bundled CSV when path is empty).
func Reload(path string) *List {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultList = loadDefault(path)
	return defaultList
}

func currentDefault() *List {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultList
}

func loadDefault(path string) *List {
	if strings.TrimSpace(path) != "" {
		return LoadFile(path)
	}
	return load(strings.NewReader(defaultCSV), "embedded default")
}

var pipeSplit = regexp.MustCompile(`\s*\|\s*`)

// IsBlocked reports whether text contains any blocked pattern,
// returning the first matching pattern in load order. Pure function:
// no I/O, no side effects.
//
// A pattern containing "|" is a two-stage pipe-chain rule: "curl|bash"
// matches when some pipe stage of text begins with "curl" and a later
// stage begins with "bash". A plain pattern matches by substring.
func (l *List) IsBlocked(text string) (bool, string) {
	if l == nil || len(l.patterns) == 0 {
		return false, ""
	}
	textLower := strings.ToLower(strings.TrimSpace(text))
	for _, pattern := range l.patterns {
		patLower := strings.ToLower(strings.TrimSpace(pattern))
		if patLower == "" {
			continue
		}
		if strings.Contains(patLower, "|") {
			if matchPipeChain(textLower, patLower) {
				return true, pattern
			}
		}
		if strings.Contains(textLower, patLower) {
			return true, pattern
		}
	}
	return false, ""
}

func matchPipeChain(text, pattern string) bool {
	patParts := strings.Split(pattern, "|")
	if len(patParts) != 2 {
		return false
	}
	left := strings.TrimSpace(patParts[0])
	right := strings.TrimSpace(patParts[1])

	stages := pipeSplit.Split(text, -1)
	if len(stages) < 2 {
		return false
	}
	for i := 0; i < len(stages)-1; i++ {
		if !strings.HasPrefix(strings.TrimSpace(stages[i]), left) {
			continue
		}
		for j := i + 1; j < len(stages); j++ {
			if strings.HasPrefix(strings.TrimSpace(stages[j]), right) {
				return true
			}
		}
	}
	return false
}
