package guard

import (
	"fmt"
	"strings"

	"github.com/nyxmori/warden/ignore"
)

// ScanCode heuristically checks code text for references to paths the
// guard protects, before that code ever runs. It complements the
// runtime path check: IsPathAllowed stops the file operation itself,
// this catches the model naming a protected file inside a generated
// command or script.
//
// The check is substring-level on purpose. It is defense-in-depth, not
// a parser, and cannot see through obfuscation.
func ScanCode(code string, g *FileGuard) (bool, string) {
	if !g.Enabled() || len(g.Patterns()) == 0 {
		return false, ""
	}
	for _, pattern := range g.Patterns() {
		if ignore.Negated(pattern) {
			continue
		}
		clean := strings.TrimSuffix(pattern, "/")
		if clean == "" {
			continue
		}
		// Wildcard-extension patterns like *.key: look for the suffix.
		if strings.HasPrefix(clean, "*") {
			suffix := clean[1:]
			if suffix != "" && strings.Contains(code, suffix) {
				return true, fmt.Sprintf("code references protected pattern %q", pattern)
			}
			continue
		}
		if strings.Contains(code, clean) {
			return true, fmt.Sprintf("code references protected file or directory %q", pattern)
		}
	}
	return false, ""
}
