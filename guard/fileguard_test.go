package guard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func guardedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gi := ".env\nsecrets/\n*.key\n__pycache__/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gi), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestIsPathAllowedInside(t *testing.T) {
	dir := guardedDir(t)
	g := NewFileGuard(dir, true)

	allowed, reason := g.IsPathAllowed(filepath.Join(dir, "app.go"))
	if !allowed || reason != "" {
		t.Fatalf("expected (true, \"\"), got (%v, %q)", allowed, reason)
	}
}

func TestIsPathAllowedOutside(t *testing.T) {
	dir := guardedDir(t)
	g := NewFileGuard(dir, true)

	allowed, reason := g.IsPathAllowed("/etc/passwd")
	if allowed {
		t.Fatal("path outside working directory must be denied")
	}
	if !strings.Contains(strings.ToLower(reason), "outside") {
		t.Fatalf("reason should name the boundary violation, got %q", reason)
	}
}

func TestIsPathAllowedIgnorePatterns(t *testing.T) {
	dir := guardedDir(t)
	g := NewFileGuard(dir, true)

	cases := []struct {
		name string
		path string
	}{
		{"env_file", filepath.Join(dir, ".env")},
		{"secrets_dir", filepath.Join(dir, "secrets", "api.txt")},
		{"key_glob", filepath.Join(dir, "server.key")},
		{"key_glob_nested", filepath.Join(dir, "certs", "tls.key")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			allowed, reason := g.IsPathAllowed(tc.path)
			if allowed {
				t.Fatalf("%s must be denied", tc.path)
			}
			if !strings.Contains(reason, "ignore pattern") {
				t.Fatalf("reason should name the ignore pattern match, got %q", reason)
			}
		})
	}
}

func TestIsPathAllowedNoPrefixFalsePositive(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("secret\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	g := NewFileGuard(dir, true)

	allowed, _ := g.IsPathAllowed(filepath.Join(dir, "secrets_public.txt"))
	if !allowed {
		t.Fatal("secrets_public.txt must not be blocked by pattern \"secret\"")
	}
}

func TestNegationReincludes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.log\n!important.log\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	g := NewFileGuard(dir, true)

	if allowed, _ := g.IsPathAllowed(filepath.Join(dir, "debug.log")); allowed {
		t.Fatal("debug.log should be blocked by *.log")
	}
	if allowed, _ := g.IsPathAllowed(filepath.Join(dir, "important.log")); !allowed {
		t.Fatal("important.log should be allowed by !important.log")
	}
}

func TestDisabledGuardAllowsEverything(t *testing.T) {
	g := NewFileGuard("", false)
	if allowed, _ := g.IsPathAllowed("/etc/passwd"); !allowed {
		t.Fatal("disabled guard must fail open")
	}
	var nilGuard *FileGuard
	if allowed, _ := nilGuard.IsPathAllowed("/etc/passwd"); !allowed {
		t.Fatal("nil guard must fail open")
	}
}

func TestAgentIgnoreFileCombined(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(".env\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".ai-ignore"), []byte("private.txt\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	g := NewFileGuard(dir, true)

	if allowed, _ := g.IsPathAllowed(filepath.Join(dir, ".env")); allowed {
		t.Fatal(".env should be blocked by .gitignore")
	}
	if allowed, _ := g.IsPathAllowed(filepath.Join(dir, "private.txt")); allowed {
		t.Fatal("private.txt should be blocked by .ai-ignore")
	}
	if allowed, _ := g.IsPathAllowed(filepath.Join(dir, "readme.md")); !allowed {
		t.Fatal("readme.md should be allowed")
	}
}

func TestSymlinkCannotEscape(t *testing.T) {
	outside := t.TempDir()
	secret := filepath.Join(outside, "host-secret.txt")
	if err := os.WriteFile(secret, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	link := filepath.Join(dir, "innocent.txt")
	if err := os.Symlink(secret, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	g := NewFileGuard(dir, true)

	allowed, reason := g.IsPathAllowed(link)
	if allowed {
		t.Fatal("a symlink pointing outside the working directory must be denied")
	}
	if !strings.Contains(strings.ToLower(reason), "outside") {
		t.Fatalf("reason should name the boundary violation, got %q", reason)
	}
}

func TestProtectedPatternsText(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.log\n!important.log\nsecrets/\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	g := NewFileGuard(dir, true)

	text := g.ProtectedPatternsText()
	if !strings.Contains(text, "*.log") || !strings.Contains(text, "secrets/") {
		t.Fatalf("patterns text missing entries: %q", text)
	}
	if strings.Contains(text, "!important.log") {
		t.Fatalf("negated patterns must be excluded: %q", text)
	}

	empty := NewFileGuard(t.TempDir(), true)
	if empty.ProtectedPatternsText() != "" {
		t.Fatal("guard without patterns should render empty text")
	}
}
