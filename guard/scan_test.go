package guard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func scannerGuard(t *testing.T) *FileGuard {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(".env\nsecrets/\n*.key\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewFileGuard(dir, true)
}

func TestScanCode(t *testing.T) {
	g := scannerGuard(t)

	cases := []struct {
		name    string
		code    string
		flagged bool
		inWhy   string
	}{
		{"env_reference", `open(".env")`, true, ".env"},
		{"secrets_dir", "cat secrets/api.txt", true, "secrets"},
		{"key_extension", "cat server.key", true, ".key"},
		{"safe_code", `print("hello")`, false, ""},
		{"unrelated_path", "cat readme.md", false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			flagged, reason := ScanCode(tc.code, g)
			if flagged != tc.flagged {
				t.Fatalf("ScanCode(%q) = %v (%q), want %v", tc.code, flagged, reason, tc.flagged)
			}
			if tc.flagged && !strings.Contains(reason, tc.inWhy) {
				t.Fatalf("reason %q should mention %q", reason, tc.inWhy)
			}
		})
	}
}

func TestScanCodeDisabledOrNilGuard(t *testing.T) {
	if flagged, _ := ScanCode(`open(".env")`, nil); flagged {
		t.Fatal("nil guard must not flag")
	}
	off := NewFileGuard("", false)
	if flagged, _ := ScanCode(`open(".env")`, off); flagged {
		t.Fatal("disabled guard must not flag")
	}
}

func TestScanCodeSkipsNegatedPatterns(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.log\n!important.log\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	g := NewFileGuard(dir, true)

	flagged, reason := ScanCode("cat app.log", g)
	if !flagged {
		t.Fatal("*.log reference should flag")
	}
	if strings.Contains(reason, "!important.log") {
		t.Fatalf("negated pattern must not drive the reason: %q", reason)
	}
}
