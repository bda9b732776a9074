package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

func ExpandHomePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			return filepath.Clean(p)
		}
		if p == "~" {
			return filepath.Clean(home)
		}
		return filepath.Clean(filepath.Join(home, strings.TrimPrefix(p, "~/")))
	}
	return filepath.Clean(p)
}

// ResolveSymlinks resolves p to an absolute path with all symlinks
// evaluated. Unlike filepath.EvalSymlinks it tolerates paths that do not
// exist yet: the deepest existing ancestor is resolved and the remaining
// components are joined back on, so a candidate file that has not been
// created can still be checked against a directory boundary.
func ResolveSymlinks(p string) (string, error) {
	abs, err := filepath.Abs(ExpandHomePath(p))
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	dir := abs
	var tail []string
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			// Hit the filesystem root without finding anything.
			return abs, nil
		}
		tail = append(tail, filepath.Base(dir))
		dir = parent
		resolved, err = filepath.EvalSymlinks(dir)
		if err == nil {
			break
		}
		if !os.IsNotExist(err) {
			return "", err
		}
	}
	for i := len(tail) - 1; i >= 0; i-- {
		resolved = filepath.Join(resolved, tail[i])
	}
	return resolved, nil
}

// WithinDir reports whether path is dir itself or lies strictly under
// dir. Both arguments must already be absolute and symlink-resolved;
// the comparison respects path separator boundaries so that
// "/work/secrets_pub" is not considered inside "/work/secret".
func WithinDir(dir, path string) bool {
	dir = filepath.Clean(dir)
	path = filepath.Clean(path)
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
