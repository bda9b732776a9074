// Package audit maintains warden's append-only audit log: one
// pipe-delimited line per recorded event, in a per-user cache file
// that is always restricted to owner read/write.
//
// Append never reports failure to its caller. An access decision must
// stand on its own; a full disk or unwritable cache directory is an
// operator problem, surfaced through slog, not a reason to interrupt
// the operation being audited.
package audit

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nyxmori/warden/internal/statepaths"
	"github.com/nyxmori/warden/internal/strutil"
)

const (
	fileMode = os.FileMode(0o600)
	dirMode  = os.FileMode(0o700)

	// Entries longer than this are truncated before writing so a
	// single append stays well below the kernel's atomic-write
	// guarantee for O_APPEND files.
	maxDetailBytes = 2048
)

// Log is an append-only audit log backed by a single text file.
// Appends write with O_APPEND under a shared advisory lock; Prune
// takes an exclusive one across its critical section (see prune.go),
// so a concurrent append is never erased by the truncate.
type Log struct {
	Path string

	// Redact, when set, is applied to details before writing. The
	// guard wires its secret redactor here so key material denied by
	// policy never lands in the log it triggered.
	Redact func(string) string
}

// NewLog returns a Log at path, or at the default per-user cache
// location when path is empty.
func NewLog(path string) *Log {
	path = strings.TrimSpace(path)
	if path == "" {
		path = statepaths.AuditLogPath()
	}
	return &Log{Path: path}
}

// Append records one event as "<RFC3339-UTC> | eventType | details".
// Failures are logged and swallowed; see the package comment.
func (l *Log) Append(eventType, details string) {
	if l == nil {
		return
	}
	if l.Redact != nil {
		details = l.Redact(details)
	}
	// Keep the line well-formed: the format is line- and
	// pipe-delimited, so embedded newlines must not survive.
	details = strings.ReplaceAll(details, "\n", " ")
	details = strutil.TruncateUTF8(details, maxDetailBytes)
	eventType = strings.ReplaceAll(strings.TrimSpace(eventType), "\n", " ")

	ts := time.Now().UTC().Format(time.RFC3339Nano)
	line := ts + " | " + eventType + " | " + details + "\n"

	if err := os.MkdirAll(filepath.Dir(l.Path), dirMode); err != nil {
		slog.Warn("audit: cannot create log directory", "path", l.Path, "error", err)
		return
	}
	f, err := os.OpenFile(l.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, fileMode)
	if err != nil {
		slog.Warn("audit: cannot open log", "path", l.Path, "error", err)
		return
	}
	defer f.Close()
	if err := lockShared(f); err != nil {
		slog.Warn("audit: cannot lock log", "path", l.Path, "error", err)
		return
	}
	defer unlockShared(f)
	if _, err := f.WriteString(line); err != nil {
		slog.Warn("audit: write failed", "path", l.Path, "error", err)
	}
}

// SetOwnerOnly hardens an existing file to owner read/write (0600).
// Missing files are not an error.
func SetOwnerOnly(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !fi.Mode().IsRegular() {
		return nil
	}
	return os.Chmod(path, fileMode)
}

// parseLineTime extracts and parses the leading timestamp of an audit
// line. ok is false when the line does not carry a parseable
// timestamp, in which case Prune keeps the line unconditionally rather
// than silently dropping history it cannot date.
func parseLineTime(line string) (time.Time, bool) {
	head, _, found := strings.Cut(line, "|")
	if !found {
		return time.Time{}, false
	}
	head = strings.TrimSpace(head)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, head); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
