package audit

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// Prune removes entries older than maxAgeDays from the log. Lines
// whose timestamp cannot be parsed are kept: unparseable history is
// never silently dropped.
//
// The read-filter-truncate-rewrite sequence is not atomic, so the
// whole critical section runs under an exclusive advisory lock on the
// log file, against the shared lock Append holds for its write.
// Holding the lock across the read as well as the truncate is what
// keeps a concurrent Append from landing between the two and being
// lost. The lock is released on every exit path.
func (l *Log) Prune(maxAgeDays int) error {
	if l == nil {
		return nil
	}
	if maxAgeDays < 0 {
		return fmt.Errorf("audit: negative max age %d", maxAgeDays)
	}
	if _, err := os.Stat(l.Path); os.IsNotExist(err) {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)

	f, err := os.OpenFile(l.Path, os.O_RDWR|os.O_CREATE, fileMode)
	if err != nil {
		return fmt.Errorf("audit: open for prune: %w", err)
	}
	defer f.Close()

	if err := lockExclusive(f); err != nil {
		return fmt.Errorf("audit: lock for prune: %w", err)
	}
	defer unlockExclusive(f)

	var kept []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		ts, ok := parseLineTime(line)
		if !ok || !ts.Before(cutoff) {
			kept = append(kept, line)
		}
	}
	if err := sc.Err(); err != nil {
		// Leave the file untouched when the read failed part way.
		return fmt.Errorf("audit: read for prune: %w", err)
	}

	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("audit: seek for prune: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("audit: truncate for prune: %w", err)
	}
	for _, line := range kept {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("audit: rewrite for prune: %w", err)
		}
	}
	return f.Sync()
}
