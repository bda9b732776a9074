//go:build unix

package audit

import (
	"os"

	"golang.org/x/sys/unix"
)

// Advisory flock coordination between writers and the pruner. Append
// holds a shared lock around its single write; Prune holds an
// exclusive lock across the whole read-truncate-rewrite sequence. An
// append therefore lands either before Prune's read or after its
// rewrite, never in between where the truncate would erase it.
func lockShared(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_SH)
}

func lockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

func unlockShared(f *os.File) {
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

func unlockExclusive(f *os.File) {
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
