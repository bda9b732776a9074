//go:build !unix

package audit

import (
	"os"
	"sync"
)

// Platforms without flock fall back to a process-local RWMutex:
// append/prune exclusion holds within one process, cross-process
// exclusion is not provided.
var lockMu sync.RWMutex

func lockShared(_ *os.File) error {
	lockMu.RLock()
	return nil
}

func lockExclusive(_ *os.File) error {
	lockMu.Lock()
	return nil
}

func unlockShared(_ *os.File) {
	lockMu.RUnlock()
}

func unlockExclusive(_ *os.File) {
	lockMu.Unlock()
}
