// Package statepaths centralizes the per-user locations warden writes
// to, so the audit log and the approvals database always land in the
// same cache directory regardless of which entry point created them.
package statepaths

import (
	"os"
	"path/filepath"
)

const appDir = "warden"

// CacheDir returns the per-user cache directory for warden state,
// typically ~/.cache/warden on Linux. It falls back to a warden
// directory under the OS temp dir when no user cache dir is available.
func CacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		return filepath.Join(os.TempDir(), appDir)
	}
	return filepath.Join(base, appDir)
}

// AuditLogPath is the default location of the audit log file.
func AuditLogPath() string {
	return filepath.Join(CacheDir(), "audit.log")
}

// ApprovalsDSN is the default sqlite DSN for the approvals ledger.
func ApprovalsDSN() string {
	return filepath.Join(CacheDir(), "approvals.db")
}
