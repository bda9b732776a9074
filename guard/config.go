package guard

type Config struct {
	Enabled bool

	// WorkingDir is the root the agent is authorized to read and
	// write. Empty means containment is not configured and file
	// checks fail open.
	WorkingDir string

	Exec      ExecConfig
	Network   NetworkConfig
	Redaction RedactionConfig

	Audit     AuditConfig
	Approvals ApprovalsConfig
}

type ExecConfig struct {
	// BlocklistPath overrides the bundled blocked-commands CSV.
	BlocklistPath string

	// RequireApproval holds every command execution for an operator
	// decision, not just blocked ones.
	RequireApproval bool
}

type NetworkConfig struct {
	URLFetch URLFetchNetworkPolicy
}

type URLFetchNetworkPolicy struct {
	AllowedURLPrefixes []string
	DenyPrivateIPs     bool
	ResolveDNS         bool // When true, resolve hostnames via DNS and block private IPs.
}

type RedactionConfig struct {
	Enabled  bool
	Patterns []RegexPattern
}

type RegexPattern struct {
	Name string
	Re   string
}

type AuditConfig struct {
	Path       string
	MaxAgeDays int
}

type ApprovalsConfig struct {
	Enabled bool
	DSN     string
}
