package main

import (
	"log/slog"
	"strings"

	"github.com/nyxmori/warden/audit"
	"github.com/nyxmori/warden/guard"
	"github.com/nyxmori/warden/internal/pathutil"
	"github.com/spf13/viper"
)

func guardConfigFromViper() guard.Config {
	var patterns []guard.RegexPattern
	_ = viper.UnmarshalKey("guard.redaction.patterns", &patterns)

	return guard.Config{
		Enabled:    viper.GetBool("guard.enabled"),
		WorkingDir: strings.TrimSpace(viper.GetString("guard.working_dir")),
		Exec: guard.ExecConfig{
			BlocklistPath:   pathutil.ExpandHomePath(viper.GetString("guard.exec.blocklist_path")),
			RequireApproval: viper.GetBool("guard.exec.require_approval"),
		},
		Network: guard.NetworkConfig{
			URLFetch: guard.URLFetchNetworkPolicy{
				AllowedURLPrefixes: viper.GetStringSlice("guard.network.url_fetch.allowed_url_prefixes"),
				DenyPrivateIPs:     viper.GetBool("guard.network.url_fetch.deny_private_ips"),
				ResolveDNS:         viper.GetBool("guard.network.url_fetch.resolve_dns"),
			},
		},
		Redaction: guard.RedactionConfig{
			Enabled:  viper.GetBool("guard.redaction.enabled"),
			Patterns: patterns,
		},
		Audit: guard.AuditConfig{
			Path:       pathutil.ExpandHomePath(viper.GetString("guard.audit.path")),
			MaxAgeDays: viper.GetInt("guard.audit.max_age_days"),
		},
		Approvals: guard.ApprovalsConfig{
			Enabled: viper.GetBool("guard.approvals.enabled"),
			DSN:     pathutil.ExpandHomePath(viper.GetString("guard.approvals.dsn")),
		},
	}
}

// auditLogFromConfig builds the pipe-delimited audit log, sharing the
// guard's redactor so secrets never land in the log.
func auditLogFromConfig(cfg guard.Config) *audit.Log {
	l := audit.NewLog(cfg.Audit.Path)
	redactor := guard.NewRedactor(cfg.Redaction)
	l.Redact = func(s string) string {
		out, _ := redactor.RedactString(s)
		return out
	}
	return l
}

func guardFromViper(log *slog.Logger) (*guard.Guard, *audit.Log) {
	if log == nil {
		log = slog.Default()
	}
	cfg := guardConfigFromViper()
	auditLog := auditLogFromConfig(cfg)

	var approvals guard.ApprovalStore
	if cfg.Approvals.Enabled {
		store, err := guard.NewSQLiteApprovalStore(cfg.Approvals.DSN)
		if err != nil {
			log.Warn("cannot open approval store, approvals disabled", "dsn", cfg.Approvals.DSN, "error", err)
		} else {
			approvals = store
		}
	}

	return guard.New(cfg, guard.NewLineSink(auditLog), approvals), auditLog
}
