package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/nyxmori/warden/internal/pathutil"
	"github.com/nyxmori/warden/internal/statepaths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Access-control and audit subsystem for an AI coding agent",
	Long: `warden inspects model-generated commands, code and file paths before
an agent acts on them: a blocked-command matcher, a working-directory
file guard with gitignore-style exclusions, a protected-reference code
scanner, and an append-only audit log.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.warden/config.yaml)")
	rootCmd.PersistentFlags().String("working-dir", "", "working directory the agent is confined to")
	_ = viper.BindPFlag("guard.working_dir", rootCmd.PersistentFlags().Lookup("working-dir"))
}

func initConfig() error {
	viper.SetDefault("guard.enabled", true)
	viper.SetDefault("guard.working_dir", "")
	viper.SetDefault("guard.exec.blocklist_path", "")
	viper.SetDefault("guard.exec.require_approval", false)
	viper.SetDefault("guard.network.url_fetch.allowed_url_prefixes", []string{"https://"})
	viper.SetDefault("guard.network.url_fetch.deny_private_ips", true)
	viper.SetDefault("guard.network.url_fetch.resolve_dns", false)
	viper.SetDefault("guard.redaction.enabled", true)
	viper.SetDefault("guard.audit.path", statepaths.AuditLogPath())
	viper.SetDefault("guard.audit.max_age_days", 30)
	viper.SetDefault("guard.approvals.enabled", false)
	viper.SetDefault("guard.approvals.dsn", statepaths.ApprovalsDSN())

	if strings.TrimSpace(cfgFile) != "" {
		viper.SetConfigFile(pathutil.ExpandHomePath(cfgFile))
	} else {
		home, err := os.UserHomeDir()
		if err == nil && strings.TrimSpace(home) != "" {
			viper.AddConfigPath(home + "/.warden")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("WARDEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && strings.TrimSpace(cfgFile) != "" {
			return err
		}
	}
	return nil
}

func logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
