package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/nyxmori/warden/internal/clifmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and maintain the audit log",
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the most recent audit entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("lines")
		cfg := guardConfigFromViper()

		f, err := os.Open(cfg.Audit.Path)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Println(clifmt.Dim("audit log is empty"))
				return nil
			}
			return err
		}
		defer f.Close()

		var lines []string
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		if err := sc.Err(); err != nil {
			return err
		}
		if n > 0 && len(lines) > n {
			lines = lines[len(lines)-n:]
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove audit entries older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("max-age-days")
		if !cmd.Flags().Changed("max-age-days") {
			days = viper.GetInt("guard.audit.max_age_days")
		}
		cfg := guardConfigFromViper()
		log := auditLogFromConfig(cfg)
		if err := log.Prune(days); err != nil {
			return err
		}
		fmt.Println(clifmt.Success(fmt.Sprintf("pruned entries older than %d days", days)))
		return nil
	},
}

func init() {
	auditTailCmd.Flags().Int("lines", 20, "number of entries to show")
	auditPruneCmd.Flags().Int("max-age-days", 30, "retention window in days")
	auditCmd.AddCommand(auditTailCmd, auditPruneCmd)
	rootCmd.AddCommand(auditCmd)
}
