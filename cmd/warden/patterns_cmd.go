package main

import (
	"fmt"

	"github.com/nyxmori/warden/guard"
	"github.com/nyxmori/warden/internal/clifmt"
	"github.com/spf13/cobra"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Print the protected patterns for the model-facing prompt",
	Long: `Prints the non-negated ignore patterns of the configured working
directory as a bulleted list, suitable for pasting into the system
prompt so the model is told what it must not touch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := guardConfigFromViper()
		fg := guard.NewFileGuard(cfg.WorkingDir, cfg.Enabled)
		text := fg.ProtectedPatternsText()
		if text == "" {
			fmt.Println(clifmt.Dim("no protected patterns"))
			return nil
		}
		fmt.Println(clifmt.Headerf("Protected paths (do not read, write or reference):"))
		fmt.Println(text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(patternsCmd)
}
