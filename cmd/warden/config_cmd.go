package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective guard configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := guardConfigFromViper()
		out, err := yaml.Marshal(map[string]any{"guard": cfg})
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
