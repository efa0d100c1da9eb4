package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/sentrylab/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration (secrets masked)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := settings.YAML()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if used := config.ConfigFileUsed(); used != "" {
			fmt.Fprintf(w, "# config file: %s\n", used)
		}
		_, err = w.Write(out)
		return err
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the poller has everything it needs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := settings.Validate(config.SectionSentry, config.SectionGitLab); err != nil {
			return fmt.Errorf("invalid configuration:\n%w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
