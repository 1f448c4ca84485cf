package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ziadkadry99/auto-decide/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize autodecide configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose approval thresholds, execution mode and data directory, and writes the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
