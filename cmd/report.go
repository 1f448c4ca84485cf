package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-decide/internal/archive"
	"github.com/ziadkadry99/auto-decide/internal/report"
)

var (
	reportOutput string
	reportFormat string
	reportLimit  int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a markdown or HTML report from the decision archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		format := report.FormatMarkdown
		if reportFormat != "" {
			if format, err = report.ParseFormat(reportFormat); err != nil {
				return err
			}
		} else if reportOutput != "" {
			format = report.FormatForPath(reportOutput)
		}

		if _, err := os.Stat(cfg.DBPath()); os.IsNotExist(err) {
			return fmt.Errorf("no archive at %s\nRun `autodecide serve` or `autodecide simulate --persist` first", cfg.DBPath())
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		snap, err := report.FromArchive(cmd.Context(), archive.NewStore(database), reportLimit, time.Now())
		if err != nil {
			return err
		}

		if reportOutput != "" {
			if err := report.WriteFile(reportOutput, snap, format); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Report written to %s\n", reportOutput)
			return nil
		}
		return report.Render(os.Stdout, snap, format)
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the report to a file instead of stdout")
	reportCmd.Flags().StringVar(&reportFormat, "format", "", "Report format: markdown or html (inferred from --output)")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 200, "Maximum number of archived decisions to include")
	rootCmd.AddCommand(reportCmd)
}
