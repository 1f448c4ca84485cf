package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-decide/internal/archive"
	"github.com/ziadkadry99/auto-decide/internal/audit"
)

var (
	pruneOlderThan time.Duration
	pruneAudit     bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete archived decisions older than a cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		if pruneOlderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		cutoff := time.Now().Add(-pruneOlderThan)

		n, err := archive.NewStore(database).DeleteBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("pruning archive: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Removed %d archived decision(s) before %s\n", n, cutoff.Format(time.RFC3339))

		if pruneAudit {
			n, err := audit.NewStore(database).DeleteBefore(ctx, cutoff)
			if err != nil {
				return fmt.Errorf("pruning audit trail: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Removed %d audit entr(ies)\n", n)
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 30*24*time.Hour, "Age cutoff, e.g. 720h")
	pruneCmd.Flags().BoolVar(&pruneAudit, "audit", false, "Also prune the audit trail")
	rootCmd.AddCommand(pruneCmd)
}
