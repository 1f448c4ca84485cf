package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-decide/internal/db"
	"github.com/ziadkadry99/auto-decide/internal/progress"
	"github.com/ziadkadry99/auto-decide/internal/report"
	"github.com/ziadkadry99/auto-decide/internal/server"
)

var (
	simTicks   int
	simSeed    uint64
	simAuto    bool
	simFast    bool
	simPersist bool
	simOutput  string
	simFormat  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the engine headless for a number of ticks and report the outcome",
	Long: `Drives the scheduler for --ticks iterations without waiting for the tick
interval, waits for every execution to settle, then prints an engine report.
Decisions are archived in memory unless --persist is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if simTicks < 1 {
			return fmt.Errorf("--ticks must be at least 1")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("seed") {
			cfg.Engine.Seed = simSeed
		}
		if cmd.Flags().Changed("auto") {
			cfg.Engine.AutoMode = simAuto
		}
		if simFast {
			cfg.Engine.PreCheckDelayMS = 0
			cfg.Engine.MSPerSimulatedSecond = 0
		}

		format := report.FormatMarkdown
		if simFormat != "" {
			if format, err = report.ParseFormat(simFormat); err != nil {
				return err
			}
		} else if simOutput != "" {
			format = report.FormatForPath(simOutput)
		}

		var database *db.DB
		if simPersist {
			database, err = openDatabase(cfg)
		} else {
			database, err = db.OpenMemory()
		}
		if err != nil {
			return err
		}
		defer database.Close()

		// The command drives every tick itself.
		services := server.NewServices(database, cfg, server.WithManualTicks())
		ctx := cmd.Context()

		// Engine notices would tear the progress bar apart.
		reporter := progress.NewReporter("Simulating")
		if verbose {
			reporter = progress.Nop{}
		} else {
			log.SetOutput(io.Discard)
			defer log.SetOutput(os.Stderr)
		}
		snap, generated := simulate(ctx, services, simTicks, reporter)

		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := services.Close(closeCtx); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "%d ticks, %d decisions generated\n", simTicks, generated)

		if simOutput != "" {
			if err := report.WriteFile(simOutput, snap, format); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Report written to %s\n", simOutput)
			return nil
		}
		return report.Render(os.Stdout, snap, format)
	},
}

// simulate activates the engine, runs n ticks, waits for executions to
// settle and snapshots the engine. The snapshot is taken while the engine is
// still active so the report shows the mode the run used.
func simulate(ctx context.Context, services *server.Services, n int, reporter progress.Reporter) (report.Snapshot, int) {
	services.Engine.Activate(ctx)
	generated := runTicks(ctx, services, n, reporter)
	services.Engine.Wait()

	snap := report.FromEngine(services.Engine, time.Now())
	if stats, err := services.Archive.Stats(ctx); err == nil {
		snap.Archive = stats
	}
	return snap, generated
}

// runTicks drives n scheduler iterations and returns how many generated a
// decision.
func runTicks(ctx context.Context, services *server.Services, n int, reporter progress.Reporter) int {
	reporter.Start(n)
	defer reporter.Finish()

	generated := 0
	for i := 1; i <= n; i++ {
		if ctx.Err() != nil {
			break
		}
		d, ok := services.Engine.Tick(ctx)
		msg := "no decision"
		if ok {
			generated++
			msg = fmt.Sprintf("%s %s decision", d.Priority, d.Type)
		}
		reporter.Update(i, msg)
	}
	return generated
}

func init() {
	simulateCmd.Flags().IntVar(&simTicks, "ticks", 100, "Number of scheduler ticks to run")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 0, "Random seed (0 seeds from the clock)")
	simulateCmd.Flags().BoolVar(&simAuto, "auto", false, "Evaluate and execute decisions automatically")
	simulateCmd.Flags().BoolVar(&simFast, "fast", false, "Skip simulated execution delays")
	simulateCmd.Flags().BoolVar(&simPersist, "persist", false, "Archive decisions in the configured database")
	simulateCmd.Flags().StringVarP(&simOutput, "output", "o", "", "Write the report to a file instead of stdout")
	simulateCmd.Flags().StringVar(&simFormat, "format", "", "Report format: markdown or html")
	rootCmd.AddCommand(simulateCmd)
}
