package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-decide/internal/decision"
)

var (
	evalType       string
	evalPriority   string
	evalConfidence int
	evalRisk       int
	evalImpact     int
	evalJSON       bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a hypothetical decision against the configured criteria",
	Long: `Runs the approval evaluator on a decision described by flags, using the
criteria from the config file. Risk defaults to the value the generator would
derive from confidence and priority.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		d := decision.Decision{
			Type:       decision.Type(evalType),
			Priority:   decision.Priority(evalPriority),
			Confidence: evalConfidence,
			Impact:     evalImpact,
			Status:     decision.StatusPending,
		}
		if !d.Type.Valid() {
			return fmt.Errorf("unknown decision type %q", evalType)
		}
		if !d.Priority.Valid() {
			return fmt.Errorf("unknown priority %q", evalPriority)
		}
		if evalConfidence < 0 || evalConfidence > 100 {
			return fmt.Errorf("--confidence must be within [0,100]")
		}
		d.RiskLevel = evalRisk
		if !cmd.Flags().Changed("risk") {
			d.RiskLevel = decision.RiskFor(d.Confidence, d.Priority)
		}

		eval := decision.Evaluate(d, cfg.Criteria)

		if evalJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"decision":   d,
				"criteria":   cfg.Criteria,
				"evaluation": eval,
			})
		}

		verdict := "rejected"
		if eval.Approved {
			verdict = "approved"
		}
		fmt.Printf("Decision: %s %s (confidence %d%%, risk %d%%, impact %d%%)\n",
			d.Priority, d.Type, d.Confidence, d.RiskLevel, d.Impact)
		fmt.Printf("Verdict:  %s\n", verdict)
		fmt.Printf("Score:    %.1f (approval at %d)\n", eval.Score, decision.ApprovalScore)
		fmt.Printf("Reasons:  %s\n", eval.Reason)
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evalType, "type", string(decision.TypeOptimization), "Decision type")
	evaluateCmd.Flags().StringVar(&evalPriority, "priority", string(decision.PriorityMedium), "Decision priority: critical, high, medium, low")
	evaluateCmd.Flags().IntVar(&evalConfidence, "confidence", 90, "Confidence percentage")
	evaluateCmd.Flags().IntVar(&evalRisk, "risk", 0, "Risk percentage (derived when omitted)")
	evaluateCmd.Flags().IntVar(&evalImpact, "impact", 50, "Impact percentage")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(evaluateCmd)
}
