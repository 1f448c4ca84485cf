package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// percentage validates a promptui answer as an integer in [0,100].
func percentage(input string) error {
	v, err := strconv.Atoi(input)
	if err != nil {
		return fmt.Errorf("enter a whole number")
	}
	if v < 0 || v > 100 {
		return fmt.Errorf("must be between 0 and 100")
	}
	return nil
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to autodecide! Let's configure the decision engine.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Thresholds.
	thresholds := []struct {
		label string
		dst   *int
	}{
		{"Minimum confidence (%)", &cfg.Criteria.MinConfidence},
		{"Maximum risk level (%)", &cfg.Criteria.MaxRiskLevel},
		{"Auto-execute threshold (%)", &cfg.Criteria.AutoExecuteThreshold},
	}
	for _, th := range thresholds {
		prompt := promptui.Prompt{
			Label:    th.label,
			Default:  strconv.Itoa(*th.dst),
			Validate: percentage,
		}
		answer, err := prompt.Run()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", th.label, err)
		}
		*th.dst, _ = strconv.Atoi(answer)
	}

	// 2. Execution mode.
	modePrompt := promptui.Select{
		Label: "Execution mode",
		Items: []string{
			"manual     - approved decisions wait for an operator",
			"autonomous - approved decisions execute immediately",
		},
	}
	modeIdx, _, err := modePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("mode selection: %w", err)
	}
	cfg.Engine.AutoMode = modeIdx == 1

	// 3. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory for the decision archive",
		Default: cfg.DataDir,
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	// 4. Optional webhook.
	webhookPrompt := promptui.Prompt{
		Label:   "Webhook URL for notifications (leave blank to skip)",
		Default: "",
	}
	webhook, err := webhookPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("webhook url: %w", err)
	}
	cfg.Notifications.WebhookURL = webhook

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}
