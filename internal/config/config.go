package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/ziadkadry99/auto-decide/internal/decision"
	"github.com/ziadkadry99/auto-decide/internal/engine"
	"github.com/ziadkadry99/auto-decide/internal/notifications"
	yamlv3 "gopkg.in/yaml.v3"
)

const envPrefix = "AUTODECIDE_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (AUTODECIDE_*). A double underscore
// separates nesting levels: AUTODECIDE_ENGINE__TICK_INTERVAL_MS.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps AUTODECIDE_CRITERIA__MIN_CONFIDENCE to criteria.min_confidence.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	e := c.Engine
	if e.TickIntervalMS <= 0 {
		return fmt.Errorf("engine.tick_interval_ms must be positive")
	}
	if e.GenerateProbability < 0 || e.GenerateProbability > 1 {
		return fmt.Errorf("engine.generate_probability must be within [0,1], got %g", e.GenerateProbability)
	}
	if e.Retention < 1 {
		return fmt.Errorf("engine.retention must be at least 1")
	}
	if e.PreCheckDelayMS < 0 {
		return fmt.Errorf("engine.precheck_delay_ms must be non-negative")
	}
	if e.MSPerSimulatedSecond < 0 {
		return fmt.Errorf("engine.ms_per_simulated_second must be non-negative")
	}

	if err := c.Criteria.Validate(); err != nil {
		return fmt.Errorf("criteria: %w", err)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	n := c.Notifications
	if n.SeverityFilter != "" && !notifications.Severity(n.SeverityFilter).Valid() {
		return fmt.Errorf("invalid notifications.severity_filter %q: must be one of info, warning, critical", n.SeverityFilter)
	}
	if err := notifications.ValidateEventFilter(n.EventFilter); err != nil {
		return fmt.Errorf("notifications: %w", err)
	}

	return nil
}

// DBPath returns the location of the SQLite database under DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "autodecide.db")
}

// EngineOptions converts the engine and criteria sections into engine
// options. Notifier and Recorder are left for the caller to wire.
func (c *Config) EngineOptions() engine.Options {
	opts := engine.DefaultOptions()
	opts.Criteria = c.Criteria
	opts.TickInterval = time.Duration(c.Engine.TickIntervalMS) * time.Millisecond
	opts.GenerateProbability = c.Engine.GenerateProbability
	opts.Retention = c.Engine.Retention
	opts.PreCheckDelay = time.Duration(c.Engine.PreCheckDelayMS) * time.Millisecond
	opts.SimulatedSecond = time.Duration(c.Engine.MSPerSimulatedSecond) * time.Millisecond
	opts.AutoMode = c.Engine.AutoMode
	opts.LearningMode = c.Engine.LearningMode
	opts.EnforceHumanApproval = c.Engine.EnforceHumanApproval
	opts.EnforceDecisionTimeout = c.Engine.EnforceDecisionTimeout

	seed := c.Engine.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	opts.Source = decision.NewSource(seed)
	return opts
}

// Subscriber returns the webhook preference described by the notifications
// section, or false when no webhook is configured.
func (c *Config) Subscriber() (notifications.Preference, bool) {
	n := c.Notifications
	if n.WebhookURL == "" {
		return notifications.Preference{}, false
	}
	return notifications.Preference{
		SubscriberID:    "config",
		Channel:         "webhook",
		SeverityFilter:  notifications.Severity(n.SeverityFilter),
		EventFilter:     n.EventFilter,
		DigestFrequency: notifications.FreqRealtime,
		WebhookURL:      n.WebhookURL,
	}, true
}
