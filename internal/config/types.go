package config

import "github.com/ziadkadry99/auto-decide/internal/decision"

// DefaultPath is the config file written by the wizard and read by default.
const DefaultPath = ".autodecide.yml"

// Config is the top-level autodecide configuration, corresponding to .autodecide.yml.
type Config struct {
	DataDir       string              `yaml:"data_dir" koanf:"data_dir"`
	Engine        EngineConfig        `yaml:"engine" koanf:"engine"`
	Criteria      decision.Criteria   `yaml:"criteria" koanf:"criteria"`
	Server        ServerConfig        `yaml:"server" koanf:"server"`
	Notifications NotificationsConfig `yaml:"notifications" koanf:"notifications"`
}

// EngineConfig holds scheduler and executor timing.
type EngineConfig struct {
	TickIntervalMS       int     `yaml:"tick_interval_ms" koanf:"tick_interval_ms"`
	GenerateProbability  float64 `yaml:"generate_probability" koanf:"generate_probability"`
	Retention            int     `yaml:"retention" koanf:"retention"`
	AutoMode             bool    `yaml:"auto_mode" koanf:"auto_mode"`
	ActivateOnStart      bool    `yaml:"activate_on_start" koanf:"activate_on_start"`
	LearningMode         bool    `yaml:"learning_mode" koanf:"learning_mode"`
	PreCheckDelayMS      int     `yaml:"precheck_delay_ms" koanf:"precheck_delay_ms"`
	MSPerSimulatedSecond int     `yaml:"ms_per_simulated_second" koanf:"ms_per_simulated_second"`
	// Seed of 0 seeds the random source from the clock.
	Seed uint64 `yaml:"seed" koanf:"seed"`

	EnforceHumanApproval   bool `yaml:"enforce_human_approval" koanf:"enforce_human_approval"`
	EnforceDecisionTimeout bool `yaml:"enforce_decision_timeout" koanf:"enforce_decision_timeout"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// NotificationsConfig configures the webhook subscriber taken from the file.
type NotificationsConfig struct {
	WebhookURL     string `yaml:"webhook_url" koanf:"webhook_url"`
	EventFilter    string `yaml:"event_filter" koanf:"event_filter"`
	SeverityFilter string `yaml:"severity_filter" koanf:"severity_filter"`
}
