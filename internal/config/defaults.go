package config

import "github.com/ziadkadry99/auto-decide/internal/decision"

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: ".autodecide",
		Engine: EngineConfig{
			TickIntervalMS:       4000,
			GenerateProbability:  0.4,
			Retention:            50,
			LearningMode:         true,
			PreCheckDelayMS:      1000,
			MSPerSimulatedSecond: 10,
		},
		Criteria: decision.DefaultCriteria(),
		Server: ServerConfig{
			Port: 8080,
		},
	}
}
