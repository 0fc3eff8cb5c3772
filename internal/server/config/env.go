package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays values from environment variables onto the Config.
// Only variables that are actually set override the current values;
// durations accept Go duration strings ("1h", "90s").
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
