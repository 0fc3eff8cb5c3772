// Package config holds runtime settings for the auth CLI client, with
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the CLI.
//
// ServerEndpointAddr is the base URL of the auth HTTP API, e.g.
// "http://127.0.0.1:8080". RequestTimeout bounds every single API call.
type Config struct {
	ServerEndpointAddr string
	RequestTimeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
