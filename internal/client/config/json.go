package config

import (
	"encoding/json"
	"os"

	"github.com/avolkovs/authapi/internal/flagx"
	"github.com/avolkovs/authapi/internal/timex"
)

// JsonConfig is the intermediate DTO for reading the CLI JSON config file.
// It uses timex.Duration, which parses both "10s" strings and integer
// nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr *string         `json:"server_endpoint_addr"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags, if any. Fields absent from the file keep their current
// values; an unreadable or invalid file panics.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *c.ServerEndpointAddr
	}
	if c.RequestTimeout != nil {
		cfg.RequestTimeout = c.RequestTimeout.Duration
	}
}
