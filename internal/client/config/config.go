package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the gophaccounts CLI.
//
// Fields:
//   - ServerURL: base URL of the JSON-RPC endpoint.
//   - RequestTimeout: upper bound for a single call.
type Config struct {
	ServerURL      string        `env:"GOPHACCOUNTS_URL"`
	RequestTimeout time.Duration `env:"GOPHACCOUNTS_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	args := os.Args[1:]
	parseJson(cfg, args)
	parseEnv(cfg)
	parseFlags(cfg, args)
	return cfg
}
