package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/gophaccounts/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the server (default from Config)
//	-i int      request timeout in seconds (default from Config)
func parseFlags(cfg *Config, args []string) {
	fs := flag.NewFlagSet("cli", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the server")
	timeout := fs.Int("i", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := flagx.ParseOwned(fs, args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})
}
