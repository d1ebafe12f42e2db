package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/gophaccounts/internal/flagx"
)

// parseFlags overlays command-line flags on Config.
//
// Supported flags (short forms):
//
//	-a string   JSON-RPC HTTP bind address (e.g., ":8080")
//	-g string   gRPC bind address (e.g., ":50051")
//	-s string   storage driver: postgres or sqlite
//	-d string   database DSN
//	-t int      token expiration window, minutes
//	-b int      bcrypt cost
//	-l string   log level: debug, info, warn, error
//	-f string   log file (rotated); empty logs to stdout
//
// Flags owned by other layers (such as -c) are ignored.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port of the JSON-RPC endpoint")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port of the gRPC endpoint")
	fs.StringVar(&config.StorageDriver, "s", config.StorageDriver, "storage driver (postgres|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	window := fs.Int("t", int(config.TokenExpirationWindow.Minutes()), "token expiration window (in minutes)")
	fs.IntVar(&config.BcryptCost, "b", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "f", config.LogFile, "log file")

	if err := flagx.ParseOwned(fs, args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.TokenExpirationWindow = time.Duration(*window) * time.Minute
		}
	})
}
