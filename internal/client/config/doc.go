// Package config loads runtime configuration for the gophaccounts CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Environment: GOPHACCOUNTS_URL, GOPHACCOUNTS_TIMEOUT.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   base URL of the server, e.g. http://127.0.0.1:8080
//	-i int      request timeout (seconds)
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "request_timeout": "10s"
//	}
package config
