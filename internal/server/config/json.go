package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophaccounts/internal/flagx"
	"github.com/dmitrijs2005/gophaccounts/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "24h" style
// strings or integer nanoseconds; absent fields leave Config untouched.
type JsonConfig struct {
	EndpointAddrHTTP      string          `json:"endpoint_addr_http"`
	EndpointAddrGRPC      string          `json:"endpoint_addr_grpc"`
	StorageDriver         string          `json:"storage_driver"`
	DatabaseDSN           string          `json:"database_dsn"`
	DBMaxOpenConns        int             `json:"db_max_open_conns"`
	DBMaxIdleConns        int             `json:"db_max_idle_conns"`
	TokenExpirationWindow *timex.Duration `json:"token_expiration_window"`
	BcryptCost            int             `json:"bcrypt_cost"`
	BootstrapTenantCode   string          `json:"bootstrap_tenant_code"`
	LogLevel              string          `json:"log_level"`
	LogFormat             string          `json:"log_format"`
	LogFile               string          `json:"log_file"`
	LogMaxMessageLength   int             `json:"log_max_message_length"`
	RateLimitRPS          float64         `json:"rate_limit_rps"`
	RateLimitBurst        int             `json:"rate_limit_burst"`
	MaxBodyBytes          int64           `json:"max_body_bytes"`
	ShutdownTimeout       *timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays the file given with -c/-config, if any. An unreadable
// or malformed file panics.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.StorageDriver, c.StorageDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.BootstrapTenantCode, c.BootstrapTenantCode)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogFile, c.LogFile)

	setInt(&config.DBMaxOpenConns, c.DBMaxOpenConns)
	setInt(&config.DBMaxIdleConns, c.DBMaxIdleConns)
	setInt(&config.BcryptCost, c.BcryptCost)
	setInt(&config.LogMaxMessageLength, c.LogMaxMessageLength)
	setInt(&config.RateLimitBurst, c.RateLimitBurst)

	if c.RateLimitRPS != 0 {
		config.RateLimitRPS = c.RateLimitRPS
	}
	if c.MaxBodyBytes != 0 {
		config.MaxBodyBytes = c.MaxBodyBytes
	}
	if c.TokenExpirationWindow != nil {
		config.TokenExpirationWindow = c.TokenExpirationWindow.Duration
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
