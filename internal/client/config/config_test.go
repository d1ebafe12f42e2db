package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerURL)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"server_url":      "http://from-json:1",
		"request_timeout": "3s",
	})

	t.Setenv("GOPHACCOUNTS_URL", "http://from-env:2")
	os.Args = []string{"cli", "-c", path, "-i", "7"}

	cfg := LoadConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "http://from-env:2", cfg.ServerURL)
	assert.Equal(t, 7*time.Second, cfg.RequestTimeout)
}
