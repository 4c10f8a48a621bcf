package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 5*time.Minute, cfg.Webhook.Tolerance)
	assert.Equal(t, 5, cfg.License.HardwareCap)
	assert.Equal(t, 5*time.Minute, cfg.License.CacheTTL)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Server.RateLimit.Enabled)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("LCGATE_SERVER_PORT", "9090")
	t.Setenv("LCGATE_WEBHOOK_SECRET", "whsec_from_env")
	t.Setenv("LCGATE_WEBHOOK_TOLERANCE", "2m")
	t.Setenv("LCGATE_LICENSE_HARDWARE_CAP", "3")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(wd)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "whsec_from_env", cfg.Webhook.Secret)
	assert.Equal(t, 2*time.Minute, cfg.Webhook.Tolerance)
	assert.Equal(t, 3, cfg.License.HardwareCap)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  port: 7070
webhook:
  secret: whsec_from_file
  tolerance: 90s
license:
  hardware_cap: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "whsec_from_file", cfg.Webhook.Secret)
	assert.Equal(t, 90*time.Second, cfg.Webhook.Tolerance)
	assert.Equal(t, 2, cfg.License.HardwareCap)
	// Values the file does not mention keep their defaults.
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestEnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 7070\n"), 0o644))

	t.Setenv("LCGATE_SERVER_PORT", "6060")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6060, cfg.Server.Port)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port above range", func(c *Config) { c.Server.Port = 70000 }},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }},
		{"zero write timeout", func(c *Config) { c.Server.WriteTimeout = 0 }},
		{"zero tolerance", func(c *Config) { c.Webhook.Tolerance = 0 }},
		{"zero hardware cap", func(c *Config) { c.License.HardwareCap = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestValidateCoercesLogFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
}
