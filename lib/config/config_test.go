package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetViper clears global viper state so tests do not leak settings
// into each other.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	CfgFile = ""
	t.Cleanup(func() {
		viper.Reset()
		CfgFile = ""
	})
}

func TestDefaults(t *testing.T) {
	assert := assert.New(t)
	resetViper(t)

	InitConfig()
	cfg := NewClientConfigFromViper()

	assert.Equal("127.0.0.1", cfg.Host)
	assert.Equal(5111, cfg.Port)
	assert.Equal("", cfg.Identity)
	assert.Equal(DefaultVersion, cfg.Version)
	assert.Equal(30*time.Second, cfg.Timeout)
	assert.NotEmpty(cfg.ConfigDir)
}

func TestEnvOverrides(t *testing.T) {
	assert := assert.New(t)
	resetViper(t)

	t.Setenv("NUMSCULL_HOST", "10.0.0.7")
	t.Setenv("NUMSCULL_PORT", "6222")
	t.Setenv("NUMSCULL_IDENTITY", "alice")

	InitConfig()
	cfg := NewClientConfigFromViper()

	assert.Equal("10.0.0.7", cfg.Host)
	assert.Equal(6222, cfg.Port)
	assert.Equal("alice", cfg.Identity)
}

func TestConfigFile(t *testing.T) {
	require := require.New(t)
	resetViper(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(os.WriteFile(path, []byte(`
host: numscull.example.com
port: 7000
identity: bob
timeout: 5s
`), 0o600))

	CfgFile = path
	InitConfig()
	cfg := NewClientConfigFromViper()

	require.Equal("numscull.example.com", cfg.Host)
	require.Equal(7000, cfg.Port)
	require.Equal("bob", cfg.Identity)
	require.Equal(5*time.Second, cfg.Timeout)
}

func TestCreateDefaultConfig(t *testing.T) {
	require := require.New(t)
	resetViper(t)

	InitConfig()
	dir := filepath.Join(t.TempDir(), "nested", NumscullBaseDir)
	require.NoError(CreateDefaultConfig(dir))

	_, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(err)
}
