package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "poolsim.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[pooling]
auto_create = false

[simulation]
tick_rate = "50ms"
reload_every = 100
`))
	require.NoError(t, err)

	assert.False(t, cfg.Pooling.AutoCreate)
	assert.True(t, cfg.Pooling.Enabled)
	assert.Equal(t, 10, cfg.Pooling.MissingPoolCapacity)
	assert.Equal(t, 50*time.Millisecond, cfg.Simulation.TickRate)
	assert.Equal(t, 100, cfg.Simulation.ReloadEvery)
	assert.Equal(t, "scripts", cfg.Simulation.ScriptsDir)
	assert.Equal(t, "127.0.0.1:7080", cfg.Admin.BindAddress)
	assert.NotZero(t, cfg.Server.StartTime)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, body := range map[string]string{
		"tick rate":   "[simulation]\ntick_rate = \"0s\"\n",
		"reload":      "[simulation]\nreload_every = -1\n",
		"capacity":    "[pooling]\nmissing_pool_capacity = -5\n",
		"missing dsn": "[database]\nenabled = true\ndsn = \"\"\n",
		"syntax":      "[pooling\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
