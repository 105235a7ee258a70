package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(Te *testing.T) {
	cfg, err := Load("")
	require.NoError(Te, err)
	assert.Equal(Te, "warn", cfg.Log.Level)
	assert.Equal(Te, "console", cfg.Log.Format)
	assert.True(Te, cfg.Validate.Strict)
	assert.False(Te, cfg.Validate.Greedy)
	assert.Equal(Te, "gotop.db", cfg.Store.Path)
	assert.Equal(Te, 200, cfg.Plot.Points)
	assert.Equal(Te, cfg, Default())
}

func TestFileAndEnv(Te *testing.T) {
	path := filepath.Join(Te.TempDir(), "gotop.yaml")
	yaml := "log:\n  level: DEBUG\nvalidate:\n  greedy: true\nstore:\n  path: /tmp/ff.db\n"
	require.NoError(Te, os.WriteFile(path, []byte(yaml), 0o644))
	Te.Setenv("GOTOP_PLOT_POINTS", "50")
	Te.Setenv("GOTOP_VALIDATE_STRICT", "false")

	cfg, err := Load(path)
	require.NoError(Te, err)
	assert.Equal(Te, "debug", cfg.Log.Level)
	assert.True(Te, cfg.Validate.Greedy)
	assert.False(Te, cfg.Validate.Strict)
	assert.Equal(Te, "/tmp/ff.db", cfg.Store.Path)
	assert.Equal(Te, 50, cfg.Plot.Points)
}

func TestInvalid(Te *testing.T) {
	_, err := Load(filepath.Join(Te.TempDir(), "missing.yaml"))
	assert.Error(Te, err)

	Te.Setenv("GOTOP_LOG_FORMAT", "xml")
	_, err = Load("")
	assert.ErrorContains(Te, err, "log.format")
}

func TestCheck(Te *testing.T) {
	for name, mod := range map[string]func(*Config){
		"level":  func(c *Config) { c.Log.Level = "loud" },
		"store":  func(c *Config) { c.Store.Path = "" },
		"points": func(c *Config) { c.Plot.Points = 1 },
	} {
		c := Default()
		mod(c)
		assert.Error(Te, c.Check(), name)
	}
}
