// Package config loads the configuration of the gotop command.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the prefix of the environment variables that override
// configuration keys: log.level is read from GOTOP_LOG_LEVEL.
const envPrefix = "GOTOP"

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ValidateConfig struct {
	Strict bool `mapstructure:"strict"`
	Greedy bool `mapstructure:"greedy"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type PlotConfig struct {
	Points int `mapstructure:"points"`
}

// Config is the complete configuration of the command.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Validate ValidateConfig `mapstructure:"validate"`
	Store    StoreConfig    `mapstructure:"store"`
	Plot     PlotConfig     `mapstructure:"plot"`
}

var defaults = map[string]any{
	"log.level":       "warn",
	"log.format":      "console",
	"validate.strict": true,
	"validate.greedy": false,
	"store.path":      "gotop.db",
	"plot.points":     200,
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	return v
}

// Load reads the YAML file path, if path is not empty, merges the
// GOTOP_* environment variables and validates the result. Keys
// missing from both take their default values.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: can't read %q: %w", path, err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: can't unmarshal configuration: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

var (
	levels  = []string{"debug", "info", "warn", "error"}
	formats = []string{"console", "json"}
)

// Check checks that every value is one the command can use.
func (C *Config) Check() error {
	C.Log.Level = strings.ToLower(C.Log.Level)
	if !slices.Contains(levels, C.Log.Level) {
		return fmt.Errorf("config: log.level must be one of %v, not %q", levels, C.Log.Level)
	}
	C.Log.Format = strings.ToLower(C.Log.Format)
	if !slices.Contains(formats, C.Log.Format) {
		return fmt.Errorf("config: log.format must be one of %v, not %q", formats, C.Log.Format)
	}
	if C.Store.Path == "" {
		return fmt.Errorf("config: store.path can't be empty")
	}
	if C.Plot.Points < 2 {
		return fmt.Errorf("config: plot.points must be at least 2, not %d", C.Plot.Points)
	}
	return nil
}
