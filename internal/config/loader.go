// Package config loads the core's protocol.Config from a YAML file with
// environment variable overrides, the way the teacher loads its own
// project configuration: spf13/viper, a fixed env prefix, and defaults
// seeded before the file is read so a missing file is never an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mvp-joe/mcpline/internal/protocol"
)

const envPrefix = "MCPLINE"

// Loader loads a protocol.Config from disk and the environment.
type Loader interface {
	Load() (protocol.Config, error)
}

type loader struct {
	path string
}

// NewLoader builds a Loader that reads the YAML file at path. An empty
// path falls back to viper's default search: ./config.yaml, then
// $HOME/.config/mcpline/config.yaml.
func NewLoader(path string) Loader {
	return &loader{path: path}
}

// Load reads the config file (if any), applies MCPLINE_* environment
// overrides, fills in spec-documented defaults, and validates the
// result. Priority, highest to lowest: environment variables, config
// file, built-in defaults.
func (l *loader) Load() (protocol.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if l.path != "" {
		v.SetConfigFile(l.path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "mcpline"))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A searched-for file that is absent reports ConfigFileNotFoundError;
		// an explicit path that is absent reports a not-exist path error.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return protocol.Config{}, fmt.Errorf("config: read %s: %w", l.path, err)
		}
	}

	// Seed IdleTTL with its unset sentinel before Unmarshal: viper only
	// overwrites fields actually present in the file, env, or its own
	// SetDefault layer, so an explicit `idle_ttl: 0` in the file survives
	// untouched while a genuinely absent key leaves this sentinel in
	// place for WithDefaults to fill below.
	cfg := protocol.Config{IdleTTL: protocol.IdleTTLUnset}
	if err := v.Unmarshal(&cfg); err != nil {
		return protocol.Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return protocol.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("concurrency_limit")
	_ = v.BindEnv("retry_max")
	_ = v.BindEnv("retry_base_delay")
	_ = v.BindEnv("operation_timeout")
	_ = v.BindEnv("idle_ttl")
}

// setDefaults seeds viper's fallback layer for the knobs where zero has
// no special meaning. idle_ttl is deliberately absent here: zero is a
// valid explicit idle TTL (spec.md §8), so its default is applied by
// Config.WithDefaults against the protocol.IdleTTLUnset sentinel seeded
// in Load, not by viper's SetDefault.
func setDefaults(v *viper.Viper) {
	v.SetDefault("concurrency_limit", protocol.DefaultConcurrencyLimit)
	v.SetDefault("retry_max", protocol.DefaultRetryMax)
	v.SetDefault("retry_base_delay", protocol.DefaultRetryBaseDelay)
	v.SetDefault("operation_timeout", protocol.DefaultOperationTimeout)
}

// Load is a convenience wrapper equivalent to NewLoader(path).Load().
func Load(path string) (protocol.Config, error) {
	return NewLoader(path).Load()
}
