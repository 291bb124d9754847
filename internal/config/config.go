// Package config loads settings from flags, environment and an optional YAML
// file through viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vnpatch/internal/binfmt"
	"vnpatch/internal/retry"
)

// EnvPrefix prefixes every environment variable, e.g. VNPATCH_LOG_LEVEL.
const EnvPrefix = "VNPATCH"

// Config is the resolved configuration of one invocation.
type Config struct {
	// Format forces the script format; empty means detect.
	Format string `mapstructure:"format"`
	// Tunnel is the encoding tunnel table; empty means next to the output.
	Tunnel string `mapstructure:"tunnel"`
	// Names is the character-name table; empty keeps names in memory.
	Names    string `mapstructure:"names"`
	MaxSteps int    `mapstructure:"max_steps"`

	Log   LogConfig   `mapstructure:"log"`
	Trace TraceConfig `mapstructure:"trace"`
	Retry RetryConfig `mapstructure:"retry"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type TraceConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type RetryConfig struct {
	Delay    time.Duration `mapstructure:"delay"`
	Attempts int           `mapstructure:"attempts"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	p := retry.DefaultPolicy()
	return Config{
		MaxSteps: binfmt.DefaultMaxSteps,
		Log:      LogConfig{Level: "info"},
		Retry:    RetryConfig{Delay: p.Delay, Attempts: p.Attempts},
	}
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"format":         "format",
	"tunnel":         "tunnel",
	"names":          "names",
	"max-steps":      "max_steps",
	"log-level":      "log.level",
	"trace-endpoint": "trace.endpoint",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("config", "", "YAML configuration file")
	fs.String("format", d.Format, "script format (default: detect from signature)")
	fs.String("tunnel", d.Tunnel, "encoding tunnel table (default: sjis_ext.bin next to the output)")
	fs.String("names", d.Names, "character name table (YAML)")
	fs.Int("max-steps", d.MaxSteps, "opcode limit per script")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn, error")
	fs.String("trace-endpoint", d.Trace.Endpoint, "OTLP/HTTP endpoint for traces (disabled when empty)")
}

// Load resolves configuration with precedence flag > env > file > default.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	d := Defaults()
	v.SetDefault("format", d.Format)
	v.SetDefault("tunnel", d.Tunnel)
	v.SetDefault("names", d.Names)
	v.SetDefault("max_steps", d.MaxSteps)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("trace.endpoint", d.Trace.Endpoint)
	v.SetDefault("retry.delay", d.Retry.Delay)
	v.SetDefault("retry.attempts", d.Retry.Attempts)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for flag, key := range flagKeys {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("config: bind %s: %w", flag, err)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return c, c.Validate()
}

// Validate rejects values no command can work with.
func (c Config) Validate() error {
	var errs []error
	if c.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("max_steps must not be negative"))
	}
	if c.Retry.Attempts < 1 {
		errs = append(errs, fmt.Errorf("retry.attempts must be at least 1"))
	}
	if c.Retry.Delay < 0 {
		errs = append(errs, fmt.Errorf("retry.delay must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// DecodeOptions returns the decoder options.
func (c Config) DecodeOptions() binfmt.Options {
	return binfmt.Options{MaxSteps: c.MaxSteps}
}

// RetryPolicy returns the store retry policy.
func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{Delay: c.Retry.Delay, Attempts: c.Retry.Attempts}
}
