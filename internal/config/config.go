// Package config loads sineql configuration. Precedence, highest first:
// flags > SINEQL_* environment variables > config file > defaults.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	EnvPrefix         = "SINEQL_"
	DefaultConfigFile = "sineql.yaml"
	DefaultAddr       = ":8080"
	DefaultService    = "sineql"
)

type Config struct {
	Schema   string       `koanf:"schema"`   // schema DSL file
	Data     string       `koanf:"data"`     // YAML dataset
	SQLite   string       `koanf:"sqlite"`   // SQLite DSN
	Identity string       `koanf:"identity"` // identity attribute
	Debug    bool         `koanf:"debug"`
	Log      LogConfig    `koanf:"log"`
	Server   ServerConfig `koanf:"server"`
	OTel     OTelConfig   `koanf:"otel"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug|info|warn|error
	Format string `koanf:"format"` // text|json
}

type ServerConfig struct {
	Addr    string        `koanf:"addr"`
	Timeout time.Duration `koanf:"timeout"`
	Pretty  bool          `koanf:"pretty"`
}

type OTelConfig struct {
	Endpoint string `koanf:"endpoint"`
	Service  string `koanf:"service"`
}

// flagKeys maps flags whose names do not follow the key convention.
var flagKeys = map[string]string{
	"addr": "server.addr",
}

func defaults() map[string]any {
	return map[string]any{
		"identity":       "id",
		"debug":          false,
		"log.level":      "info",
		"log.format":     "text",
		"server.addr":    DefaultAddr,
		"server.timeout": "10s",
		"server.pretty":  false,
		"otel.service":   DefaultService,
	}
}

// Load reads configuration from cfgFile (or ./sineql.yaml when present),
// SINEQL_* environment variables and the changed flags of flags. Flag and
// variable names map onto keys by replacing "-" or "_" with ".", so
// --log-level and SINEQL_LOG_LEVEL both set log.level.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			cfgFile = DefaultConfigFile
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			if key, ok := flagKeys[f.Name]; ok {
				return key, posflag.FlagVal(flags, f)
			}
			return strings.ReplaceAll(f.Name, "-", "."), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", c.Log.Format)
	}
	if c.Identity == "" {
		return fmt.Errorf("identity must not be empty")
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server timeout must not be negative")
	}
	return nil
}

// NewLogger builds the slog logger described by c.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
