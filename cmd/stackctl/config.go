package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the defaults stackctl falls back to when a flag isn't
// given explicitly. Grounded on cmd/hoster/config.go's viper +
// mapstructure pattern, trimmed to what a local CLI driver needs.
type Config struct {
	Project ProjectConfig `mapstructure:"project"`
	Runtime RuntimeConfig `mapstructure:"runtime"`
	Log     LogConfig     `mapstructure:"log"`
}

// ProjectConfig holds defaults for project discovery.
type ProjectConfig struct {
	// Name, when set, is used instead of deriving the project name
	// from the compose file's directory.
	Name string `mapstructure:"name"`

	// Files is the default compose file search list, used when
	// --file is not given on the command line.
	Files []string `mapstructure:"files"`
}

// RuntimeConfig holds defaults for talking to the container engine.
type RuntimeConfig struct {
	// Host is the Docker engine endpoint. Empty uses DOCKER_HOST /
	// the platform default.
	Host string `mapstructure:"host"`

	// BuildExecutable, when set, pins the external build tool path
	// instead of letting the adapter discover one.
	BuildExecutable string `mapstructure:"build_executable"`
}

// LogConfig mirrors cmd/hoster/config.go's LogConfig.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig loads configuration from an optional file plus the
// STACKCTL_* environment, following cmd/hoster/config.go's
// LoadConfig sequencing: defaults, then file (if present), then
// environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("project.name", "")
	v.SetDefault("project.files", []string{"compose.yaml", "compose.yml", "docker-compose.yaml", "docker-compose.yml"})
	v.SetDefault("runtime.host", "")
	v.SetDefault("runtime.build_executable", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// missing file is fine, defaults apply
		}
	}

	v.SetEnvPrefix("STACKCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// SetupLogger mirrors cmd/hoster/config.go's SetupLogger.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
