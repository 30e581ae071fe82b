// Package config loads dotrollcli settings from defaults, an optional YAML
// file, DOTROLL_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/janoszen/dotrollcli/internal/logging"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "DOTROLL"

	DefaultEndpoint   = "https://webservices.dotroll.com/rest"
	DefaultAPIVersion = "1.0"
	DefaultTimeout    = 30 * time.Second
)

type Config struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type APIConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Version  string        `mapstructure:"version" yaml:"version"`
	Key      string        `mapstructure:"key" yaml:"key"`
	Username string        `mapstructure:"username" yaml:"username"`
	Password string        `mapstructure:"password" yaml:"password"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"` // auto, table, json, ndjson, plain, yaml
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"` // text, json
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("api.endpoint", DefaultEndpoint)
	v.SetDefault("api.version", DefaultAPIVersion)
	v.SetDefault("api.key", "")
	v.SetDefault("api.username", "")
	v.SetDefault("api.password", "")
	v.SetDefault("api.timeout", DefaultTimeout)
	v.SetDefault("output.format", "auto")
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 5)

	// DOTROLL_API_KEY, DOTROLL_LOGGING_LEVEL, ...
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// DefaultPath is where the config file is looked up when none is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, "dotrollcli", "config.yaml")
}

// ReadFile merges a YAML config file into v. An explicit path must exist; the
// default path is skipped when missing.
func ReadFile(v *viper.Viper, path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return nil
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func Load(v *viper.Viper) (Config, error) {
	var c Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		trimStringHook,
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&c, hook); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// Validate checks the settings needed to talk to the API.
func (c Config) Validate() error {
	if c.API.Key == "" {
		return fmt.Errorf("missing API key (use --apikey, DOTROLL_API_KEY or api.key in the config file)")
	}
	u, err := url.Parse(c.API.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API endpoint %q", c.API.Endpoint)
	}
	if c.API.Version == "" {
		return fmt.Errorf("missing API version")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s", c.API.Timeout)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

func trimStringHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.String {
		return data, nil
	}
	return strings.TrimSpace(reflect.ValueOf(data).String()), nil
}
