// Package config loads the inherit command configuration.
//
// Configuration is read from a single TOML file named by:
//   - the --config flag, or
//   - the INHERIT_CONFIG environment variable.
//
// When neither is set the defaults apply. There is no discovery of files in
// the working directory or the home directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "INHERIT_CONFIG"

// Config is the configuration of the inherit command.
type Config struct {
	// SearchPaths are the directories templates are loaded from, in order.
	SearchPaths []string `toml:"search_paths"`

	// Autoescape HTML-escapes printed values.
	Autoescape bool `toml:"autoescape"`

	// StrictUndefined turns unknown variables into render errors.
	StrictUndefined bool `toml:"strict_undefined"`

	// CacheTTL is how long a loaded template is used before its source is
	// checked again. Zero keeps templates until the process exits.
	CacheTTL time.Duration `toml:"cache_ttl"`

	// Redis configures an optional template store consulted after the
	// search paths.
	Redis RedisConfig `toml:"redis"`

	// Server configures the preview server.
	Server ServerConfig `toml:"server"`
}

// RedisConfig configures the redis template store.
type RedisConfig struct {
	// Addr is host:port of the redis server. Empty disables the store.
	Addr string `toml:"addr"`

	// Prefix is prepended to template names to form keys.
	// Default: templates:
	Prefix string `toml:"prefix"`

	// DB selects the redis database.
	DB int `toml:"db"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: 127.0.0.1:8080
	Addr string `toml:"addr"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		SearchPaths: []string{"."},
		Redis: RedisConfig{
			Prefix: "templates:",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Load loads the file named by path, or by INHERIT_CONFIG when path is
// empty. With neither it returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path. Values missing
// from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	meta, err := toml.Decode(string(data), c)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %s", undecoded[0])
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	for i, path := range c.SearchPaths {
		c.SearchPaths[i] = expandVars(path)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if len(c.SearchPaths) == 0 && c.Redis.Addr == "" {
		errs = append(errs, errors.New("search_paths or redis.addr is required"))
	}
	for i, path := range c.SearchPaths {
		if path == "" {
			errs = append(errs, fmt.Errorf("search_paths[%d] is empty", i))
		}
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must not be negative, got %s", c.CacheTTL))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("redis.db must not be negative, got %d", c.Redis.DB))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	return errors.Join(errs...)
}
