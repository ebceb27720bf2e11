package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the environment overrides, e.g.
// LIVESTORE_SERVER_PORT=9090 sets server.port.
const envPrefix = "LIVESTORE_"

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "LIVESTORE_CONFIG"

// defaultConfigPaths are searched in order; the first existing file wins.
var defaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/livestore/config.yaml",
}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Data      DataConfig      `koanf:"data"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DataConfig locates the backing JSON documents. The file names are joined
// onto Dir.
type DataConfig struct {
	Dir          string `koanf:"dir"`
	ProductsFile string `koanf:"products_file"`
	CartsFile    string `koanf:"carts_file"`
}

func (d DataConfig) ProductsPath() string { return filepath.Join(d.Dir, d.ProductsFile) }
func (d DataConfig) CartsPath() string    { return filepath.Join(d.Dir, d.CartsFile) }

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Token   string `koanf:"token"`
}

type RateLimitConfig struct {
	Enabled       bool `koanf:"enabled"`
	Limit         int  `koanf:"limit"`
	WindowSeconds int  `koanf:"window_seconds"`
}

type LoggingConfig struct {
	Level string `koanf:"level"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Data: DataConfig{
			Dir:          "data",
			ProductsFile: "products.json",
			CartsFile:    "carts.json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Token:   "",
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			Limit:         100,
			WindowSeconds: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from three layers, lowest priority first:
// built-in defaults, an optional YAML file, then LIVESTORE_* environment
// variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform maps LIVESTORE_RATE_LIMIT_WINDOW_SECONDS to
// rate_limit.window_seconds. Only the first underscore splits the section
// from the key; the rest stay part of the key name.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, section := range []string{"server", "data", "metrics", "rate_limit", "logging"} {
		if strings.HasPrefix(s, section+"_") {
			return section + "." + strings.TrimPrefix(s, section+"_")
		}
	}
	return s
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir must not be empty")
	}
	if c.Data.ProductsFile == "" || c.Data.CartsFile == "" {
		return fmt.Errorf("data file names must not be empty")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Limit < 1 || c.RateLimit.WindowSeconds < 1) {
		return fmt.Errorf("rate_limit requires a positive limit and window")
	}
	return nil
}
