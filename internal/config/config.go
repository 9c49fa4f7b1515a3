package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// CacheDirEnv overrides the fact cache directory. Set but empty selects a
// temporary directory removed after each run.
const CacheDirEnv = "SPLICED_SMEAGLE_CACHE_DIR"

type ToolsConfig struct {
	Abicompat      string `toml:"abicompat"`
	Smeagle        string `toml:"smeagle"`
	SmeagleCompat  string `toml:"smeagle_compat"`
	Timeout        string `toml:"timeout"`
	PackageManager string `toml:"package_manager"`
	Install        bool   `toml:"install"`
}

type CacheConfig struct {
	Dir *string `toml:"dir"`
}

type ConcurrencyConfig struct {
	Workers int `toml:"workers"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type Config struct {
	Tools       ToolsConfig       `toml:"tools"`
	Cache       CacheConfig       `toml:"cache"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
	Memgraph    MemgraphConfig    `toml:"memgraph"`
	Log         LogConfig         `toml:"log"`
	Server      ServerConfig      `toml:"server"`
}

func Default() *Config {
	return &Config{
		Tools: ToolsConfig{
			Abicompat:      "abicompat",
			Smeagle:        "smeagle",
			SmeagleCompat:  "smeagle-compat",
			Timeout:        "5m",
			PackageManager: "spack",
			Install:        true,
		},
		Concurrency: ConcurrencyConfig{Workers: 4},
		Log:         LogConfig{Level: "info", Format: "tint"},
		Server:      ServerConfig{Port: "8080"},
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// Resolve loads path when given, otherwise the defaults, then applies the
// environment and validates.
func Resolve(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv() {
	if dir, ok := os.LookupEnv(CacheDirEnv); ok {
		c.Cache.Dir = &dir
	}
	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		c.Memgraph.URI = v
	}
	if v := os.Getenv("MEMGRAPH_USER"); v != "" {
		c.Memgraph.User = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" {
		c.Memgraph.Password = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("SPLICED_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SPLICED_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency.Workers = n
		}
	}
	if v := os.Getenv("SPLICED_ABICOMPAT"); v != "" {
		c.Tools.Abicompat = v
	}
	if v := os.Getenv("SPLICED_SMEAGLE"); v != "" {
		c.Tools.Smeagle = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Concurrency.Workers <= 0 {
		errs = append(errs, fmt.Errorf("concurrency.workers must be positive, got %d", c.Concurrency.Workers))
	}
	if _, err := time.ParseDuration(c.Tools.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("tools.timeout: %w", err))
	}
	switch c.Log.Format {
	case "tint", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be one of tint, text, json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ToolTimeout is the per-invocation deadline for external tools.
func (c *Config) ToolTimeout() time.Duration {
	d, err := time.ParseDuration(c.Tools.Timeout)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// CacheDir returns the configured fact cache directory, or the shared
// default under the system temp directory when none was configured.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != nil {
		return *c.Cache.Dir
	}
	return filepath.Join(os.TempDir(), "spliced-cache")
}
