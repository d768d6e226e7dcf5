// Package config loads the proxy configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pokedexlabs/pokedex-client/pkg/logging"
)

// Duration decodes "60s"-style YAML values into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the pokedex-proxy configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	API    APIConfig    `yaml:"api"`
	Redis  RedisConfig  `yaml:"redis"`
	Cache  CacheConfig  `yaml:"cache"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// APIConfig holds upstream backend settings.
type APIConfig struct {
	// BaseURL of the Pokédex backend.
	BaseURL string `yaml:"base_url"`

	// Timeout per upstream request.
	Timeout Duration `yaml:"timeout"`

	// UserAgent sent with every request.
	UserAgent string `yaml:"user_agent"`

	// MirrorToken enables the durable session-token mirror, so an
	// access token survives a proxy restart until its next refresh.
	MirrorToken bool `yaml:"mirror_token"`
}

// RedisConfig holds cache backend settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	// L1Capacity is the in-process front cache size in entries
	// (0 disables the front cache).
	L1Capacity uint64 `yaml:"l1_capacity"`

	// Warmup pre-fetches the full Pokémon list into the cache at
	// startup.
	Warmup bool `yaml:"warmup"`

	// TTL overrides per data class. Zero values keep the built-in
	// defaults.
	ReferenceTTL Duration `yaml:"reference_ttl"`
	ListTTL      Duration `yaml:"list_ttl"`
	TeamsTTL     Duration `yaml:"teams_ttl"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  logging.LogLevel `yaml:"level"`
	Pretty bool             `yaml:"pretty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		API: APIConfig{
			Timeout:   Duration(60 * time.Second),
			UserAgent: "pokedex-proxy/1.0",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Cache: CacheConfig{L1Capacity: 1000},
		Log:   LogConfig{Level: logging.LevelInfo},
	}
}

// Load reads configuration from path (optional, "" skips the file),
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML config: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url is required (or set POKEDEX_API_URL)")
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("POKEDEX_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("POKEDEX_LISTEN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("POKEDEX_LOG_LEVEL"); v != "" {
		c.Log.Level = logging.LogLevel(v)
	}
	if v := os.Getenv("POKEDEX_MIRROR_TOKEN"); v == "true" || v == "1" {
		c.API.MirrorToken = true
	}
	if v := os.Getenv("POKEDEX_CACHE_WARMUP"); v == "true" || v == "1" {
		c.Cache.Warmup = true
	}
}
